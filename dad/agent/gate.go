package agent

import (
	"fmt"
	"sync"
)

// Gate is the admission control for agent invocations: at most one
// in-flight invocation per thread key, at most ceiling in-flight
// system-wide. The check-and-insert is atomic under one mutex; this is
// the only synchronization primitive the core needs.
type Gate struct {
	mu      sync.Mutex
	active  map[string]struct{}
	ceiling int
}

// NewGate creates a gate with the given global ceiling.
func NewGate(ceiling int) *Gate {
	return &Gate{
		active:  make(map[string]struct{}),
		ceiling: ceiling,
	}
}

// ThreadKey builds the admission key for one conversation lane.
func ThreadKey(channelID, threadID string) string {
	return fmt.Sprintf("%s:%s", channelID, threadID)
}

// Admit registers an active invocation for threadKey. It returns
// ErrThreadBusy if the key is already registered and ErrTooBusy if the
// global ceiling is reached. The returned release function removes the
// registration; it is idempotent and must be called on every exit path
// of the guarded work.
func (g *Gate) Admit(threadKey string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[threadKey]; busy {
		return nil, ErrThreadBusy
	}
	if len(g.active) >= g.ceiling {
		return nil, ErrTooBusy
	}
	g.active[threadKey] = struct{}{}

	var once sync.Once
	release = func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.active, threadKey)
		})
	}
	return release, nil
}

// IsBusy reports whether threadKey has an active invocation. Pure
// read, used by the transport for fast feedback without attempting
// admission.
func (g *Gate) IsBusy(threadKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[threadKey]
	return busy
}

// Active returns the number of in-flight invocations.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
