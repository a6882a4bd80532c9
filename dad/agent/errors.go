package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Admission errors. Both are returned before any external work begins.
var (
	ErrThreadBusy = errors.New("thread already has an active invocation")
	ErrTooBusy    = errors.New("too many concurrent invocations")
)

// SpawnError means the agent process could not be started at all.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning agent process: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProcessError means the agent process exited non-zero. Stderr holds a
// truncated excerpt of the captured error output.
type ProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("agent process exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("agent process exited with code %d: %s", e.ExitCode, e.Stderr)
}

// staleSessionMarkers classifies "continuity token rejected" failures
// by substring, since the CLI reports them only as free-text stderr. A
// structured exit code from the CLI could replace this table without
// touching the retry logic. Known false negative risk: an unrelated
// error mentioning "session" is misclassified as stale.
var staleSessionMarkers = []string{
	"no conversation found",
	"session",
}

// isStaleSession reports whether the failure looks like a rejected
// continuity token.
func isStaleSession(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, marker := range staleSessionMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
