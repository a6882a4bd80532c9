// Package training maintains the file-backed training context that is
// appended to every invocation's instructions.
package training

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

const (
	trainingFileName = "TRAINING.md"
	filesDirName     = "files"

	fileHeader = "# Dad Training Context\n\n"
)

// Store is a file-backed training context: a single markdown file of
// accumulated instructions plus a directory for attachments. Reads are
// cached; the cache is invalidated on Append and, when watching, on
// external writes to the file.
type Store struct {
	dir      string
	filePath string
	logger   zerolog.Logger

	mu     sync.RWMutex
	cached string
	loaded bool

	watcher    *fsnotify.Watcher
	background conc.WaitGroup
}

// NewStore initializes the training directory, seeding the context
// file when missing.
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create training dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, filesDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create training files dir: %w", err)
	}

	filePath := filepath.Join(dir, trainingFileName)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := os.WriteFile(filePath, []byte(fileHeader), 0o644); err != nil {
			return nil, fmt.Errorf("failed to seed training file: %w", err)
		}
	}

	return &Store{
		dir:      dir,
		filePath: filePath,
		logger:   logger.With().Str("component", "training").Logger(),
	}, nil
}

// Context returns the current training context. A missing or unreadable
// file yields an empty context rather than an error; training is
// always optional.
func (s *Store) Context() string {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.cached
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.cached
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("training context unreadable")
		return ""
	}
	s.cached = string(data)
	s.loaded = true
	return s.cached
}

// Append adds a timestamped entry to the training context.
func (s *Store) Append(content string) error {
	entry := fmt.Sprintf("\n---\n_Added: %s_\n\n%s\n", time.Now().UTC().Format(time.RFC3339), content)

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open training file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append training entry: %w", err)
	}

	s.invalidate()
	return nil
}

// FilePath returns where an attachment with the given name should be
// stored; the transport downloads into it.
func (s *Store) FilePath(name string) string {
	return filepath.Join(s.dir, filesDirName, filepath.Base(name))
}

// Watch invalidates the cache when the context file changes on disk,
// so edits made directly on the host (or by the agent itself) take
// effect without a restart.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create training watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch training dir: %w", err)
	}
	s.watcher = watcher

	s.background.Go(func() {
		for event := range watcher.Events {
			if filepath.Base(event.Name) != trainingFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug().Str("op", event.Op.String()).Msg("training context changed on disk")
			s.invalidate()
		}
	})
	s.background.Go(func() {
		for err := range watcher.Errors {
			s.logger.Warn().Err(err).Msg("training watcher error")
		}
	})

	return nil
}

// Close stops the watcher, if any, and waits for its goroutines.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.background.Wait()
	return err
}

func (s *Store) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.cached = ""
}
