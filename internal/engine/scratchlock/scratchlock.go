// Package scratchlock guards a task's scratch directory with an
// on-disk file lock, so two processes pointed at the same download
// directory and filename cannot run workers against the same part
// files concurrently and corrupt them.
package scratchlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock wraps a held flock.Flock for one scratch directory.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Acquire creates scratchDir if needed and takes a non-blocking lock
// on a `.lock` file inside it. ok is false if another process already
// holds it.
func Acquire(scratchDir string) (l *Lock, ok bool, err error) {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("scratchlock: %w", err)
	}

	path := filepath.Join(scratchDir, ".lock")
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("scratchlock: %w", err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{fl: fl, path: path}, true, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return err
	}
	return os.Remove(l.path)
}
