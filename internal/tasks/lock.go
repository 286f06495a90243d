package tasks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock is an exclusive lock held across processes.
type FileLock struct {
	lock *flock.Flock
}

// AcquireLock takes the lock file at path without blocking.
// Returns ErrRunInProgress when another process holds it.
func AcquireLock(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s is held: %w", path, ErrRunInProgress)
	}
	return &FileLock{lock: l}, nil
}

// Release unlocks the file.
func (l *FileLock) Release() error {
	return l.lock.Unlock()
}
