package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrSessionLocked is returned when another review session holds the lock.
var ErrSessionLocked = errors.New("another review session is already running")

// DefaultLockPath is the review session lock file.
const DefaultLockPath = "~/.config/ha-outliers/review.lock"

// SessionLock guards against two review sessions mutating the database at once.
type SessionLock struct {
	lock *flock.Flock
}

// AcquireSessionLock takes the review lock without blocking.
func AcquireSessionLock(path string) (*SessionLock, error) {
	if path == "" {
		path = DefaultLockPath
	}
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrSessionLocked
	}

	return &SessionLock{lock: lock}, nil
}

// Release drops the lock.
func (l *SessionLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
