package capture

import (
	"fmt"

	"github.com/gofrs/flock"

	"timelapsebox/internal/services"
)

// Lock keeps a second capture session from starting against the same data
// directory while one is running.
type Lock struct {
	path string
	lock *flock.Flock
}

// NewLock returns a lock backed by the file at path.
func NewLock(path string) *Lock {
	return &Lock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Acquire takes the lock without blocking. A held lock fails with
// services.ErrBusy.
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "capture", "lock", fmt.Sprintf("acquire %s", l.path), err)
	}
	if !ok {
		return services.Wrap(services.ErrBusy, "capture", "lock", "another capture session is running ("+l.path+")", nil)
	}
	return nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}

// LockHeld reports whether some process currently holds the lock at path.
func LockHeld(path string) (bool, error) {
	probe := flock.New(path)
	ok, err := probe.TryRLock()
	if err != nil {
		return false, err
	}
	if ok {
		_ = probe.Unlock()
	}
	return !ok, nil
}
