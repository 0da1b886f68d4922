package cache

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock is a held per-title advisory lock.
type Lock interface {
	Release() error
}

// Locker acquires advisory locks on cache paths. Injected into the Cache
// so tests can observe lock acquisition directly.
type Locker interface {
	Acquire(path string) (Lock, error)
}

// FlockLocker locks through OS-level file locks.
type FlockLocker struct{}

func NewFlockLocker() *FlockLocker {
	return &FlockLocker{}
}

func (*FlockLocker) Acquire(path string) (Lock, error) {
	l := flock.New(path)
	if err := l.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}
	return &flockLock{f: l}, nil
}

type flockLock struct {
	f *flock.Flock
}

func (l *flockLock) Release() error {
	if err := l.f.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// LockTitle takes an advisory lock for one title's cache entries, so two
// simultaneous launches of the same ROM serialize instead of racing on the
// same cache paths. The caller must call Release on the returned lock.
func (c *Cache) LockTitle(base string) (Lock, error) {
	lock, err := c.locker.Acquire(c.Path(base + ".lock"))
	if err != nil {
		return nil, fmt.Errorf("failed to lock title %s: %w", base, err)
	}
	return lock, nil
}
