// Package lockfile provides cross-process advisory locking over a
// segment directory (§5: single-writer-per-segment): gofrs/flock
// wrapped with explicit locked-state tracking, works across Unix and
// Windows.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock guards a segment directory against concurrent writers from other
// processes. It complements, rather than replaces, the in-process
// sync.RWMutex a Segment already holds (§5's discipline spans both a
// single process and, via this lock, multiple processes sharing a
// directory).
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New returns a lock for dir's segment directory. The lock file lives at
// <dir>/.segment.lock.
func New(dir string) *Lock {
	path := filepath.Join(dir, ".segment.lock")
	return &Lock{path: path, flock: flock.New(path)}
}

// Lock acquires the exclusive lock, blocking until available. The
// directory is created first if missing.
func (l *Lock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire segment lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking, reporting
// whether it was acquired.
func (l *Lock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire segment lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an already-unlocked Lock.
func (l *Lock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release segment lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file's path.
func (l *Lock) Path() string { return l.path }

// IsLocked reports whether this Lock currently holds the lock.
func (l *Lock) IsLocked() bool { return l.locked }
