// Package dirlock provides a cross-process lock backed by a directory.
//
// Creating a directory is atomic on every supported filesystem, so the lock
// is taken by creating a marker directory inside the target directory. The
// holder refreshes the marker's modification time with Heartbeat; a marker
// that is not refreshed within the stale threshold is considered abandoned
// and may be taken over.
package dirlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrLockConflict is returned when another holder owns the lock.
	ErrLockConflict = errors.New("lock is held by another process")
	// ErrNotLocked is returned when an operation requires the lock to be held.
	ErrNotLocked = errors.New("lock is not held")
)

const lockDirName = ".nbsynth_lock"

// LockOptions configures a DirLock.
type LockOptions struct {
	// StaleThreshold is the age after which an unrefreshed lock is abandoned.
	StaleThreshold time.Duration
	// RetryInterval is the pause between attempts in Lock.
	RetryInterval time.Duration
}

// LockInfo describes the current lock holder.
type LockInfo struct {
	AcquiredAt  time.Time
	LockDirName string
}

// DirLock is a lock on a directory.
type DirLock interface {
	// TryLock acquires the lock or returns ErrLockConflict.
	TryLock() error
	// Lock blocks until the lock is acquired or ctx is done.
	Lock(ctx context.Context) error
	// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
	Unlock() error
	// IsLocked reports whether anyone holds a fresh lock.
	IsLocked() bool
	// IsHeldByMe reports whether this instance holds the lock.
	IsHeldByMe() bool
	// Heartbeat refreshes the lock so it is not considered stale.
	Heartbeat(ctx context.Context) error
	// Info returns the current lock, or nil if the directory is not locked.
	Info() (*LockInfo, error)
}

type dirLock struct {
	targetDir string
	lockPath  string
	opts      LockOptions

	mu   sync.Mutex
	held bool
}

// New creates a lock on dir. A nil opts uses the defaults.
func New(dir string, opts *LockOptions) DirLock {
	o := LockOptions{
		StaleThreshold: 30 * time.Second,
		RetryInterval:  50 * time.Millisecond,
	}
	if opts != nil {
		if opts.StaleThreshold > 0 {
			o.StaleThreshold = opts.StaleThreshold
		}
		if opts.RetryInterval > 0 {
			o.RetryInterval = opts.RetryInterval
		}
	}
	return &dirLock{
		targetDir: dir,
		lockPath:  filepath.Join(dir, lockDirName),
		opts:      o,
	}
}

func (l *dirLock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil
	}
	if err := os.MkdirAll(l.targetDir, 0o750); err != nil {
		return fmt.Errorf("failed to create lock directory %s: %w", l.targetDir, err)
	}

	err := os.Mkdir(l.lockPath, 0o700)
	if err == nil {
		l.held = true
		return nil
	}
	if !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("failed to create lock %s: %w", l.lockPath, err)
	}

	if !l.isStale() {
		return ErrLockConflict
	}
	if err := os.RemoveAll(l.lockPath); err != nil {
		return fmt.Errorf("failed to remove stale lock %s: %w", l.lockPath, err)
	}
	if err := os.Mkdir(l.lockPath, 0o700); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrLockConflict
		}
		return fmt.Errorf("failed to create lock %s: %w", l.lockPath, err)
	}
	l.held = true
	return nil
}

func (l *dirLock) Lock(ctx context.Context) error {
	for {
		err := l.TryLock()
		if !errors.Is(err, ErrLockConflict) {
			return err
		}

		timer := time.NewTimer(l.opts.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("failed to acquire lock on %s: %w", l.targetDir, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *dirLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	if err := os.RemoveAll(l.lockPath); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.lockPath, err)
	}
	l.held = false
	return nil
}

func (l *dirLock) IsLocked() bool {
	if _, err := os.Stat(l.lockPath); err != nil {
		return false
	}
	return !l.isStale()
}

func (l *dirLock) IsHeldByMe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

func (l *dirLock) Heartbeat(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return ErrNotLocked
	}
	now := time.Now()
	if err := os.Chtimes(l.lockPath, now, now); err != nil {
		return fmt.Errorf("failed to refresh lock %s: %w", l.lockPath, err)
	}
	return nil
}

func (l *dirLock) Info() (*LockInfo, error) {
	info, err := os.Stat(l.lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat lock %s: %w", l.lockPath, err)
	}
	return &LockInfo{AcquiredAt: info.ModTime(), LockDirName: lockDirName}, nil
}

// isStale reports whether the lock marker is older than the stale threshold.
func (l *dirLock) isStale() bool {
	info, err := os.Stat(l.lockPath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > l.opts.StaleThreshold
}

// ForceUnlock removes the lock on dir regardless of its holder.
func ForceUnlock(dir string) error {
	if err := os.RemoveAll(filepath.Join(dir, lockDirName)); err != nil {
		return fmt.Errorf("failed to force unlock %s: %w", dir, err)
	}
	return nil
}
