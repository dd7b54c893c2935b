package dirlock

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Options(t *testing.T) {
	t.Parallel()

	dl := New("/tmp/policy", nil).(*dirLock)
	assert.Equal(t, 30*time.Second, dl.opts.StaleThreshold)
	assert.Equal(t, 50*time.Millisecond, dl.opts.RetryInterval)

	dl = New("/tmp/policy", &LockOptions{StaleThreshold: 5 * time.Minute, RetryInterval: time.Second}).(*dirLock)
	assert.Equal(t, 5*time.Minute, dl.opts.StaleThreshold)
	assert.Equal(t, time.Second, dl.opts.RetryInterval)
}

func TestTryLock(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	first := New(dir, nil)
	second := New(dir, nil)

	require.NoError(t, first.TryLock())
	assert.True(t, first.IsHeldByMe())
	assert.True(t, second.IsLocked())

	assert.ErrorIs(t, second.TryLock(), ErrLockConflict)
	assert.False(t, second.IsHeldByMe())

	require.NoError(t, first.Unlock())
	assert.False(t, first.IsLocked())

	require.NoError(t, second.TryLock())
	require.NoError(t, second.Unlock())
}

func TestTryLock_CreatesDirectory(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "locks", "WEB-FS_web01")

	lock := New(dir, nil)
	require.NoError(t, lock.TryLock())
	assert.DirExists(t, dir)
	require.NoError(t, lock.Unlock())
}

func TestTryLock_TakesOverStaleLock(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	lockPath := filepath.Join(dir, lockDirName)
	require.NoError(t, os.Mkdir(lockPath, 0o700))
	past := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(lockPath, past, past))

	lock := New(dir, &LockOptions{StaleThreshold: 30 * time.Second})
	assert.False(t, lock.IsLocked())
	require.NoError(t, lock.TryLock())
	assert.True(t, lock.IsHeldByMe())
	require.NoError(t, lock.Unlock())
}

func TestLock(t *testing.T) {
	t.Parallel()

	t.Run("WaitsForRelease", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		first := New(dir, &LockOptions{RetryInterval: 5 * time.Millisecond})
		second := New(dir, &LockOptions{RetryInterval: 5 * time.Millisecond})
		require.NoError(t, first.TryLock())

		var released atomic.Bool
		go func() {
			time.Sleep(20 * time.Millisecond)
			released.Store(true)
			_ = first.Unlock()
		}()

		require.NoError(t, second.Lock(context.Background()))
		assert.True(t, released.Load())
		require.NoError(t, second.Unlock())
	})

	t.Run("ContextDeadline", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		first := New(dir, nil)
		require.NoError(t, first.TryLock())
		defer func() { _ = first.Unlock() }()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := New(dir, nil).Lock(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestUnlock_NotHeld(t *testing.T) {
	t.Parallel()
	lock := New(t.TempDir(), nil)

	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.TryLock())
	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.Unlock())
}

func TestHeartbeat(t *testing.T) {
	t.Parallel()

	t.Run("RefreshesTimestamp", func(t *testing.T) {
		t.Parallel()
		lock := New(t.TempDir(), nil)
		require.NoError(t, lock.TryLock())
		defer func() { _ = lock.Unlock() }()

		before, err := lock.Info()
		require.NoError(t, err)
		require.NotNil(t, before)

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, lock.Heartbeat(context.Background()))

		after, err := lock.Info()
		require.NoError(t, err)
		assert.True(t, after.AcquiredAt.After(before.AcquiredAt))
		assert.Equal(t, lockDirName, after.LockDirName)
	})

	t.Run("RequiresLock", func(t *testing.T) {
		t.Parallel()
		err := New(t.TempDir(), nil).Heartbeat(context.Background())
		assert.ErrorIs(t, err, ErrNotLocked)
	})
}

func TestInfo_Unlocked(t *testing.T) {
	t.Parallel()
	info, err := New(t.TempDir(), nil).Info()
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestForceUnlock(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	lock := New(dir, nil)
	require.NoError(t, lock.TryLock())

	require.NoError(t, ForceUnlock(dir))
	assert.False(t, lock.IsLocked())
	require.NoError(t, ForceUnlock(dir))
}

func TestConcurrentWorkers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var (
		wg      sync.WaitGroup
		holders atomic.Int32
		maxSeen atomic.Int32
		total   atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := New(dir, &LockOptions{RetryInterval: 2 * time.Millisecond})
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := lock.Lock(ctx); err != nil {
				return
			}
			n := holders.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			total.Add(1)
			time.Sleep(time.Millisecond)
			holders.Add(-1)
			_ = lock.Unlock()
		}()
	}
	wg.Wait()

	assert.Positive(t, total.Load())
	assert.Equal(t, int32(1), maxSeen.Load())
}
