package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerSerializesSameKey(t *testing.T) {
	locker := NewMemoryLocker(0)

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), "doc-1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			n := inside.Add(1)
			for {
				cur := maxInside.Load()
				if n <= cur || maxInside.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, locker.Len(), "entries must be dropped after the last release")
}

func TestMemoryLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewMemoryLocker(50 * time.Millisecond)

	releaseA, err := locker.Acquire(context.Background(), "doc-a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(context.Background(), "doc-b")
	require.NoError(t, err)
	releaseB()
}

func TestMemoryLockerWaitBudget(t *testing.T) {
	locker := NewMemoryLocker(20 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "doc-1")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "doc-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContended))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	release()
	release() // second call is a no-op

	again, err := locker.Acquire(context.Background(), "doc-1")
	require.NoError(t, err)
	again()
	assert.Equal(t, 0, locker.Len())
}

func TestMemoryLockerHonoursCallerContext(t *testing.T) {
	locker := NewMemoryLocker(0)
	release, err := locker.Acquire(context.Background(), "doc-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrContended)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLockerRejectsDoneContextOnFreeKey(t *testing.T) {
	locker := NewMemoryLocker(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 100; i++ {
		release, err := locker.Acquire(ctx, "doc-1")
		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, release)
	}
	assert.Equal(t, 0, locker.Len())
}
