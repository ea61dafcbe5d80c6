package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLocker_SerializesSameKey(t *testing.T) {
	locker := NewInMemoryLocker()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "billing:sequence:t1")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Empty(t, locker.locks, "idle keys are released")
}

func TestInMemoryLocker_IndependentKeys(t *testing.T) {
	locker := NewInMemoryLocker()

	unlockA, err := locker.Lock(context.Background(), "billing:invoice:t1:a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "billing:invoice:t1:b")
	require.NoError(t, err)
	unlockB()
}

func TestInMemoryLocker_TimesOut(t *testing.T) {
	locker := NewInMemoryLocker()

	unlock, err := locker.Lock(context.Background(), "billing:invoice:t1:a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "billing:invoice:t1:a")

	require.ErrorIs(t, err, ErrLockNotAcquired)

	unlock()
	unlock()
	assert.Empty(t, locker.locks)
}
