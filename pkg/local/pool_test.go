package local

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool_TaskExecution(t *testing.T) {
	p := NewPool(context.Background(), 2)

	var called int32
	p.Submit(func(context.Context) error { atomic.AddInt32(&called, 1); return nil })
	p.Submit(func(context.Context) error { atomic.AddInt32(&called, 1); return nil })

	require.NoError(t, p.Close())
	require.Equal(t, int32(2), atomic.LoadInt32(&called))
}

func TestPool_CloseWaitsForLongTask(t *testing.T) {
	p := NewPool(context.Background(), 1)

	var done int32
	p.Submit(func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
		return nil
	})

	require.NoError(t, p.Close())
	require.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestPool_LimitsConcurrency(t *testing.T) {
	p := NewPool(context.Background(), 2)

	var running, peak int32
	for range 8 {
		p.Submit(func(context.Context) error {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		})
	}

	require.NoError(t, p.Close())
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPool_FirstErrorCancelsRest(t *testing.T) {
	p := NewPool(context.Background(), 1)
	boom := errors.New("boom")

	var ran int32
	p.Submit(func(context.Context) error { return boom })
	for range 3 {
		p.Submit(func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
	}

	require.ErrorIs(t, p.Close(), boom)
	require.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestPool_NonPositiveWorkers(t *testing.T) {
	p := NewPool(context.Background(), 0)

	var called int32
	p.Submit(func(context.Context) error { atomic.AddInt32(&called, 1); return nil })
	require.NoError(t, p.Close())
	require.Equal(t, int32(1), called)
}
