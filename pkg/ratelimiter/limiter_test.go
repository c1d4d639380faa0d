package ratelimiter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterEnforcesMinInterval(t *testing.T) {
	l := New(10, 1) // 100ms between calls
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := l.Acquire(ctx)
		require.NoError(t, err)
		release()
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := New(1000, 2)
	ctx := context.Background()

	var inFlight int32
	var maxObserved int32
	done := make(chan struct{})

	for i := 0; i < 6; i++ {
		go func() {
			err := l.Do(ctx, func() error {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					observed := atomic.LoadInt32(&maxObserved)
					if cur <= observed || atomic.CompareAndSwapInt32(&maxObserved, observed, cur) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&maxObserved), int32(2))
}

func TestLimiterRespectsContextCancellation(t *testing.T) {
	l := New(1, 1)
	ctx := context.Background()

	release, err := l.Acquire(ctx)
	require.NoError(t, err)
	defer release()

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(cancelCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterCloseRejectsFurtherAcquire(t *testing.T) {
	l := New(100, 1)
	l.Close()

	_, err := l.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBatchLimiterAllowsBurstThenThrottles(t *testing.T) {
	b := NewBatch(5, 5, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := b.Acquire(ctx)
		require.NoError(t, err)
		release()
	}
	burstElapsed := time.Since(start)
	assert.Less(t, burstElapsed, 50*time.Millisecond)

	release, err := b.Acquire(ctx)
	require.NoError(t, err)
	release()
	totalElapsed := time.Since(start)
	assert.GreaterOrEqual(t, totalElapsed, 100*time.Millisecond)
}

func TestRegistryCachesLimitersPerKind(t *testing.T) {
	reg := NewRegistry(map[Kind]Config{
		KindLighthouse: {RatePerSecond: 2, MaxConcurrent: 2},
	})

	first := reg.Limiter(KindLighthouse)
	second := reg.Limiter(KindLighthouse)
	assert.Same(t, first, second)

	batch := reg.Batch(KindLLM)
	require.NotNil(t, batch)

	reg.Reset()
	third := reg.Limiter(KindLighthouse)
	assert.NotSame(t, first, third)
}
