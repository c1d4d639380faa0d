// Package ratelimiter bounds outbound call rates to external APIs
// (PageSpeed Insights, Search Console, the LLM provider) that enforce
// their own per-second and per-concurrency quotas. It ports the
// token-bucket-plus-semaphore design used for Python's API clients to
// Go's goroutine/channel idiom: a counting semaphore via a buffered
// channel bounds concurrency, and a token bucket refilled on a ticker
// bounds throughput.
package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between successive calls plus a
// cap on concurrently in-flight calls. It is the fixed-interval sibling
// of Limiter: evenly spaced requests, no burst allowance.
type Limiter struct {
	minInterval time.Duration
	sem         chan struct{}

	mu            sync.Mutex
	lastRequestAt time.Time

	closed chan struct{}
	once   sync.Once
}

// New builds a Limiter permitting at most ratePerSecond calls per second
// and maxConcurrent calls in flight at once.
func New(ratePerSecond float64, maxConcurrent int) *Limiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Limiter{
		minInterval: time.Duration(float64(time.Second) / ratePerSecond),
		sem:         make(chan struct{}, maxConcurrent),
		closed:      make(chan struct{}),
	}
}

// Acquire blocks until a call slot is available, respecting ctx
// cancellation, and returns a release func the caller must invoke
// exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-l.closed:
		return nil, ErrClosed
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := l.waitInterval(ctx); err != nil {
		<-l.sem
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-l.sem })
	}, nil
}

func (l *Limiter) waitInterval(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(l.lastRequestAt)
	var wait time.Duration
	if elapsed < l.minInterval {
		wait = l.minInterval - elapsed
	}
	l.lastRequestAt = now.Add(wait)
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn under the rate limit, releasing the slot when fn returns.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Close makes all subsequent Acquire calls fail fast with ErrClosed.
// In-flight acquisitions are unaffected.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.closed) })
}

// BatchLimiter is the burst-tolerant sibling: a true token bucket that
// lets a caller spend up to burstSize calls immediately before falling
// back to the steady ratePerSecond refill rate. Suited to discovery's
// sitemap-fetch fan-out, where a handful of requests should not each
// pay the full inter-request delay.
type BatchLimiter struct {
	rate      float64
	burstSize float64
	sem       chan struct{}

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time

	closed chan struct{}
	once   sync.Once
}

// NewBatch builds a BatchLimiter with the given average rate, maximum
// concurrency, and burst allowance.
func NewBatch(ratePerSecond float64, maxConcurrent, burstSize int) *BatchLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if burstSize <= 0 {
		burstSize = 1
	}
	return &BatchLimiter{
		rate:       ratePerSecond,
		burstSize:  float64(burstSize),
		sem:        make(chan struct{}, maxConcurrent),
		tokens:     float64(burstSize),
		lastRefill: time.Now(),
		closed:     make(chan struct{}),
	}
}

func (b *BatchLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.burstSize, b.tokens+elapsed*b.rate)
	b.lastRefill = now
}

// Acquire blocks until both a concurrency slot and a token are
// available, respecting ctx cancellation.
func (b *BatchLimiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-b.closed:
		return nil, ErrClosed
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= 1.0 {
			b.tokens -= 1.0
			b.mu.Unlock()
			break
		}
		wait := time.Duration((1.0 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			<-b.sem
			return nil, ctx.Err()
		case <-b.closed:
			timer.Stop()
			<-b.sem
			return nil, ErrClosed
		}
		timer.Stop()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-b.sem })
	}, nil
}

// Do runs fn under the rate limit, releasing the slot and returning fn's error.
func (b *BatchLimiter) Do(ctx context.Context, fn func() error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Close makes all subsequent Acquire calls fail fast with ErrClosed.
func (b *BatchLimiter) Close() {
	b.once.Do(func() { close(b.closed) })
}
