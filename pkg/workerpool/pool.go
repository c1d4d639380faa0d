// Package workerpool provides a small generic fan-out helper: submit N
// items, run them through a worker function under a fixed concurrency
// cap, collect results. Grounded on the goroutine + channel +
// sync.WaitGroup shape of the teacher's queue worker pool
// (pkg/queue/pool.go), stripped down to a single-shot batch instead of a
// long-lived polling pool.
package workerpool

import "sync"

// Run processes items with at most concurrency workers running fn
// simultaneously. fn is called once per item; results preserve the
// input order. A panic or error in one item's fn never affects another
// item's result — callers fold errors into their own result type.
func Run[T any, R any](items []T, concurrency int, fn func(item T) R) []R {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]R, len(items))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(item)
		}(i, item)
	}

	wg.Wait()
	return results
}
