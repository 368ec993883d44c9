package utils

import (
	"context"
	"os"
	"strconv"
	"sync"
)

// DefaultSemaphoreLimit is used when BLOCKGRAPH_SEMAPHORE_LIMIT is unset or invalid.
const DefaultSemaphoreLimit = 8

// SemaphoreLimit returns BLOCKGRAPH_SEMAPHORE_LIMIT or DefaultSemaphoreLimit.
func SemaphoreLimit() int {
	val := os.Getenv("BLOCKGRAPH_SEMAPHORE_LIMIT")
	if val == "" {
		return DefaultSemaphoreLimit
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return DefaultSemaphoreLimit
	}
	return limit
}

// ConcurrentExecutor runs functions with at most a fixed number in flight.
type ConcurrentExecutor struct {
	semaphore chan struct{}
}

// NewConcurrentExecutor returns an executor; a non-positive limit uses SemaphoreLimit.
func NewConcurrentExecutor(maxConcurrency int) *ConcurrentExecutor {
	if maxConcurrency <= 0 {
		maxConcurrency = SemaphoreLimit()
	}
	return &ConcurrentExecutor{semaphore: make(chan struct{}, maxConcurrency)}
}

// Execute runs every function and returns their errors by index. Functions still
// waiting for a slot when ctx is cancelled report ctx.Err(). Panics become *PanicError.
func (e *ConcurrentExecutor) Execute(ctx context.Context, functions ...func() error) []error {
	if len(functions) == 0 {
		return nil
	}

	results := make([]error, len(functions))
	var wg sync.WaitGroup
	for i, fn := range functions {
		wg.Add(1)
		go func(index int, function func() error) {
			defer wg.Done()
			defer RecoverWithCallback(func(err error) {
				results[index] = err
			})

			select {
			case e.semaphore <- struct{}{}:
				defer func() { <-e.semaphore }()
			case <-ctx.Done():
				results[index] = ctx.Err()
				return
			}
			results[index] = function()
		}(i, fn)
	}
	wg.Wait()
	return results
}

// SemaphoreGather runs functions with a fresh executor of the given limit.
func SemaphoreGather(ctx context.Context, maxConcurrency int, functions ...func() error) []error {
	return NewConcurrentExecutor(maxConcurrency).Execute(ctx, functions...)
}

// Batch splits items into consecutive slices of at most batchSize.
func Batch[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = 10
	}
	var batches [][]T
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}
