package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverAsError(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		fn := func() (err error) {
			defer RecoverAsError(&err)
			panic("test panic")
		}

		err := fn()
		var panicErr *PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "test panic", panicErr.Value)
		assert.NotEmpty(t, panicErr.StackTrace)
		assert.Equal(t, "panic: test panic", err.Error())
	})

	t.Run("preserves original error", func(t *testing.T) {
		original := errors.New("original error")
		fn := func() (err error) {
			defer RecoverAsError(&err)
			return original
		}
		assert.Same(t, original, fn())
	})
}

func TestRecoverWithCallback(t *testing.T) {
	var captured error
	func() {
		defer RecoverWithCallback(func(err error) { captured = err })
		panic("callback test")
	}()
	var panicErr *PanicError
	assert.ErrorAs(t, captured, &panicErr)

	assert.NotPanics(t, func() {
		defer RecoverWithCallback(nil)
		panic("nil callback")
	})
}

func TestSafeGo(t *testing.T) {
	errCh := make(chan error, 1)
	SafeGo(func() { panic("safe go panic") }, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		var panicErr *PanicError
		assert.ErrorAs(t, err, &panicErr)
	case <-time.After(time.Second):
		t.Fatal("error handler was not called")
	}
}

func TestSemaphoreGatherBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	work := func() error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	fns := make([]func() error, 12)
	for i := range fns {
		fns[i] = work
	}

	errs := SemaphoreGather(context.Background(), 3, fns...)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestSemaphoreGatherCollectsErrorsAndPanics(t *testing.T) {
	boom := errors.New("boom")
	errs := SemaphoreGather(context.Background(), 2,
		func() error { return nil },
		func() error { return boom },
		func() error { panic("worker panic") },
	)
	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	var panicErr *PanicError
	assert.ErrorAs(t, errs[2], &panicErr)
}

func TestSemaphoreGatherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	exec := NewConcurrentExecutor(1)
	exec.semaphore <- struct{}{}
	go func() {
		<-release
		<-exec.semaphore
	}()
	defer close(release)

	errs := exec.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestBatch(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Batch([]int{1, 2, 3, 4, 5}, 2))
	assert.Nil(t, Batch([]int{}, 2))
	assert.Len(t, Batch(make([]int, 25), 0), 3)
}

func TestSemaphoreLimit(t *testing.T) {
	t.Setenv("BLOCKGRAPH_SEMAPHORE_LIMIT", "")
	assert.Equal(t, DefaultSemaphoreLimit, SemaphoreLimit())
	t.Setenv("BLOCKGRAPH_SEMAPHORE_LIMIT", "3")
	assert.Equal(t, 3, SemaphoreLimit())
	t.Setenv("BLOCKGRAPH_SEMAPHORE_LIMIT", "-1")
	assert.Equal(t, DefaultSemaphoreLimit, SemaphoreLimit())
}
