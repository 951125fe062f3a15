package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsConfiguredSizeAndStopsOnCancel(t *testing.T) {
	var calls int64
	p := &Pool{Size: 3, Name: "test"}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx, func(ctx context.Context, workerID int) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(time.Millisecond)
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after cancellation")
	}

	if atomic.LoadInt64(&calls) == 0 {
		t.Fatal("expected the worker body to run at least once")
	}
}

func TestPoolDefaultsToSizeOneWhenUnset(t *testing.T) {
	var calls int64
	p := &Pool{Name: "test-default"}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx, func(ctx context.Context, workerID int) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(time.Millisecond)
		})
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after cancellation")
	}
	if atomic.LoadInt64(&calls) == 0 {
		t.Fatal("expected the default single worker to run at least once")
	}
}
