package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		pool.Submit(ctx, i)
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job string) error {
		processed.Add(1)
		return nil
	}

	pool := NewPool(4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 100; i++ {
		go func() {
			pool.Submit(ctx, "job")
		}()
	}

	time.Sleep(100 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewPool(2, 50, processor)

	ctx := context.Background()
	pool.Start(ctx)

	for i := 0; i < 10; i++ {
		pool.Submit(ctx, i)
	}

	// Stop drains the queue before returning.
	pool.Stop()

	if processed.Load() != 10 {
		t.Errorf("expected 10 jobs processed after Stop, got %d", processed.Load())
	}
}

func TestPool_SubmitUnblocksOnCancel(t *testing.T) {
	processor := func(ctx context.Context, job int) error {
		<-ctx.Done()
		return nil
	}

	pool := NewPool(1, 1, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	// One job occupies the worker, one fills the buffer.
	pool.Submit(ctx, 1)
	pool.Submit(ctx, 2)

	done := make(chan bool, 1)
	go func() {
		done <- pool.Submit(ctx, 3)
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected Submit to report false after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit still blocked after cancel")
	}

	pool.Stop()
}
