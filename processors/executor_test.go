package processor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestExecutorBoundsConcurrency(t *testing.T) {
	executor := NewExecutor(2)
	var running, peak atomic.Int64
	release := make(chan struct{})

	tasks := make([]func(ctx context.Context) error, 0, 6)
	for i := 0; i < 6; i++ {
		tasks = append(tasks, func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil
		})
	}

	done := make(chan error)
	go func() { done <- executor.Run(context.Background(), tasks) }()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestExecutorReturnsFirstError(t *testing.T) {
	executor := NewExecutor(1)
	boom := errors.New("boom")
	var ran atomic.Int64

	tasks := []func(ctx context.Context) error{
		func(ctx context.Context) error { ran.Add(1); return boom },
		func(ctx context.Context) error { ran.Add(1); return nil },
		func(ctx context.Context) error { ran.Add(1); return nil },
	}
	if err := executor.Run(context.Background(), tasks); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if ran.Load() != 1 {
		t.Fatalf("expected tasks after the failure to be skipped, %d ran", ran.Load())
	}
}

func TestNewExecutorDefaults(t *testing.T) {
	if NewExecutor(0).Workers() < 1 {
		t.Fatalf("expected at least one worker")
	}
	if NewExecutor(3).Workers() != 3 {
		t.Fatalf("expected explicit worker count")
	}
}
