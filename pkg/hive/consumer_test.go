package hive

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/registry"
	"github.com/jgarrity-dev/taskhive/pkg/storage"
	"github.com/jgarrity-dev/taskhive/pkg/task"
)

func TestConsumer_RunExecutesQueuedTasksAcrossWorkers(t *testing.T) {
	h, err := New("consumer-test", WithStorage(storage.NewMemory()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var processed atomic.Int64
	w := h.Task("work", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		processed.Add(1)
		return nil, nil
	}))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := w.Call(ctx, nil, nil); err != nil {
			t.Fatalf("Call: %v", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	consumer := h.CreateConsumer(ConsumerOptions{Workers: 3, SchedulerInterval: 10 * time.Millisecond})
	done := make(chan struct{})
	go func() {
		_ = consumer.Run(runCtx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for processed.Load() < 5 {
		select {
		case <-deadline:
			t.Fatalf("processed = %d after deadline, want 5", processed.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Consumer.Run did not return after context cancellation")
	}
}

func TestHive_RunConsumer_StopsOnContextCancel(t *testing.T) {
	h, err := New("run-consumer-test", WithStorage(storage.NewMemory()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunConsumer(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected RunConsumer to return ctx.Err() on cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("RunConsumer did not return after context cancellation")
	}
}
