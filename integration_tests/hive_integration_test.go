// Package integration_tests exercises the hive dispatcher end to end against
// a real Storage driver, rather than the package-level unit tests that run
// mostly against immediate mode.
package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jgarrity-dev/taskhive/pkg/hive"
	"github.com/jgarrity-dev/taskhive/pkg/registry"
	"github.com/jgarrity-dev/taskhive/pkg/storage"
	"github.com/jgarrity-dev/taskhive/pkg/task"
)

func setupIntegrationHive(t *testing.T) *hive.Hive {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	store := storage.NewRedis("taskhive-integration", rdb, time.Second)

	h, err := hive.New("taskhive-integration", hive.WithStorage(store))
	if err != nil {
		t.Fatalf("hive.New: %v", err)
	}
	return h
}

// TestIntegrationFlow walks a task through the full enqueue -> dequeue ->
// execute -> result-retrieval pipeline against a Redis-backed Hive, mirroring
// the queue-level enqueue/dequeue/ack flow this test used to cover against
// the teacher's bespoke queue client.
func TestIntegrationFlow(t *testing.T) {
	h := setupIntegrationHive(t)
	ctx := context.Background()

	w := h.Task("integration.echo", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		return tk.Kwargs["msg"], nil
	}))

	res, err := w.Call(ctx, nil, map[string]any{"msg": "hello"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	pending, err := h.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if pending != 1 {
		t.Fatalf("PendingCount = %d, want 1 before the consumer drains it", pending)
	}

	ran, err := h.DequeueAndExecute(ctx)
	if err != nil {
		t.Fatalf("DequeueAndExecute failed: %v", err)
	}
	if !ran {
		t.Fatal("expected DequeueAndExecute to find the queued task")
	}

	pending, err = h.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if pending != 0 {
		t.Fatalf("PendingCount = %d, want 0 after the queue drains", pending)
	}

	val, err := res.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "hello" {
		t.Fatalf("Get() = %v, want hello", val)
	}
}

// TestIntegrationFlow_ScheduledTaskWaitsForETA confirms a delayed invocation
// that a consumer dequeues before its ETA is moved into the schedule (not
// run), and sits there until its ETA, then moves onto the queue for the
// consumer to pick up, the same "delayed_queue" promotion the teacher's
// queue.Client handled with its own background promoter.
func TestIntegrationFlow_ScheduledTaskWaitsForETA(t *testing.T) {
	h := setupIntegrationHive(t)
	ctx := context.Background()

	w := h.Task("integration.delayed", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		return "done", nil
	}))

	delay := 50 * time.Millisecond
	if _, err := w.Schedule(ctx, nil, nil, nil, &delay, ""); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	// Enqueue puts the task on the queue; executing it before its ETA is
	// what routes it into the schedule.
	if ran, err := h.DequeueAndExecute(ctx); err != nil || !ran {
		t.Fatalf("DequeueAndExecute = %v,%v, want true,nil", ran, err)
	}

	scheduled, err := h.ScheduledCount(ctx)
	if err != nil || scheduled != 1 {
		t.Fatalf("ScheduledCount = %d,%v, want 1,nil before the ETA arrives", scheduled, err)
	}

	time.Sleep(delay + 20*time.Millisecond)

	drainCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	h.RunScheduler(drainCtx, 10*time.Millisecond)

	pending, err := h.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if pending != 1 {
		t.Fatalf("PendingCount = %d, want 1 once RunScheduler has moved the due task onto the queue", pending)
	}

	scheduled, err = h.ScheduledCount(ctx)
	if err != nil || scheduled != 0 {
		t.Fatalf("ScheduledCount = %d,%v, want 0,nil after the task has been drained", scheduled, err)
	}
}
