package hive

import (
	"context"
	"errors"
	"testing"

	"github.com/jgarrity-dev/taskhive/pkg/registry"
	"github.com/jgarrity-dev/taskhive/pkg/task"
)

func newImmediateHive(t *testing.T) *Hive {
	t.Helper()
	h, err := New("test-"+t.Name(), WithImmediate(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestExecute_RetriesOnFailureUntilBudgetExhausted(t *testing.T) {
	h := newImmediateHive(t)
	attempts := 0
	w := h.Task("flaky", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		attempts++
		return nil, errors.New("boom")
	}), WithRetries(2))

	res, err := w.Call(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	_, getErr := res.Get(context.Background())
	if getErr == nil {
		t.Fatal("expected a stored TaskException after retries are exhausted")
	}

	// 1 initial attempt + 2 retries = 3 total invocations.
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (1 initial + 2 retries)", attempts)
	}
}

func TestExecute_ChainPassesResultThroughExtendData(t *testing.T) {
	h := newImmediateHive(t)
	h.Task("double", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		n := tk.Args[0].(int)
		return n * 2, nil
	}))
	h.Task("increment", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		n := tk.Args[0].(int)
		return n + 1, nil
	}))

	first := task.New("double", []any{21}, nil)
	second := task.New("increment", nil, nil)
	first.Then(second)

	rg, err := h.Enqueue(context.Background(), first)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if rg.Len() != 2 {
		t.Fatalf("ResultGroup.Len() = %d, want 2", rg.Len())
	}

	results := rg.Results()
	headVal, err := results[0].Get(context.Background())
	if err != nil || headVal != int64(42) {
		t.Fatalf("head result = %v,%v, want 42,nil", headVal, err)
	}
	tailVal, err := results[1].Get(context.Background())
	if err != nil || tailVal != int64(43) {
		t.Fatalf("tail result = %v,%v, want 43,nil", tailVal, err)
	}
}

func TestExecute_OnErrorChainRunsOnFailure(t *testing.T) {
	h := newImmediateHive(t)
	h.Task("fails", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		return nil, errors.New("kaboom")
	}))
	var handledWith string
	h.Task("handler", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		if len(tk.Args) > 0 {
			if e, ok := tk.Args[0].(error); ok {
				handledWith = e.Error()
			}
		}
		return nil, nil
	}))

	primary := task.New("fails", nil, nil)
	handler := task.New("handler", nil, nil)
	primary.OnErrorThen(handler)

	if _, err := h.Enqueue(context.Background(), primary); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if handledWith != "kaboom" {
		t.Fatalf("handledWith = %q, want the failing task's error text appended as an arg", handledWith)
	}
}

func TestExecute_PeriodicTaskResultIsNeverStored(t *testing.T) {
	h := newImmediateHive(t)
	w := h.Task("tick", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		return "tock", nil
	}))

	t2 := w.S(nil, nil)
	t2.Periodic = true
	if _, err := h.Enqueue(context.Background(), t2); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	count, err := h.ResultCount(context.Background())
	if err != nil {
		t.Fatalf("ResultCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("ResultCount() = %d, want 0 for a periodic task", count)
	}
}
