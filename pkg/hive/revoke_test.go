package hive

import (
	"context"
	"testing"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/registry"
	"github.com/jgarrity-dev/taskhive/pkg/task"
)

func TestRevoke_InstanceOnceSkipsExactlyOneInvocation(t *testing.T) {
	h := newImmediateHive(t)
	runs := 0
	w := h.Task("oncer", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		runs++
		return nil, nil
	}))

	tk := w.S(nil, nil)
	if err := h.Revoke(context.Background(), tk, nil, true); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := h.Enqueue(context.Background(), tk); err != nil {
		t.Fatalf("Enqueue (first, revoked): %v", err)
	}
	if runs != 0 {
		t.Fatalf("runs = %d, want 0 (task should have been skipped as revoked)", runs)
	}

	tk2 := task.New(tk.Class, tk.Args, tk.Kwargs)
	tk2.ID = tk.ID // same instance ID, revoke-once record should now be cleared
	if _, err := h.Enqueue(context.Background(), tk2); err != nil {
		t.Fatalf("Enqueue (second, should run): %v", err)
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1 (revoke-once should not apply a second time)", runs)
	}
}

func TestRevoke_ExpiringRevocationStopsApplyingAfterUntil(t *testing.T) {
	h := newImmediateHive(t)
	runs := 0
	w := h.Task("expiring", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		runs++
		return nil, nil
	}))

	past := time.Now().Add(-time.Minute)
	tk := w.S(nil, nil)
	if err := h.Revoke(context.Background(), tk, &past, false); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := h.Enqueue(context.Background(), tk); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1 (revocation already expired, should run)", runs)
	}
}

func TestRevokeAll_SuppressesEveryInstanceOfClass(t *testing.T) {
	h := newImmediateHive(t)
	runs := 0
	w := h.Task("classwide", registry.ExecutorFunc(func(ctx context.Context, tk *task.Task) (any, error) {
		runs++
		return nil, nil
	}))

	if err := w.Revoke(context.Background(), nil, false); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := w.Call(context.Background(), nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if runs != 0 {
		t.Fatalf("runs = %d, want 0 while class is revoked", runs)
	}

	restored, err := w.Restore(context.Background())
	if err != nil || !restored {
		t.Fatalf("Restore = %v,%v, want true,nil", restored, err)
	}

	if _, err := w.Call(context.Background(), nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1 after restoring the class", runs)
	}
}
