package hive

import (
	"context"
	"errors"
	"testing"

	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
)

func TestTaskLock_SecondAcquireFailsWhileHeld(t *testing.T) {
	h := newImmediateHive(t)
	ctx := context.Background()
	lock := h.LockTask("critical-section")

	if err := lock.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	other := h.LockTask("critical-section")
	err := other.Acquire(ctx)
	if err == nil || !taskerrs.IsTaskLocked(err) {
		t.Fatalf("second Acquire = %v, want a TaskLockedError", err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := other.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
}

func TestTaskLock_DoReleasesEvenOnError(t *testing.T) {
	h := newImmediateHive(t)
	ctx := context.Background()
	lock := h.LockTask("do-section")

	boom := errors.New("boom")
	err := lock.Do(ctx, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Do = %v, want boom", err)
	}

	if err := lock.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after Do returned an error: %v (lock should have been released)", err)
	}
}

func TestFlushLocks_ReportsOnlyHeldLocks(t *testing.T) {
	h := newImmediateHive(t)
	ctx := context.Background()
	held := h.LockTask("held")
	free := h.LockTask("free")
	_ = free

	if err := held.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	keys, err := h.FlushLocks(ctx)
	if err != nil {
		t.Fatalf("FlushLocks: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("FlushLocks = %v, want exactly one held lock", keys)
	}
}
