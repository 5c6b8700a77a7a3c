package hive

import (
	"context"

	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
)

// TaskLock is a named mutual-exclusion lock backed by the same storage the
// dispatcher uses for results, mirroring huey's TaskLock / lock_task.
type TaskLock struct {
	hive *Hive
	name string
	key  string
}

// LockTask returns a TaskLock named name, scoped to this Hive.
func (h *Hive) LockTask(name string) *TaskLock {
	key := h.name + ".lock." + name
	h.locksMu.Lock()
	h.locks[key] = struct{}{}
	h.locksMu.Unlock()
	return &TaskLock{hive: h, name: name, key: key}
}

// Acquire takes the lock, returning a *taskerrs.TaskLockedError if it is
// already held.
func (l *TaskLock) Acquire(ctx context.Context) error {
	stored, err := l.hive.getStorage().PutIfEmpty(ctx, l.key, []byte("1"))
	if err != nil {
		return err
	}
	if !stored {
		return taskerrs.NewTaskLocked(l.name)
	}
	return nil
}

// Release frees the lock unconditionally.
func (l *TaskLock) Release(ctx context.Context) error {
	_, _, err := l.hive.getStorage().PopData(ctx, l.key)
	return err
}

// Do acquires the lock, runs fn, and releases the lock regardless of fn's
// outcome. If the lock is already held, fn does not run and the
// TaskLockedError is returned.
func (l *TaskLock) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release(ctx)
	return fn()
}

// FlushLocks reports which locks registered via LockTask are currently held.
func (h *Hive) FlushLocks(ctx context.Context) ([]string, error) {
	h.locksMu.Lock()
	keys := make([]string, 0, len(h.locks))
	for k := range h.locks {
		keys = append(keys, k)
	}
	h.locksMu.Unlock()

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		_, present, err := h.getStorage().PeekData(ctx, k)
		if err != nil {
			return nil, err
		}
		if present {
			held = append(held, k)
		}
	}
	return held, nil
}
