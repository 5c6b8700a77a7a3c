package hive

import (
	"context"
	"fmt"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/task"
	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
)

// TaskWrapper is the handle returned by Hive.Task/PeriodicTask: the surface
// callers use to enqueue, schedule, map over, or directly invoke a
// registered task class, mirroring huey's TaskWrapper.
type TaskWrapper struct {
	hive       *Hive
	class      string
	retries    int
	retryDelay time.Duration
}

// TaskOption configures defaults applied to every Task a TaskWrapper builds.
type TaskOption func(*TaskWrapper)

// WithRetries sets the default retry count for invocations of this class.
func WithRetries(n int) TaskOption { return func(w *TaskWrapper) { w.retries = n } }

// WithRetryDelay sets the default delay between retry attempts.
func WithRetryDelay(d time.Duration) TaskOption { return func(w *TaskWrapper) { w.retryDelay = d } }

// Class returns the registered task class name.
func (w *TaskWrapper) Class() string { return w.class }

// S builds a Task instance for this class carrying args/kwargs and the
// wrapper's configured retry defaults, without enqueuing it.
func (w *TaskWrapper) S(args []any, kwargs map[string]any) *task.Task {
	t := task.New(w.class, args, kwargs)
	t.Retries = w.retries
	t.RetryDelay = w.retryDelay
	return t
}

// Call builds and immediately enqueues an invocation, returning the head
// task's Result.
func (w *TaskWrapper) Call(ctx context.Context, args []any, kwargs map[string]any) (*Result, error) {
	rg, err := w.hive.Enqueue(ctx, w.S(args, kwargs))
	if err != nil {
		return nil, err
	}
	return rg.Single(), nil
}

// Schedule builds an invocation due at eta (or now+delay, if eta is nil),
// optionally pinning its ID, and enqueues it.
func (w *TaskWrapper) Schedule(ctx context.Context, args []any, kwargs map[string]any, eta *time.Time, delay *time.Duration, id string) (*Result, error) {
	t := w.S(args, kwargs)
	if id != "" {
		t.ID = id
	}
	switch {
	case eta != nil:
		t.ETA = eta
	case delay != nil:
		at := w.hive.now().Add(*delay)
		t.ETA = &at
	}
	rg, err := w.hive.Enqueue(ctx, t)
	if err != nil {
		return nil, err
	}
	return rg.Single(), nil
}

// Map enqueues one invocation per item in items (each item is the positional
// argument list for that invocation) and returns a ResultGroup covering all
// of them.
func (w *TaskWrapper) Map(ctx context.Context, items [][]any) (*ResultGroup, error) {
	results := make([]*Result, 0, len(items))
	for _, args := range items {
		rg, err := w.hive.Enqueue(ctx, w.S(args, nil))
		if err != nil {
			return nil, err
		}
		results = append(results, rg.Single())
	}
	return &ResultGroup{results: results}, nil
}

// CallLocal invokes the registered executor directly, bypassing the broker
// entirely (no signals, no result storage, no retry/chain handling).
func (w *TaskWrapper) CallLocal(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	ex, ok := w.hive.registry.Lookup(w.class)
	if !ok {
		return nil, fmt.Errorf("%w: %q", taskerrs.ErrUnknownTask, w.class)
	}
	return ex.Execute(ctx, w.S(args, kwargs))
}

// Revoke suppresses every future invocation of this class until restored
// (revokeUntil nil) or until revokeUntil (revokeUntil non-nil), or for a
// single dequeue if revokeOnce is set.
func (w *TaskWrapper) Revoke(ctx context.Context, revokeUntil *time.Time, revokeOnce bool) error {
	return w.hive.RevokeAll(ctx, w.class, revokeUntil, revokeOnce)
}

// Restore clears a class-level revocation, reporting whether one was set.
func (w *TaskWrapper) Restore(ctx context.Context) (bool, error) {
	return w.hive.RestoreAll(ctx, w.class)
}

// IsRevoked reports whether this class is currently revoked as of now.
func (w *TaskWrapper) IsRevoked(ctx context.Context, now time.Time) (bool, error) {
	return w.hive.IsClassRevoked(ctx, w.class, now, true)
}
