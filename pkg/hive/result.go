package hive

import (
	"context"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/task"
	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
	"github.com/jgarrity-dev/taskhive/pkg/wire"
)

// errorRecord is what gets stored in place of a value when a task body
// raised instead of returning.
type errorRecord struct {
	Error            string `json:"error"`
	RetriesRemaining int    `json:"retries_remaining"`
	Traceback        string `json:"traceback,omitempty"`
}

// resultEnvelope distinguishes a stored success value from a stored error
// record, since both travel through the same KV slot as opaque bytes.
type resultEnvelope struct {
	Kind  string       `json:"kind"`
	Value any          `json:"value,omitempty"`
	Error *errorRecord `json:"error,omitempty"`
}

func (h *Hive) storeValue(ctx context.Context, key string, value any) error {
	data, err := h.serializer.Serialize(resultEnvelope{Kind: "value", Value: value})
	if err != nil {
		return err
	}
	return h.getStorage().PutData(ctx, key, data)
}

func (h *Hive) storeError(ctx context.Context, key string, rec errorRecord) error {
	data, err := h.serializer.Serialize(resultEnvelope{Kind: "error", Error: &rec})
	if err != nil {
		return err
	}
	return h.getStorage().PutData(ctx, key, data)
}

func (h *Hive) getResultValue(ctx context.Context, key string, preserve bool) (any, bool, error) {
	var data []byte
	var present bool
	var err error
	if preserve {
		data, present, err = h.getStorage().PeekData(ctx, key)
	} else {
		data, present, err = h.getStorage().PopData(ctx, key)
	}
	if err != nil || !present {
		return nil, present, err
	}
	var env resultEnvelope
	if err := h.serializer.Deserialize(data, &env); err != nil {
		return nil, true, err
	}
	if env.Kind == "error" {
		return env.Error, true, nil
	}
	return wire.NormalizeNumbers(env.Value), true, nil
}

// Result returns a handle for task id's eventual result, without touching
// storage until Get is called.
func (h *Hive) Result(id string) *Result {
	return newResult(h, &task.Task{ID: id})
}

// Result is a lazily-fetched handle on one task's eventual return value or
// failure, mirroring huey's Result.
type Result struct {
	hive      *Hive
	task      *task.Task
	cached    any
	hasCached bool
}

func newResult(h *Hive, t *task.Task) *Result {
	return &Result{hive: h, task: t}
}

// ID returns the underlying task's ID.
func (r *Result) ID() string { return r.task.ID }

func (r *Result) fetch(ctx context.Context, preserve bool) (any, bool, error) {
	if r.hasCached {
		return r.cached, true, nil
	}
	val, present, err := r.hive.getResultValue(ctx, r.task.ID, preserve)
	if err != nil || !present {
		return nil, present, err
	}
	r.cached = val
	r.hasCached = true
	return val, true, nil
}

func checkErrorRecord(val any) (any, error) {
	if rec, ok := val.(*errorRecord); ok {
		return nil, &taskerrs.TaskException{
			ErrorRepr:        rec.Error,
			RetriesRemaining: rec.RetriesRemaining,
			Traceback:        rec.Traceback,
		}
	}
	return val, nil
}

type getConfig struct {
	blocking        bool
	timeout         time.Duration
	backoff         float64
	maxDelay        time.Duration
	pollDelay       time.Duration
	preserve        bool
	revokeOnTimeout bool
}

// GetOption configures a Result.Get or ResultGroup.Get call.
type GetOption func(*getConfig)

// Blocking makes Get poll the result store until a value appears (or
// timeout elapses, if WithTimeout is also given) instead of returning
// immediately when nothing is there yet.
func Blocking() GetOption { return func(c *getConfig) { c.blocking = true } }

// WithTimeout bounds how long a blocking Get waits before returning
// taskerrs.ErrDataStoreTimeout.
func WithTimeout(d time.Duration) GetOption { return func(c *getConfig) { c.timeout = d } }

// WithBackoff sets the poll-delay multiplier applied after each empty poll
// (default 1.15).
func WithBackoff(f float64) GetOption { return func(c *getConfig) { c.backoff = f } }

// WithMaxDelay caps the poll delay a blocking Get will back off to
// (default 1s).
func WithMaxDelay(d time.Duration) GetOption { return func(c *getConfig) { c.maxDelay = d } }

// Preserve leaves the result in storage after reading it instead of
// consuming it.
func Preserve() GetOption { return func(c *getConfig) { c.preserve = true } }

// RevokeOnTimeout revokes the underlying task (once) if a blocking Get
// times out, so a late-arriving result does not also run to completion.
func RevokeOnTimeout() GetOption { return func(c *getConfig) { c.revokeOnTimeout = true } }

func newGetConfig(opts []GetOption) getConfig {
	cfg := getConfig{backoff: 1.15, maxDelay: time.Second, pollDelay: 100 * time.Millisecond}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Get fetches the task's result. Without Blocking, it returns immediately —
// (nil, nil) if nothing is stored yet. With Blocking, it polls with
// exponential backoff (start 100ms, ×1.15, capped at 1s by default) until a
// value appears or, if WithTimeout was given, the timeout elapses.
func (r *Result) Get(ctx context.Context, opts ...GetOption) (any, error) {
	cfg := newGetConfig(opts)

	if !cfg.blocking {
		val, present, err := r.fetch(ctx, cfg.preserve)
		if err != nil || !present {
			return nil, err
		}
		return checkErrorRecord(val)
	}

	start := time.Now()
	delay := cfg.pollDelay
	for {
		val, present, err := r.fetch(ctx, cfg.preserve)
		if err != nil {
			return nil, err
		}
		if present {
			return checkErrorRecord(val)
		}
		if cfg.timeout > 0 && time.Since(start) >= cfg.timeout {
			if cfg.revokeOnTimeout {
				_ = r.Revoke(ctx, true)
			}
			return nil, taskerrs.ErrDataStoreTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.backoff)
		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
	}
}

// Revoke suppresses this specific task instance.
func (r *Result) Revoke(ctx context.Context, revokeOnce bool) error {
	return r.hive.Revoke(ctx, r.task, nil, revokeOnce)
}

// Restore clears an instance-level revocation on this task.
func (r *Result) Restore(ctx context.Context) (bool, error) {
	return r.hive.Restore(ctx, r.task)
}

// IsRevoked reports whether this task instance (or its class) is currently
// revoked as of now.
func (r *Result) IsRevoked(ctx context.Context, now time.Time) (bool, error) {
	return r.hive.IsRevoked(ctx, r.task, now, true)
}

// Reschedule revokes this invocation once and enqueues a fresh copy of the
// same task, due at eta (or now+delay, if eta is nil), returning its Result.
func (r *Result) Reschedule(ctx context.Context, eta *time.Time, delay *time.Duration) (*Result, error) {
	if err := r.Revoke(ctx, true); err != nil {
		return nil, err
	}
	next := task.New(r.task.Class, r.task.Args, r.task.Kwargs)
	next.Retries = r.task.Retries
	next.RetryDelay = r.task.RetryDelay
	switch {
	case eta != nil:
		next.ETA = eta
	case delay != nil:
		at := r.hive.now().Add(*delay)
		next.ETA = &at
	}
	rg, err := r.hive.Enqueue(ctx, next)
	if err != nil {
		return nil, err
	}
	return rg.Single(), nil
}

// Reset clears any cached value so the next Get re-reads storage.
func (r *Result) Reset() {
	r.hasCached = false
	r.cached = nil
}

// ResultGroup is the handle returned for a chain of tasks (a task and the
// on_complete continuations attached to it via Task.Then), one Result per
// link in chain order.
type ResultGroup struct {
	results []*Result
}

// Get fetches every result in the group, in chain order, stopping at the
// first error.
func (g *ResultGroup) Get(ctx context.Context, opts ...GetOption) ([]any, error) {
	values := make([]any, 0, len(g.results))
	for _, r := range g.results {
		val, err := r.Get(ctx, opts...)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
	}
	return values, nil
}

// Single returns the first (head) Result in the group, or nil if the group
// is empty or nil.
func (g *ResultGroup) Single() *Result {
	if g == nil || len(g.results) == 0 {
		return nil
	}
	return g.results[0]
}

// Results returns every Result in the group, in chain order.
func (g *ResultGroup) Results() []*Result { return g.results }

// Len reports how many Results are in the group.
func (g *ResultGroup) Len() int { return len(g.results) }
