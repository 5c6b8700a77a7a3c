package hive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/signalbus"
	"github.com/jgarrity-dev/taskhive/pkg/task"
	"github.com/jgarrity-dev/taskhive/pkg/taskerrs"
)

// Enqueue submits t for execution: immediately, if immediate mode is
// active, otherwise onto the storage broker's queue. It emits Enqueued
// regardless of mode. The returned ResultGroup walks t's on_complete chain
// (one Result per link); Single() gets the head task's Result. If results
// are disabled, both return values are nil.
func (h *Hive) Enqueue(ctx context.Context, t *task.Task) (*ResultGroup, error) {
	h.signals.Send(signalbus.Enqueued, t, nil)

	if h.Immediate() {
		if _, err := h.Execute(ctx, t, h.now()); err != nil {
			return nil, err
		}
	} else {
		data, err := h.serializeTask(t)
		if err != nil {
			return nil, err
		}
		if err := h.getStorage().Enqueue(ctx, data); err != nil {
			return nil, err
		}
	}

	if !h.results {
		return nil, nil
	}
	return h.buildResultGroup(t), nil
}

func (h *Hive) buildResultGroup(t *task.Task) *ResultGroup {
	var results []*Result
	for cur := t; cur != nil; cur = cur.OnComplete {
		results = append(results, newResult(h, cur))
	}
	return &ResultGroup{results: results}
}

// Execute runs t if it is due and not revoked as of now, or reschedules it
// (ReadyToRun) or skips it (IsRevoked) otherwise. Called directly by
// RunConsumer for dequeued messages, and recursively by Enqueue in
// immediate mode.
func (h *Hive) Execute(ctx context.Context, t *task.Task, now time.Time) (any, error) {
	if !h.ReadyToRun(t, now) {
		return nil, h.AddSchedule(ctx, t)
	}

	revoked, err := h.IsRevoked(ctx, t, now, false)
	if err != nil {
		return nil, err
	}
	if revoked {
		h.log.Warn().Str("task", t.String()).Msg("skipping revoked task")
		h.signals.Send(signalbus.Revoked, t, nil)
		return nil, nil
	}

	h.signals.Send(signalbus.Executing, t, nil)
	return h.execute(ctx, t, now)
}

// execute runs the task body (after pre-execute hooks, honoring
// CancelExecution), records the outcome, runs post-execute hooks, enqueues
// any chained continuation, and schedules a retry if one is owed.
func (h *Hive) execute(ctx context.Context, t *task.Task, now time.Time) (any, error) {
	if err := h.runPreExecute(t); err != nil {
		h.signals.Send(signalbus.Canceled, t, nil)
		return nil, nil
	}

	value, execErr := h.invoke(ctx, t)

	if execErr != nil && errors.Is(execErr, context.Canceled) {
		h.log.Warn().Str("task", t.String()).Msg("task execution aborted by context cancellation")
		return nil, nil
	}

	locked := taskerrs.IsTaskLocked(execErr)
	switch {
	case locked:
		h.log.Warn().Err(execErr).Str("task", t.String()).Msg("task is locked, skipping")
		h.signals.Send(signalbus.Locked, t, execErr)
	case execErr != nil:
		if taskerrs.IsRetryTask(execErr) && t.Retries == 0 {
			t.Retries = 1
		}
		h.log.Error().Err(execErr).Str("task", t.String()).Msg("task execution failed")
		h.signals.Send(signalbus.Error, t, execErr)
	default:
		h.log.Info().Str("task", t.String()).Msg("task executed successfully")
		h.signals.Send(signalbus.Complete, t, nil)
	}

	if h.results && !t.Periodic {
		switch {
		case execErr != nil && !locked:
			rec := errorRecord{Error: execErr.Error(), RetriesRemaining: t.Retries}
			if err := h.storeError(ctx, t.ID, rec); err != nil {
				h.log.Error().Err(err).Str("task", t.String()).Msg("failed to store error record")
			}
		case execErr == nil && (value != nil || h.storeNone):
			if err := h.storeValue(ctx, t.ID, value); err != nil {
				h.log.Error().Err(err).Str("task", t.String()).Msg("failed to store result")
			}
		}
	}

	h.runPostExecute(t, value, execErr)

	switch {
	case execErr == nil && t.OnComplete != nil:
		next := t.OnComplete
		next.ExtendData(value)
		if _, err := h.Enqueue(ctx, next); err != nil {
			h.log.Error().Err(err).Str("task", t.String()).Msg("failed to enqueue on_complete continuation")
		}
	case execErr != nil && t.OnError != nil:
		next := t.OnError
		next.ExtendData(execErr)
		if _, err := h.Enqueue(ctx, next); err != nil {
			h.log.Error().Err(err).Str("task", t.String()).Msg("failed to enqueue on_error continuation")
		}
	}

	if execErr != nil && t.Retries > 0 {
		h.signals.Send(signalbus.Retrying, t, execErr)
		if err := h.requeue(ctx, t, now); err != nil {
			h.log.Error().Err(err).Str("task", t.String()).Msg("failed to requeue task for retry")
		}
	}

	// A failing body has already been recorded, signaled and logged above;
	// it is not reported to the caller as an error.
	if execErr != nil {
		return nil, nil
	}
	return value, nil
}

func (h *Hive) invoke(ctx context.Context, t *task.Task) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	ex, ok := h.registry.Lookup(t.Class)
	if !ok {
		return nil, fmt.Errorf("%w: %q", taskerrs.ErrUnknownTask, t.Class)
	}
	return ex.Execute(ctx, t)
}

// requeue decrements t's retry count and either reschedules it for
// RetryDelay from now, or puts it straight back on the queue if no delay
// is configured.
func (h *Hive) requeue(ctx context.Context, t *task.Task, now time.Time) error {
	t.Retries--
	if t.RetryDelay > 0 {
		eta := now.Add(t.RetryDelay)
		t.ETA = &eta
		return h.AddSchedule(ctx, t)
	}
	t.ETA = nil
	_, err := h.Enqueue(ctx, t)
	return err
}
