package hive

import (
	"context"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/task"
)

// RunScheduler ticks every interval, draining due scheduled tasks back onto
// the queue and instantiating+enqueueing any periodic task class whose
// predicate matches. It returns when ctx is canceled. Grounded on the
// teacher's ticker-driven (*Client).StartScheduler loop.
func (h *Hive) RunScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := h.now()
			if err := h.drainSchedule(ctx, now); err != nil {
				h.log.Error().Err(err).Msg("failed to drain due scheduled tasks")
			}
			h.drainPeriodic(ctx, now)
		}
	}
}

// drainSchedule moves every schedule entry due at or before now straight
// back onto the queue, unchanged — it is already serialized on the wire.
func (h *Hive) drainSchedule(ctx context.Context, now time.Time) error {
	items, err := h.getStorage().ReadSchedule(ctx, now)
	if err != nil {
		return err
	}
	for _, data := range items {
		if err := h.getStorage().Enqueue(ctx, data); err != nil {
			h.log.Error().Err(err).Msg("failed to re-enqueue due scheduled task")
		}
	}
	return nil
}

func (h *Hive) drainPeriodic(ctx context.Context, now time.Time) {
	for _, class := range h.ReadPeriodic(now) {
		t := task.New(class, nil, nil)
		t.Periodic = true
		if _, err := h.Enqueue(ctx, t); err != nil {
			h.log.Error().Err(err).Str("class", class).Msg("failed to enqueue periodic task")
		}
	}
}
