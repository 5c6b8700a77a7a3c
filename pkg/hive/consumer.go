package hive

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jgarrity-dev/taskhive/pkg/wire"
)

// ConsumerOptions configures a Consumer built by CreateConsumer.
type ConsumerOptions struct {
	// Workers is the number of concurrent dequeue-execute goroutines.
	// Defaults to 1.
	Workers int
	// SchedulerInterval is how often the schedule/periodic drain ticks.
	// Defaults to 1s.
	SchedulerInterval time.Duration
}

// Consumer is the process-level front end around RunConsumer/RunScheduler:
// the worker-pool supervisor contract create_consumer(options) describes.
// OS signal handling and metrics wiring belong to the command-line front
// end that constructs one, not here.
type Consumer struct {
	hive *Hive
	opts ConsumerOptions
}

// CreateConsumer returns a Consumer ready to Run.
func (h *Hive) CreateConsumer(opts ConsumerOptions) *Consumer {
	return &Consumer{hive: h, opts: opts}
}

// Run starts the scheduler loop and opts.Workers dequeue-execute workers,
// blocking until ctx is canceled or a worker's storage driver reports a
// hard error.
func (c *Consumer) Run(ctx context.Context) error {
	workers := c.opts.Workers
	if workers <= 0 {
		workers = 1
	}
	interval := c.opts.SchedulerInterval
	if interval <= 0 {
		interval = time.Second
	}

	c.hive.RunStartupHooks()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.hive.RunScheduler(ctx, interval)

	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.hive.RunConsumer(ctx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case errCh <- err:
				default:
				}
				cancel()
			}
		}()
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// RunConsumer repeatedly dequeues and executes one message at a time until
// ctx is canceled or the storage driver returns a hard error.
func (h *Hive) RunConsumer(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ran, err := h.DequeueAndExecute(ctx)
		if err != nil {
			return err
		}
		if !ran {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}
	}
}

// DequeueAndExecute pulls one message off the queue and executes it,
// reporting false (with no error) if the queue was empty. A message that
// fails to deserialize or names an unregistered class is logged and
// dropped rather than treated as a hard error.
func (h *Hive) DequeueAndExecute(ctx context.Context) (bool, error) {
	data, ok, err := h.getStorage().Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	var msg wire.Message
	if err := h.serializer.Deserialize(data, &msg); err != nil {
		h.log.Error().Err(err).Msg("failed to deserialize dequeued message")
		return true, nil
	}
	msg.Normalize()
	t, err := h.registry.CreateTask(&msg)
	if err != nil {
		h.log.Error().Err(err).Str("class", msg.Class).Msg("dropping message for unregistered task class")
		return true, nil
	}

	if _, err := h.Execute(ctx, t, h.now()); err != nil {
		h.log.Error().Err(err).Str("task", t.String()).Msg("task execution returned an error")
	}
	return true, nil
}
