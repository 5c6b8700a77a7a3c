// Package main implements the taskhive consumer process: it dequeues tasks
// from Redis, executes them, and exposes Prometheus metrics.
//
// Features:
//   - Concurrent dequeue-execute workers with graceful shutdown
//   - Prometheus metrics exposed on :8080/metrics
//   - Background scheduler draining due scheduled and periodic tasks
//
// Usage:
//
//	go run cmd/consumer/main.go
//
// The consumer connects to Redis at localhost:6379 and exposes metrics at
// localhost:8080.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jgarrity-dev/taskhive/internal/demotasks"
	"github.com/jgarrity-dev/taskhive/pkg/hive"
	"github.com/jgarrity-dev/taskhive/pkg/logger"
	"github.com/jgarrity-dev/taskhive/pkg/metrics"
	"github.com/jgarrity-dev/taskhive/pkg/signalbus"
	"github.com/jgarrity-dev/taskhive/pkg/storage"
	"github.com/jgarrity-dev/taskhive/pkg/task"
)

// wireMetrics connects collectors to h's signal bus: Enqueued timestamps
// per task ID feed queue-latency at Executing, and Complete/Error feed the
// processed counter. The per-task start-time maps are pruned as each id is
// consumed, so they never grow past the number of in-flight tasks.
func wireMetrics(h *hive.Hive, c *metrics.Collectors) {
	var enqueuedAt sync.Map
	var executingAt sync.Map

	h.Signal("metrics", func(kind signalbus.Kind, t *task.Task, extra any) {
		switch kind {
		case signalbus.Enqueued:
			enqueuedAt.Store(t.ID, time.Now())
		case signalbus.Executing:
			executingAt.Store(t.ID, time.Now())
			if v, ok := enqueuedAt.LoadAndDelete(t.ID); ok {
				c.QueueLatency.WithLabelValues(t.Class).Observe(time.Since(v.(time.Time)).Seconds())
			}
		case signalbus.Complete:
			c.TasksProcessed.WithLabelValues("success", t.Class).Inc()
			observeDuration(c, t, &executingAt)
		case signalbus.Error:
			c.TasksProcessed.WithLabelValues("error", t.Class).Inc()
			observeDuration(c, t, &executingAt)
		case signalbus.Retrying:
			c.TasksProcessed.WithLabelValues("retry", t.Class).Inc()
		case signalbus.Locked:
			c.TasksProcessed.WithLabelValues("locked", t.Class).Inc()
			executingAt.Delete(t.ID)
		case signalbus.Canceled:
			executingAt.Delete(t.ID)
		case signalbus.Revoked:
			c.TasksProcessed.WithLabelValues("revoked", t.Class).Inc()
			enqueuedAt.Delete(t.ID)
		}
	})
}

func observeDuration(c *metrics.Collectors, t *task.Task, executingAt *sync.Map) {
	if v, ok := executingAt.LoadAndDelete(t.ID); ok {
		c.TaskDuration.WithLabelValues(t.Class).Observe(time.Since(v.(time.Time)).Seconds())
	}
}

func collectQueueDepths(ctx context.Context, h *hive.Hive, c *metrics.Collectors) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pending, err := h.PendingCount(ctx); err == nil {
				c.QueueDepth.WithLabelValues("queue").Set(float64(pending))
			}
			if scheduled, err := h.ScheduledCount(ctx); err == nil {
				c.QueueDepth.WithLabelValues("schedule").Set(float64(scheduled))
			}
		}
	}
}

func main() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	store := storage.NewRedis("taskhive", rdb, 5*time.Second)

	h, err := hive.New("taskhive", hive.WithStorage(store))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to construct hive")
	}
	demotasks.Register(h)

	collectors := metrics.New(nil)
	wireMetrics(h, collectors)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		logger.Log.Info().Msg("metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			logger.Log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	go collectQueueDepths(ctx, h, collectors)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Log.Info().Msg("shutting down consumer")
		cancel()
	}()

	logger.Log.Info().Msg("consumer started, waiting for tasks")

	consumer := h.CreateConsumer(hive.ConsumerOptions{Workers: 4, SchedulerInterval: time.Second})
	if err := consumer.Run(ctx); err != nil && err != context.Canceled {
		logger.Log.Error().Err(err).Msg("consumer exited with error")
	}
}
