// Package metrics provides the optional Prometheus instrumentation layer
// described in SPEC_FULL.md §4.10. It is wired through the dispatcher's
// existing hook/signal surface rather than living inside the execute path,
// so a consumer that never imports this package pays nothing for it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors bundles every gauge/counter/histogram this package exposes.
// Construct one with New and update its collectors from hooks and signal
// receivers.
type Collectors struct {
	TasksProcessed *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	QueueDepth     *prometheus.GaugeVec
	QueueLatency   *prometheus.HistogramVec
}

// New registers the collectors against reg (the global registry if reg is
// nil) and returns them.
func New(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collectors{
		TasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhive_tasks_processed_total",
			Help: "Total number of tasks that finished executing, by terminal status.",
		}, []string{"status", "class"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhive_task_duration_seconds",
			Help:    "Duration of task body execution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"class"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taskhive_queue_depth",
			Help: "Number of items currently waiting in each queue.",
		}, []string{"queue"}),
		QueueLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhive_queue_latency_seconds",
			Help:    "Time a task spent queued or scheduled before execution began.",
			Buckets: prometheus.DefBuckets,
		}, []string{"class"}),
	}
}
