// Package metrics exposes Prometheus counters and gauges for the
// queue's job lifecycle, subscribed to the same event bus the admin
// API and any embedding application can observe.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
	"github.com/oznakn/enhanced-embedded-queue/internal/core/queue"
)

// EventSource is the subset of Queue this collector subscribes to.
type EventSource interface {
	On(kind domain.EventKind, handler queue.EventHandler)
}

// Collector accumulates job lifecycle counters and exposes them via
// the standard Prometheus registry.
type Collector struct {
	jobsEnqueued  prometheus.Counter
	jobsStarted   prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsRemoved   prometheus.Counter
	jobDuration   *prometheus.HistogramVec
}

// NewCollector builds and registers a Collector against the default
// registry. Register is idempotent per process: a second Collector in
// the same binary would panic on MustRegister, so callers should keep
// exactly one per Queue.
func NewCollector() *Collector {
	c := &Collector{
		jobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_jobs_enqueued_total",
			Help: "Total number of jobs created.",
		}),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_jobs_started_total",
			Help: "Total number of jobs claimed by a worker.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_jobs_completed_total",
			Help: "Total number of jobs that finished successfully.",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_jobs_failed_total",
			Help: "Total number of jobs that finished in failure.",
		}),
		jobsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_jobs_removed_total",
			Help: "Total number of jobs removed from the repository.",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_job_duration_seconds",
			Help:    "Time from a job's activation to its terminal state, by job type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type", "outcome"}),
	}

	prometheus.MustRegister(
		c.jobsEnqueued,
		c.jobsStarted,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobsRemoved,
		c.jobDuration,
	)

	return c
}

// Attach subscribes the collector to every lifecycle event the source
// publishes.
func (c *Collector) Attach(source EventSource) {
	source.On(domain.EventEnqueue, func(event domain.Event) { c.jobsEnqueued.Inc() })
	source.On(domain.EventStart, func(event domain.Event) { c.jobsStarted.Inc() })
	source.On(domain.EventRemove, func(event domain.Event) { c.jobsRemoved.Inc() })

	source.On(domain.EventComplete, func(event domain.Event) {
		c.jobsCompleted.Inc()
		c.observeDuration(event.Job, "complete")
	})
	source.On(domain.EventFailure, func(event domain.Event) {
		c.jobsFailed.Inc()
		c.observeDuration(event.Job, "failure")
	})
}

func (c *Collector) observeDuration(job *domain.Job, outcome string) {
	if job == nil {
		return
	}
	snap := job.Snapshot()
	if snap.Duration == nil {
		return
	}
	c.jobDuration.WithLabelValues(snap.Type, outcome).Observe(snap.Duration.Seconds())
}

// Handler returns the HTTP handler that serves metrics in Prometheus
// exposition format for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
