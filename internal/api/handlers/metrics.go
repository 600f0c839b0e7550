package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
	"github.com/oznakn/enhanced-embedded-queue/internal/observability/metrics"

	"github.com/gin-gonic/gin"
)

// JobLister is the subset of Queue the metrics handler needs for its
// JSON snapshot.
type JobLister interface {
	ListJobs(state *domain.State) ([]*domain.Job, error)
}

// MetricsHandler exposes a Prometheus scrape endpoint alongside a
// human-readable JSON snapshot of current queue depth by state.
type MetricsHandler struct {
	logger    logger.Logger
	jobs      JobLister
	startTime time.Time
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(logger logger.Logger, jobs JobLister) *MetricsHandler {
	return &MetricsHandler{
		logger:    logger.With("handler", "metrics"),
		jobs:      jobs,
		startTime: time.Now(),
	}
}

// Prometheus serves the default registry in exposition format.
func (mh *MetricsHandler) Prometheus() gin.HandlerFunc {
	handler := metrics.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// Snapshot returns a JSON view of queue depth by state and process
// health, for operators who don't run a Prometheus scraper.
func (mh *MetricsHandler) Snapshot(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	depth := map[domain.State]int{}
	all, err := mh.jobs.ListJobs(nil)
	if err != nil {
		mh.logger.Warn("failed to list jobs for metrics snapshot", "error", err)
	}
	for _, job := range all {
		depth[job.State()]++
	}

	c.JSON(http.StatusOK, gin.H{
		"system": gin.H{
			"goroutines":   runtime.NumGoroutine(),
			"memory_alloc": m.Alloc,
			"memory_sys":   m.Sys,
			"gc_cycles":    m.NumGC,
			"cpu_count":    runtime.NumCPU(),
		},
		"uptime_seconds": time.Since(mh.startTime).Seconds(),
		"jobs_by_state": gin.H{
			"inactive": depth[domain.StateInactive],
			"active":   depth[domain.StateActive],
			"complete": depth[domain.StateComplete],
			"failure":  depth[domain.StateFailure],
		},
	})
}
