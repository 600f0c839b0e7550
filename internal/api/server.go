package api

import (
	"net/http"

	"github.com/oznakn/enhanced-embedded-queue/internal/api/handlers"
	"github.com/oznakn/enhanced-embedded-queue/internal/api/middleware"
	"github.com/oznakn/enhanced-embedded-queue/internal/core/queue"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
	"github.com/oznakn/enhanced-embedded-queue/internal/observability/metrics"
	"github.com/oznakn/enhanced-embedded-queue/internal/pkg/config"

	"github.com/gin-gonic/gin"
)

// Server represents the HTTP admin surface over a Queue.
type Server struct {
	config *config.Config
	logger logger.Logger
	router *gin.Engine
	queue  *queue.Queue
}

// NewServer creates a new HTTP server wired to q. It registers a
// metrics Collector against q's event bus so every job enqueued
// through any path (this server, an embedding application, a worker)
// is reflected in the /metrics scrape.
func NewServer(cfg *config.Config, log logger.Logger, q *queue.Queue) *Server {
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	collector := metrics.NewCollector()
	collector.Attach(q)

	router := gin.New()

	server := &Server{
		config: cfg,
		logger: log.With("component", "server"),
		router: router,
		queue:  q,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(middleware.RateLimit())
	s.router.Use(middleware.ErrorHandler(s.logger))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.logger, s.queue.Repository())
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/ready", healthHandler.Ready)

	metricsHandler := handlers.NewMetricsHandler(s.logger, s.queue)
	s.router.GET("/metrics", metricsHandler.Prometheus())
	s.router.GET("/metrics/snapshot", metricsHandler.Snapshot)

	jobHandler := handlers.NewJobHandler(s.queue, s.logger)
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/jobs", jobHandler.Create)
		v1.GET("/jobs", jobHandler.List)
		v1.GET("/jobs/:id", jobHandler.Get)
		v1.DELETE("/jobs/:id", jobHandler.Remove)
	}
}
