package handlers

import (
	"net/http"

	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/repository"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	logger logger.Logger
	repo   repository.Repository
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger logger.Logger, repo repository.Repository) *HealthHandler {
	return &HealthHandler{
		logger: logger.With("handler", "health"),
		repo:   repo,
	}
}

// Health returns the health status of the service
func (hh *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "enhanced-embedded-queue",
		"version": "1.0.0",
	})
}

// Ready reports readiness by exercising the repository backend: a
// Bolt-backed queue is not ready until the database file is open.
func (hh *HealthHandler) Ready(c *gin.Context) {
	if _, err := hh.repo.List(nil); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": gin.H{"repository": err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": gin.H{
			"repository": "ok",
		},
	})
}
