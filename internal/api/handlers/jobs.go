package handlers

import (
	"net/http"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
	apierrors "github.com/oznakn/enhanced-embedded-queue/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// JobQueue is the subset of queue.Queue the job handlers drive. Kept
// narrow so the handlers can be tested against a fake.
type JobQueue interface {
	CreateJob(jobType string, priority domain.Priority, data []byte) (*domain.Job, error)
	FindJob(id string) (*domain.Job, error)
	ListJobs(state *domain.State) ([]*domain.Job, error)
	RemoveJobById(id string) error
}

// JobHandler exposes the submit/get/list/remove surface over a Queue.
type JobHandler struct {
	queue  JobQueue
	logger logger.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(queue JobQueue, logger logger.Logger) *JobHandler {
	return &JobHandler{queue: queue, logger: logger.With("handler", "jobs")}
}

type createJobRequest struct {
	Type     string `json:"type" binding:"required"`
	Priority string `json:"priority"`
	Data     []byte `json:"data"`
}

var priorityByName = map[string]domain.Priority{
	"low":      domain.PriorityLow,
	"normal":   domain.PriorityNormal,
	"medium":   domain.PriorityMedium,
	"high":     domain.PriorityHigh,
	"critical": domain.PriorityCritical,
}

// Create handles POST /api/v1/jobs.
func (jh *JobHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apierrors.BadRequest("invalid job payload", err.Error()))
		return
	}

	priority := domain.PriorityNormal
	if req.Priority != "" {
		p, ok := priorityByName[req.Priority]
		if !ok {
			c.Error(apierrors.BadRequest("unknown priority", req.Priority))
			return
		}
		priority = p
	}

	job, err := jh.queue.CreateJob(req.Type, priority, req.Data)
	if err != nil {
		c.Error(apierrors.InternalError("failed to create job", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, jobResponse(job))
}

// Get handles GET /api/v1/jobs/:id.
func (jh *JobHandler) Get(c *gin.Context) {
	job, err := jh.queue.FindJob(c.Param("id"))
	if err != nil {
		if domain.IsNotFoundError(err) {
			c.Error(apierrors.JobNotFound(c.Param("id")))
			return
		}
		c.Error(apierrors.InternalError("failed to find job", err.Error()))
		return
	}
	if job == nil {
		c.Error(apierrors.JobNotFound(c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, jobResponse(job))
}

// List handles GET /api/v1/jobs, optionally filtered by ?state=.
func (jh *JobHandler) List(c *gin.Context) {
	var statePtr *domain.State
	if raw := c.Query("state"); raw != "" {
		s := domain.State(raw)
		if s != domain.StateInactive && s != domain.StateActive && s != domain.StateComplete && s != domain.StateFailure {
			c.Error(apierrors.BadRequest("unknown state filter", raw))
			return
		}
		statePtr = &s
	}

	jobs, err := jh.queue.ListJobs(statePtr)
	if err != nil {
		c.Error(apierrors.InternalError("failed to list jobs", err.Error()))
		return
	}

	out := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobResponse(job))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

// Remove handles DELETE /api/v1/jobs/:id.
func (jh *JobHandler) Remove(c *gin.Context) {
	if err := jh.queue.RemoveJobById(c.Param("id")); err != nil {
		if domain.IsNotFoundError(err) {
			c.Error(apierrors.JobNotFound(c.Param("id")))
			return
		}
		c.Error(apierrors.InternalError("failed to remove job", err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}

func jobResponse(job *domain.Job) gin.H {
	snap := job.Snapshot()
	body := gin.H{
		"id":        snap.ID,
		"type":      snap.Type,
		"priority":  snap.Priority.String(),
		"state":     snap.State,
		"createdAt": snap.CreatedAt,
		"updatedAt": snap.UpdatedAt,
		"logs":      snap.Logs,
	}
	if snap.StartedAt != nil {
		body["startedAt"] = *snap.StartedAt
	}
	if snap.CompletedAt != nil {
		body["completedAt"] = *snap.CompletedAt
	}
	if snap.FailedAt != nil {
		body["failedAt"] = *snap.FailedAt
	}
	if snap.Progress != nil {
		body["progress"] = *snap.Progress
	}
	return body
}
