// Package worker implements the per-type execution unit that asks the
// Queue for jobs, runs the caller's processor, and reports results.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
)

// ErrShutdownTimeout is the failure cause recorded on a Job whose
// processor did not return before its worker's shutdown deadline.
var ErrShutdownTimeout = errors.New("shutdown timeout")

// State is a Worker's position in its lifecycle.
type State int32

const (
	Idle State = iota
	Requesting
	Running
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Processor is the caller-supplied function that executes a claimed
// Job. It is opaque to the worker: the return value becomes the Job's
// completion result, a non-nil error becomes the failure cause.
type Processor func(job *domain.Job) (interface{}, error)

// JobSource is the slice of Queue a Worker needs. Defined here rather
// than imported from the queue package to keep worker free of a
// dependency on its own caller.
type JobSource interface {
	RequestJobForProcessing(ctx context.Context, jobType string, stillInterested func() bool) (*domain.Job, error)
}

// Worker binds to one job type and runs a cooperative request/execute
// loop until shut down.
type Worker struct {
	id      string
	jobType string
	source  JobSource
	logger  logger.Logger

	state State

	draining int32

	mu         sync.Mutex
	currentJob *domain.Job

	done         chan struct{}
	shutdownOnce sync.Once
}

// New constructs a Worker bound to jobType. Start must be called to
// begin processing.
func New(id, jobType string, source JobSource, log logger.Logger) *Worker {
	return &Worker{
		id:      id,
		jobType: jobType,
		source:  source,
		logger:  log.With("worker_id", id, "job_type", jobType),
		done:    make(chan struct{}),
	}
}

// ID returns the worker's identifier.
func (w *Worker) ID() string { return w.id }

// Type returns the job type this worker services.
func (w *Worker) Type() string { return w.jobType }

func (w *Worker) setState(s State) { atomic.StoreInt32((*int32)(&w.state), int32(s)) }

// State returns the worker's current lifecycle state.
func (w *Worker) State() State { return State(atomic.LoadInt32((*int32)(&w.state))) }

func (w *Worker) stillInterested() bool {
	return atomic.LoadInt32(&w.draining) == 0
}

// Start launches the request/execute loop in its own goroutine.
func (w *Worker) Start(processor Processor) {
	go w.loop(context.Background(), processor)
}

func (w *Worker) loop(ctx context.Context, processor Processor) {
	defer close(w.done)
	defer w.setState(Terminated)
	defer w.logger.Debug("worker stopped")

	w.logger.Debug("worker started")

	for {
		w.setState(Requesting)
		job, err := w.source.RequestJobForProcessing(ctx, w.jobType, w.stillInterested)
		if err != nil {
			w.logger.Error("request for work failed", "error", err)
			if !w.stillInterested() {
				return
			}
			continue
		}
		if job == nil {
			// Either the worker lost interest while parked, or the
			// request was otherwise abandoned. Either way the loop
			// exits: the queue never resolves a dropped waiter later.
			return
		}

		w.setState(Running)
		w.mu.Lock()
		w.currentJob = job
		w.mu.Unlock()

		w.runOne(job, processor)

		w.mu.Lock()
		w.currentJob = nil
		w.mu.Unlock()

		if !w.stillInterested() {
			return
		}
	}
}

func (w *Worker) runOne(job *domain.Job, processor Processor) {
	result, err := processor(job)
	if err != nil {
		w.logger.Warn("processor failed", "job_id", job.ID(), "error", err)
		if tErr := job.SetStateToFailure(time.Now(), err); tErr != nil {
			w.logger.Error("failed to record job failure", "job_id", job.ID(), "error", tErr)
		}
		return
	}
	if tErr := job.SetStateToComplete(time.Now(), result); tErr != nil {
		w.logger.Error("failed to record job completion", "job_id", job.ID(), "error", tErr)
	}
}

// Shutdown marks the worker as draining and waits up to timeout for
// its current processor invocation, if any, to finish. If the
// deadline elapses while a job is running, that job is transitioned
// to FAILURE and the call returns; the processor itself is not
// forcibly aborted and may continue running in the background,
// orphaned.
func (w *Worker) Shutdown(timeout time.Duration) {
	w.shutdownOnce.Do(func() {
		atomic.StoreInt32(&w.draining, 1)
		if w.State() != Running {
			w.setState(Draining)
		}
	})

	select {
	case <-w.done:
		return
	case <-time.After(timeout):
	}

	w.mu.Lock()
	job := w.currentJob
	w.mu.Unlock()

	if job != nil {
		if err := job.SetStateToFailure(time.Now(), ErrShutdownTimeout); err != nil {
			w.logger.Error("failed to record shutdown-timeout failure", "job_id", job.ID(), "error", err)
		}
	}
	w.setState(Terminated)
}
