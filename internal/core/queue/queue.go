// Package queue implements the dispatch core: the coordinator that
// owns the waiter lists, the dispatch mutex, and the worker registry,
// and routes newly-inserted jobs to waiting workers in priority
// order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
	"github.com/oznakn/enhanced-embedded-queue/internal/core/worker"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/repository"
)

var errUnexpectedTermination = errors.New("unexpectedly terminated")

// Queue is the coordinator described in the dispatch core: it holds
// the Repository, the per-type waiter FIFO, the dispatch mutex
// guarding the INACTIVE->ACTIVE claim, and the worker registry. It
// implements domain.Persister so Jobs can delegate persistence and
// event publication back through it.
type Queue struct {
	repo   repository.Repository
	logger logger.Logger
	bus    *EventBus

	waitersMu sync.Mutex
	waiters   map[string][]*waiterRequest

	dispatchMu sync.Mutex

	workersMu sync.Mutex
	workers   map[string][]*worker.Worker
}

// New opens the repository, runs crash recovery, and returns a ready
// Queue. This is the library's Queue.create entry point.
func New(opts repository.Options, log logger.Logger) (*Queue, error) {
	repo, err := repository.New(opts)
	if err != nil {
		return nil, fmt.Errorf("queue: %w", err)
	}
	if err := repo.Init(); err != nil {
		return nil, fmt.Errorf("queue: init repository: %w", err)
	}

	q := &Queue{
		repo:    repo,
		logger:  log.With("component", "queue"),
		bus:     NewEventBus(),
		waiters: make(map[string][]*waiterRequest),
		workers: make(map[string][]*worker.Worker),
	}

	if err := q.recoverCrashed(); err != nil {
		return nil, fmt.Errorf("queue: crash recovery: %w", err)
	}
	return q, nil
}

// recoverCrashed transitions every job left ACTIVE at startup to
// FAILURE. An ACTIVE row at init time means a previous process died
// mid-run; progress and processor context are not recoverable, so no
// resume is attempted.
func (q *Queue) recoverCrashed() error {
	active := domain.StateActive
	recs, err := q.repo.List(&active)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		job := domain.HydrateJob(q, rec)
		if err := job.SetStateToFailure(time.Now(), errUnexpectedTermination); err != nil {
			q.logger.Error("crash recovery failed to fail job", "job_id", job.ID(), "error", err)
		} else {
			q.logger.Warn("recovered orphaned active job", "job_id", job.ID())
		}
	}
	return nil
}

// Repository returns the backing store, for callers (such as a health
// check) that need to probe it directly.
func (q *Queue) Repository() repository.Repository { return q.repo }

// PersistInsert implements domain.Persister.
func (q *Queue) PersistInsert(rec *domain.Record) error { return q.repo.Insert(rec) }

// PersistUpdate implements domain.Persister.
func (q *Queue) PersistUpdate(rec *domain.Record) error { return q.repo.Update(rec) }

// PersistRemove implements domain.Persister.
func (q *Queue) PersistRemove(id string) error { return q.repo.Remove(id) }

// Publish implements domain.Persister.
func (q *Queue) Publish(kind domain.EventKind, job *domain.Job, payload interface{}) {
	q.bus.Publish(domain.Event{Kind: kind, Job: job, Payload: payload})
}

func (q *Queue) emitError(err error, job *domain.Job) {
	q.logger.Error("queue error", "error", err)
	q.Publish(domain.EventError, job, err)
}

// CreateJob generates an id, stamps timestamps, saves the job, and
// triggers the handoff protocol for any parked waiter of that type.
func (q *Queue) CreateJob(jobType string, priority domain.Priority, data []byte) (*domain.Job, error) {
	sanitized, coerced := domain.SanitizePriority(priority)
	if coerced {
		q.logger.Warn("coercing unknown priority to normal", "job_type", jobType, "requested_priority", int(priority))
	}

	now := time.Now()
	job := domain.NewJob(q, uuid.New().String(), jobType, sanitized, data, now)

	if _, err := job.Save(); err != nil {
		q.emitError(err, job)
		return nil, err
	}

	q.Publish(domain.EventEnqueue, job, nil)

	// Deferred to the next scheduling opportunity: the caller's own
	// continuation (this CreateJob call) observes the post-insert
	// state before any parked waiter begins work on the same job.
	go q.handoff(job)

	return job, nil
}

// handoff implements the addJob-side protocol: pop waiters from the
// head of the type's FIFO, discarding any that have lost interest,
// until one is found or the list is exhausted. The willing waiter's
// claim is made without the dispatch mutex — safe because the row was
// just inserted and cannot yet be observed by a concurrent
// findNextInactiveByType query racing inside RequestJobForProcessing.
func (q *Queue) handoff(job *domain.Job) {
	jobType := job.Type()

	for {
		q.waitersMu.Lock()
		list := q.waiters[jobType]
		if len(list) == 0 {
			q.waitersMu.Unlock()
			return
		}
		w := list[0]
		q.waiters[jobType] = list[1:]
		q.waitersMu.Unlock()

		if !w.stillInterested() {
			continue
		}

		if err := job.SetStateToActive(time.Now()); err != nil {
			q.emitError(err, job)
			return
		}
		w.resultCh <- job
		return
	}
}

// RequestJobForProcessing implements worker.JobSource. It returns a
// Job already claimed (ACTIVE, persisted), or nil if the caller lost
// interest before one became available.
func (q *Queue) RequestJobForProcessing(ctx context.Context, jobType string, stillInterested func() bool) (*domain.Job, error) {
	// Fast-park: if anyone is already waiting for this type, the
	// newest requester cannot jump the FIFO.
	q.waitersMu.Lock()
	if len(q.waiters[jobType]) > 0 {
		w := newWaiterRequest(stillInterested)
		q.waiters[jobType] = append(q.waiters[jobType], w)
		q.waitersMu.Unlock()
		return q.awaitWaiter(ctx, w)
	}
	q.waitersMu.Unlock()

	q.dispatchMu.Lock()

	rec, err := q.repo.FindNextInactiveByType(jobType)
	if err != nil {
		q.dispatchMu.Unlock()
		return nil, err
	}

	if rec == nil {
		w := newWaiterRequest(stillInterested)
		q.waitersMu.Lock()
		q.waiters[jobType] = append(q.waiters[jobType], w)
		q.waitersMu.Unlock()
		q.dispatchMu.Unlock()
		return q.awaitWaiter(ctx, w)
	}

	if !stillInterested() {
		q.dispatchMu.Unlock()
		return nil, nil
	}

	job := domain.HydrateJob(q, rec)
	if err := job.SetStateToActive(time.Now()); err != nil {
		q.dispatchMu.Unlock()
		q.emitError(err, job)
		return nil, err
	}
	q.dispatchMu.Unlock()

	return job, nil
}

// pollInterval is how often a parked request re-checks stillInterested
// while no job has arrived. The source's sole cancellation primitive
// is that predicate, not a channel, so a blocked Go call has to poll
// it to ever unblock on lost interest.
const pollInterval = 20 * time.Millisecond

func (q *Queue) awaitWaiter(ctx context.Context, w *waiterRequest) (*domain.Job, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case job := <-w.resultCh:
			return job, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if !w.stillInterested() {
				return nil, nil
			}
		}
	}
}

// Process spawns concurrency workers of jobType, each driven by
// processor, and registers them for Shutdown.
func (q *Queue) Process(jobType string, processor worker.Processor, concurrency int) []*worker.Worker {
	spawned := make([]*worker.Worker, 0, concurrency)

	q.workersMu.Lock()
	defer q.workersMu.Unlock()

	for i := 0; i < concurrency; i++ {
		id := fmt.Sprintf("%s-%d", jobType, len(q.workers[jobType])+1)
		w := worker.New(id, jobType, q, q.logger)
		w.Start(processor)
		q.workers[jobType] = append(q.workers[jobType], w)
		spawned = append(spawned, w)
	}
	return spawned
}

// Shutdown drains workers matching jobType (or every worker if
// jobType is empty), waiting up to timeout per worker, sequentially.
func (q *Queue) Shutdown(timeout time.Duration, jobType string) {
	q.workersMu.Lock()
	var targets []*worker.Worker
	if jobType == "" {
		for t, ws := range q.workers {
			targets = append(targets, ws...)
			delete(q.workers, t)
		}
	} else {
		targets = append(targets, q.workers[jobType]...)
		delete(q.workers, jobType)
	}
	q.workersMu.Unlock()

	for _, w := range targets {
		w.Shutdown(timeout)
	}
}

// FindJob returns the job with the given id, or (nil, nil) if absent.
func (q *Queue) FindJob(id string) (*domain.Job, error) {
	rec, err := q.repo.Find(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return domain.HydrateJob(q, rec), nil
}

// ListJobs returns every job, optionally filtered by state.
func (q *Queue) ListJobs(state *domain.State) ([]*domain.Job, error) {
	recs, err := q.repo.List(state)
	if err != nil {
		return nil, err
	}
	jobs := make([]*domain.Job, 0, len(recs))
	for _, rec := range recs {
		jobs = append(jobs, domain.HydrateJob(q, rec))
	}
	return jobs, nil
}

// RemoveJobById removes a single job by id.
func (q *Queue) RemoveJobById(id string) error {
	job, err := q.FindJob(id)
	if err != nil {
		return err
	}
	if job == nil {
		return domain.ErrJobNotFound
	}
	if err := job.Remove(); err != nil {
		q.emitError(err, job)
		return err
	}
	q.Publish(domain.EventRemove, job, nil)
	return nil
}

// RemoveJobsByCallback removes every job for which predicate returns
// true, from a snapshot taken at call time. ACTIVE jobs may be
// removed; the owning worker's later state-transition write will then
// fail its exactly-one-row check and surface as an Error event rather
// than aborting the worker loop.
func (q *Queue) RemoveJobsByCallback(predicate func(*domain.Job) bool) ([]*domain.Job, error) {
	jobs, err := q.ListJobs(nil)
	if err != nil {
		return nil, err
	}

	var removed []*domain.Job
	for _, job := range jobs {
		if !predicate(job) {
			continue
		}
		if err := job.Remove(); err != nil {
			q.emitError(err, job)
			continue
		}
		q.Publish(domain.EventRemove, job, nil)
		removed = append(removed, job)
	}
	return removed, nil
}

// On subscribes handler to events of the given kind.
func (q *Queue) On(kind domain.EventKind, handler EventHandler) {
	q.bus.Subscribe(kind, handler)
}

// Close releases the underlying repository's resources.
func (q *Queue) Close() error {
	return q.repo.Close()
}
