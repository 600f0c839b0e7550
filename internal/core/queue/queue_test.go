package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
	"github.com/oznakn/enhanced-embedded-queue/internal/core/worker"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/repository"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := New(repository.Options{InMemory: true}, logger.NewNoopLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// S1: priority ordering within a type.
func TestQueuePriorityOrdering(t *testing.T) {
	q := newTestQueue(t)

	if _, err := q.CreateJob("T", domain.PriorityNormal, []byte("j1")); err != nil {
		t.Fatalf("CreateJob(j1) error: %v", err)
	}
	if _, err := q.CreateJob("T", domain.PriorityHigh, []byte("j2")); err != nil {
		t.Fatalf("CreateJob(j2) error: %v", err)
	}
	if _, err := q.CreateJob("T", domain.PriorityNormal, []byte("j3")); err != nil {
		t.Fatalf("CreateJob(j3) error: %v", err)
	}

	var mu sync.Mutex
	var order []string

	q.Process("T", func(job *domain.Job) (interface{}, error) {
		mu.Lock()
		order = append(order, string(job.Data()))
		mu.Unlock()
		return nil, nil
	}, 1)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	want := []string{"j2", "j1", "j3"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("execution order = %v, want %v", order, want)
		}
	}
}

// S2: FIFO handoff among parked waiters of the same type — with no
// inactive jobs and two workers parked (W1 started before W2), a
// single insert must go to W1 only.
func TestQueueFIFOHandoff(t *testing.T) {
	q := newTestQueue(t)

	var mu sync.Mutex
	var processedBy []string

	makeHandler := func(name string) worker.Processor {
		return func(job *domain.Job) (interface{}, error) {
			mu.Lock()
			processedBy = append(processedBy, name)
			mu.Unlock()
			return nil, nil
		}
	}

	q.Process("T", makeHandler("w1"), 1)
	time.Sleep(30 * time.Millisecond) // let W1 park first
	q.Process("T", makeHandler("w2"), 1)
	time.Sleep(30 * time.Millisecond) // let W2 park behind it

	if _, err := q.CreateJob("T", domain.PriorityNormal, []byte("only")); err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processedBy) == 1
	})

	time.Sleep(50 * time.Millisecond) // confirm W2 never also fires
	mu.Lock()
	defer mu.Unlock()
	if len(processedBy) != 1 || processedBy[0] != "w1" {
		t.Fatalf("processedBy = %v, want exactly [w1]", processedBy)
	}
}

// S3: stillInterested cancellation on shutdown leaves the job INACTIVE.
func TestQueueStillInterestedCancellation(t *testing.T) {
	q := newTestQueue(t)

	workers := q.Process("T", func(job *domain.Job) (interface{}, error) {
		return nil, nil
	}, 1)

	// Let the worker park before shutting it down.
	time.Sleep(30 * time.Millisecond)
	workers[0].Shutdown(100 * time.Millisecond)

	job, err := q.CreateJob("T", domain.PriorityNormal, []byte("orphan"))
	if err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}

	// Give the deferred handoff goroutine a chance to run and discard
	// the now-uninterested waiter.
	time.Sleep(100 * time.Millisecond)

	found, err := q.FindJob(job.ID())
	if err != nil {
		t.Fatalf("FindJob() error: %v", err)
	}
	if found.State() != domain.StateInactive {
		t.Fatalf("State() = %v, want INACTIVE", found.State())
	}
}

// S4: crash recovery marks orphaned ACTIVE jobs FAILURE and leaves
// others untouched.
func TestQueueCrashRecovery(t *testing.T) {
	repo := repository.NewMemoryRepository(nil)
	if err := repo.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	now := time.Now()
	if err := repo.Insert(&domain.Record{ID: "a", Type: "T", State: domain.StateActive, CreatedAt: now, UpdatedAt: now, StartedAt: &now}); err != nil {
		t.Fatalf("Insert(a) error: %v", err)
	}
	if err := repo.Insert(&domain.Record{ID: "b", Type: "T", State: domain.StateInactive, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("Insert(b) error: %v", err)
	}
	if err := repo.Insert(&domain.Record{ID: "c", Type: "T", State: domain.StateComplete, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("Insert(c) error: %v", err)
	}

	q := &Queue{
		repo:    repo,
		logger:  logger.NewNoopLogger(),
		bus:     NewEventBus(),
		waiters: make(map[string][]*waiterRequest),
		workers: make(map[string][]*worker.Worker),
	}
	if err := q.recoverCrashed(); err != nil {
		t.Fatalf("recoverCrashed() error: %v", err)
	}

	a, err := q.FindJob("a")
	if err != nil {
		t.Fatalf("FindJob(a) error: %v", err)
	}
	if a.State() != domain.StateFailure {
		t.Fatalf("job a State() = %v, want FAILURE", a.State())
	}
	snap := a.Snapshot()
	if snap.FailedAt == nil {
		t.Fatal("expected failedAt to be set on recovered job")
	}
	if len(snap.Logs) == 0 {
		t.Fatal("expected a failure log entry")
	}

	b, err := q.FindJob("b")
	if err != nil {
		t.Fatalf("FindJob(b) error: %v", err)
	}
	if b.State() != domain.StateInactive {
		t.Fatalf("job b State() = %v, want unchanged INACTIVE", b.State())
	}

	c, err := q.FindJob("c")
	if err != nil {
		t.Fatalf("FindJob(c) error: %v", err)
	}
	if c.State() != domain.StateComplete {
		t.Fatalf("job c State() = %v, want unchanged COMPLETE", c.State())
	}
}

// S6: double-save leaves exactly one stored row.
func TestQueueDoubleSave(t *testing.T) {
	q := newTestQueue(t)

	job, err := q.CreateJob("T", domain.PriorityNormal, []byte("once"))
	if err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}

	if _, err := job.Save(); err == nil {
		t.Fatal("second Save() should fail")
	}

	all, err := q.ListJobs(nil)
	if err != nil {
		t.Fatalf("ListJobs() error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListJobs() returned %d rows, want 1", len(all))
	}
}

func TestQueueRemoveJobById(t *testing.T) {
	q := newTestQueue(t)
	job, err := q.CreateJob("T", domain.PriorityNormal, nil)
	if err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}
	if err := q.RemoveJobById(job.ID()); err != nil {
		t.Fatalf("RemoveJobById() error: %v", err)
	}
	if err := q.RemoveJobById(job.ID()); err == nil {
		t.Fatal("RemoveJobById() on already-removed job should fail")
	}
}

func TestQueueRemoveJobsByCallback(t *testing.T) {
	q := newTestQueue(t)
	if _, err := q.CreateJob("T", domain.PriorityNormal, []byte("keep")); err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}
	if _, err := q.CreateJob("T", domain.PriorityNormal, []byte("drop")); err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}

	removed, err := q.RemoveJobsByCallback(func(j *domain.Job) bool {
		return string(j.Data()) == "drop"
	})
	if err != nil {
		t.Fatalf("RemoveJobsByCallback() error: %v", err)
	}
	if len(removed) != 1 || string(removed[0].Data()) != "drop" {
		t.Fatalf("RemoveJobsByCallback() removed = %v, want [drop]", removed)
	}

	remaining, err := q.ListJobs(nil)
	if err != nil {
		t.Fatalf("ListJobs() error: %v", err)
	}
	if len(remaining) != 1 || string(remaining[0].Data()) != "keep" {
		t.Fatalf("ListJobs() after removal = %v, want [keep]", remaining)
	}
}

func TestQueueEventSubscription(t *testing.T) {
	q := newTestQueue(t)

	var mu sync.Mutex
	var kinds []domain.EventKind
	q.On(domain.EventEnqueue, func(e domain.Event) {
		mu.Lock()
		kinds = append(kinds, e.Kind)
		mu.Unlock()
	})

	if _, err := q.CreateJob("T", domain.PriorityNormal, nil); err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) == 1
	})
}
