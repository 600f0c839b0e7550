package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
	"github.com/oznakn/enhanced-embedded-queue/internal/infrastructure/logger"
)

// fakeSource hands out at most one job per call, or blocks until
// stillInterested flips false.
type fakeSource struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func (f *fakeSource) RequestJobForProcessing(ctx context.Context, jobType string, stillInterested func() bool) (*domain.Job, error) {
	for {
		f.mu.Lock()
		if len(f.jobs) > 0 {
			job := f.jobs[0]
			f.jobs = f.jobs[1:]
			f.mu.Unlock()
			return job, nil
		}
		f.mu.Unlock()

		if !stillInterested() {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type fakePersister struct{}

func (fakePersister) PersistInsert(rec *domain.Record) error { return nil }
func (fakePersister) PersistUpdate(rec *domain.Record) error { return nil }
func (fakePersister) PersistRemove(id string) error          { return nil }
func (fakePersister) Publish(kind domain.EventKind, job *domain.Job, payload interface{}) {}

func newActiveJob(id string) *domain.Job {
	job := domain.NewJob(fakePersister{}, id, "T", domain.PriorityNormal, nil, time.Now())
	if _, err := job.Save(); err != nil {
		panic(err)
	}
	if err := job.SetStateToActive(time.Now()); err != nil {
		panic(err)
	}
	return job
}

func TestWorkerRunsProcessorToCompletion(t *testing.T) {
	job := newActiveJob("j1")
	src := &fakeSource{jobs: []*domain.Job{job}}
	w := New("w1", "T", src, logger.NewNoopLogger())

	var ran int32
	w.Start(func(j *domain.Job) (interface{}, error) {
		atomic.AddInt32(&ran, 1)
		return "done", nil
	})

	deadline := time.Now().Add(time.Second)
	for job.State() != domain.StateComplete && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if job.State() != domain.StateComplete {
		t.Fatalf("job State() = %v, want COMPLETE", job.State())
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("processor ran %d times, want 1", ran)
	}
}

func TestWorkerRecordsProcessorFailure(t *testing.T) {
	job := newActiveJob("j1")
	src := &fakeSource{jobs: []*domain.Job{job}}
	w := New("w1", "T", src, logger.NewNoopLogger())

	cause := errors.New("boom")
	w.Start(func(j *domain.Job) (interface{}, error) {
		return nil, cause
	})

	deadline := time.Now().Add(time.Second)
	for job.State() == domain.StateActive && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if job.State() != domain.StateFailure {
		t.Fatalf("job State() = %v, want FAILURE", job.State())
	}
}

// S5: shutdown timeout fails the in-flight job and returns without
// waiting for the orphaned processor.
func TestWorkerShutdownTimeoutFailsRunningJob(t *testing.T) {
	job := newActiveJob("j1")
	src := &fakeSource{jobs: []*domain.Job{job}}
	w := New("w1", "T", src, logger.NewNoopLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	w.Start(func(j *domain.Job) (interface{}, error) {
		close(started)
		<-release
		return "too late", nil
	})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("processor never started")
	}

	shutdownDone := make(chan struct{})
	go func() {
		w.Shutdown(50 * time.Millisecond)
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
	case <-time.After(time.Second):
		t.Fatal("Shutdown() did not return within the timeout")
	}

	if job.State() != domain.StateFailure {
		t.Fatalf("job State() = %v, want FAILURE", job.State())
	}
	snap := job.Snapshot()
	if len(snap.Logs) == 0 || snap.Logs[len(snap.Logs)-1] != ErrShutdownTimeout.Error() {
		t.Fatalf("Logs = %v, want last entry %q", snap.Logs, ErrShutdownTimeout.Error())
	}

	close(release) // unblock the orphaned goroutine so the test can exit cleanly
}

func TestWorkerShutdownWhileParkedReturnsImmediately(t *testing.T) {
	src := &fakeSource{}
	w := New("w1", "T", src, logger.NewNoopLogger())
	w.Start(func(j *domain.Job) (interface{}, error) { return nil, nil })

	time.Sleep(20 * time.Millisecond) // let it start requesting

	done := make(chan struct{})
	go func() {
		w.Shutdown(time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Shutdown() should return quickly once the parked request sees stillInterested() == false")
	}
	if w.State() != Terminated {
		t.Fatalf("State() = %v, want Terminated", w.State())
	}
}
