package domain

import (
	"errors"
	"testing"
	"time"
)

type fakePersister struct {
	inserted []*Record
	updated  []*Record
	removed  []string
	events   []EventKind

	failInsert error
	failUpdate error
}

func (f *fakePersister) PersistInsert(rec *Record) error {
	if f.failInsert != nil {
		return f.failInsert
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakePersister) PersistUpdate(rec *Record) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	f.updated = append(f.updated, rec)
	return nil
}

func (f *fakePersister) PersistRemove(id string) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakePersister) Publish(kind EventKind, job *Job, payload interface{}) {
	f.events = append(f.events, kind)
}

func newTestJob(p *fakePersister) *Job {
	return NewJob(p, "job-1", "render", PriorityNormal, []byte("payload"), time.Now())
}

func TestJobSaveOnlyOnce(t *testing.T) {
	p := &fakePersister{}
	job := newTestJob(p)

	if _, err := job.Save(); err != nil {
		t.Fatalf("first Save() returned error: %v", err)
	}
	if len(p.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(p.inserted))
	}

	if _, err := job.Save(); !errors.Is(err, ErrAlreadySaved) {
		t.Fatalf("second Save() = %v, want ErrAlreadySaved", err)
	}
	if len(p.inserted) != 1 {
		t.Fatalf("second Save() should not touch storage, inserts = %d", len(p.inserted))
	}
}

func TestJobUpdateRequiresSave(t *testing.T) {
	p := &fakePersister{}
	job := newTestJob(p)

	if err := job.Update(); !errors.Is(err, ErrNotSaved) {
		t.Fatalf("Update() before Save() = %v, want ErrNotSaved", err)
	}

	if _, err := job.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := job.Update(); err != nil {
		t.Fatalf("Update() after Save() returned error: %v", err)
	}
}

func TestJobRemoveThenUpdateFails(t *testing.T) {
	p := &fakePersister{}
	job := newTestJob(p)
	if _, err := job.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := job.Remove(); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := job.Update(); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Update() after Remove() = %v, want ErrJobNotFound", err)
	}
}

func TestJobLegalTransitions(t *testing.T) {
	p := &fakePersister{}
	job := newTestJob(p)
	if _, err := job.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if err := job.SetStateToActive(time.Now()); err != nil {
		t.Fatalf("SetStateToActive() error: %v", err)
	}
	if job.State() != StateActive {
		t.Fatalf("State() = %v, want ACTIVE", job.State())
	}

	if err := job.SetStateToComplete(time.Now(), "ok"); err != nil {
		t.Fatalf("SetStateToComplete() error: %v", err)
	}
	if job.State() != StateComplete {
		t.Fatalf("State() = %v, want COMPLETE", job.State())
	}

	snap := job.Snapshot()
	if snap.Duration == nil {
		t.Fatal("expected duration to be set on completion")
	}
	if snap.CompletedAt == nil || snap.StartedAt == nil {
		t.Fatal("expected startedAt and completedAt to be set")
	}
	if snap.CompletedAt.Before(*snap.StartedAt) {
		t.Fatal("completedAt must not precede startedAt")
	}
}

func TestJobIllegalTransitionDoesNotMutate(t *testing.T) {
	p := &fakePersister{}
	job := newTestJob(p)
	if _, err := job.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// COMPLETE is only legal from ACTIVE; job is still INACTIVE.
	err := job.SetStateToComplete(time.Now(), nil)
	if !IsTransitionError(err) {
		t.Fatalf("SetStateToComplete() from INACTIVE = %v, want TransitionError", err)
	}
	if job.State() != StateInactive {
		t.Fatalf("illegal transition mutated state to %v", job.State())
	}
	if len(p.updated) != 0 {
		t.Fatalf("illegal transition should not persist, updates = %d", len(p.updated))
	}
}

func TestJobSetStateToFailureAppendsLog(t *testing.T) {
	p := &fakePersister{}
	job := newTestJob(p)
	if _, err := job.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := job.SetStateToActive(time.Now()); err != nil {
		t.Fatalf("SetStateToActive() error: %v", err)
	}

	cause := errors.New("boom")
	if err := job.SetStateToFailure(time.Now(), cause); err != nil {
		t.Fatalf("SetStateToFailure() error: %v", err)
	}

	snap := job.Snapshot()
	if snap.State != StateFailure {
		t.Fatalf("State() = %v, want FAILURE", snap.State)
	}
	if len(snap.Logs) != 1 || snap.Logs[0] != cause.Error() {
		t.Fatalf("Logs = %v, want [%q]", snap.Logs, cause.Error())
	}
}

func TestJobSetProgressClamps(t *testing.T) {
	p := &fakePersister{}
	job := newTestJob(p)
	if _, err := job.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := job.SetStateToActive(time.Now()); err != nil {
		t.Fatalf("SetStateToActive() error: %v", err)
	}

	cases := []struct {
		done, total, want int
	}{
		{0, 0, 0},
		{5, 10, 50},
		{20, 10, 100},
		{-5, 10, 0},
	}
	for _, c := range cases {
		if err := job.SetProgress(c.done, c.total); err != nil {
			t.Fatalf("SetProgress(%d, %d) error: %v", c.done, c.total, err)
		}
		snap := job.Snapshot()
		if snap.Progress == nil || *snap.Progress != c.want {
			t.Fatalf("SetProgress(%d, %d) progress = %v, want %d", c.done, c.total, snap.Progress, c.want)
		}
	}
}

func TestJobSetPriorityOnlyWhenInactive(t *testing.T) {
	p := &fakePersister{}
	job := newTestJob(p)
	if _, err := job.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := job.SetPriority(PriorityHigh); err != nil {
		t.Fatalf("SetPriority() on INACTIVE job error: %v", err)
	}
	if job.Priority() != PriorityHigh {
		t.Fatalf("Priority() = %v, want HIGH", job.Priority())
	}

	if err := job.SetStateToActive(time.Now()); err != nil {
		t.Fatalf("SetStateToActive() error: %v", err)
	}
	if err := job.SetPriority(PriorityLow); err == nil {
		t.Fatal("SetPriority() on ACTIVE job should fail")
	}
}
