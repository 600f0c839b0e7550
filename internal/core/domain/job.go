package domain

import (
	"sync"
	"time"
)

// Persister is the narrow slice of Queue that Job uses to delegate its
// own persistence. Job never talks to a Repository directly — per the
// dispatch core's contract, persistence always goes through the Queue
// that owns the Repository.
type Persister interface {
	PersistInsert(rec *Record) error
	PersistUpdate(rec *Record) error
	PersistRemove(id string) error
	Publish(kind EventKind, job *Job, payload interface{})
}

type persister = Persister

// Job is the in-memory entity carrying identity, data, state,
// timestamps, progress and a log buffer. All mutation happens through
// its own methods, which persist through the owning Queue.
type Job struct {
	mu sync.Mutex

	id          string
	jobType     string
	priority    Priority
	data        []byte
	state       State
	createdAt   time.Time
	updatedAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	failedAt    *time.Time
	duration    *time.Duration
	progress    *int
	logs        []string

	saved   bool
	removed bool
	queue   persister
}

// NewJob constructs a fresh, unsaved Job. Queue.createJob is the only
// caller that should invoke this directly; everything else goes
// through the Queue's public surface.
func NewJob(queue persister, id, jobType string, priority Priority, data []byte, now time.Time) *Job {
	return &Job{
		id:        id,
		jobType:   jobType,
		priority:  priority,
		data:      data,
		state:     StateInactive,
		createdAt: now,
		updatedAt: now,
		queue:     queue,
	}
}

// hydrate reconstructs a Job from a persisted Record without going
// through NewJob's "fresh job" defaults. Used by the Repository/Queue
// boundary when loading existing rows.
func hydrate(queue persister, rec *Record) *Job {
	j := &Job{
		id:          rec.ID,
		jobType:     rec.Type,
		priority:    rec.Priority,
		data:        rec.Data,
		state:       rec.State,
		createdAt:   rec.CreatedAt,
		updatedAt:   rec.UpdatedAt,
		startedAt:   rec.StartedAt,
		completedAt: rec.CompletedAt,
		failedAt:    rec.FailedAt,
		duration:    rec.Duration,
		progress:    rec.Progress,
		logs:        append([]string(nil), rec.Logs...),
		saved:       true,
		queue:       queue,
	}
	return j
}

// Record is the persisted document schema: one per Job, independent
// of the live entity's behavior so the Repository only ever handles
// plain data.
type Record struct {
	ID          string
	Type        string
	Priority    Priority
	Data        []byte
	State       State
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	Duration    *time.Duration
	Progress    *int
	Logs        []string
}

// HydrateJob reconstructs a Job from a persisted Record. Only a Queue
// (the sole Persister implementation) is expected to call this.
func HydrateJob(queue Persister, rec *Record) *Job {
	return hydrate(queue, rec)
}

// record snapshots the Job's current fields into a Record for
// persistence. Caller must hold j.mu.
func (j *Job) record() *Record {
	return &Record{
		ID:          j.id,
		Type:        j.jobType,
		Priority:    j.priority,
		Data:        j.data,
		State:       j.state,
		CreatedAt:   j.createdAt,
		UpdatedAt:   j.updatedAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
		FailedAt:    j.failedAt,
		Duration:    j.duration,
		Progress:    j.progress,
		Logs:        append([]string(nil), j.logs...),
	}
}

// Snapshot is a read-only projection of a Job's current fields, safe
// to hand to callers outside the package (HTTP handlers, tests)
// without exposing a pointer into the live entity.
type Snapshot struct {
	ID          string
	Type        string
	Priority    Priority
	Data        []byte
	State       State
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	Duration    *time.Duration
	Progress    *int
	Logs        []string
}

// Snapshot returns a copy of the Job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	r := j.record()
	return Snapshot(*r)
}

func (j *Job) ID() string      { j.mu.Lock(); defer j.mu.Unlock(); return j.id }
func (j *Job) Type() string    { j.mu.Lock(); defer j.mu.Unlock(); return j.jobType }
func (j *Job) State() State    { j.mu.Lock(); defer j.mu.Unlock(); return j.state }
func (j *Job) Priority() Priority {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.priority
}
func (j *Job) Data() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.data
}
func (j *Job) CreatedAt() time.Time { j.mu.Lock(); defer j.mu.Unlock(); return j.createdAt }

// Save persists a freshly-created Job for the first time. Subsequent
// calls fail with ErrAlreadySaved and do not touch storage.
func (j *Job) Save() (*Job, error) {
	j.mu.Lock()
	if j.saved {
		j.mu.Unlock()
		return nil, ErrAlreadySaved
	}
	rec := j.record()
	j.mu.Unlock()

	if err := j.queue.PersistInsert(rec); err != nil {
		return nil, err
	}

	j.mu.Lock()
	j.saved = true
	j.mu.Unlock()
	return j, nil
}

// Update persists the Job's current in-memory fields. Fails if the
// Job has never been saved, or if the row has since been removed.
func (j *Job) Update() error {
	j.mu.Lock()
	if !j.saved {
		j.mu.Unlock()
		return ErrNotSaved
	}
	if j.removed {
		j.mu.Unlock()
		return ErrJobNotFound
	}
	rec := j.record()
	j.mu.Unlock()

	return j.queue.PersistUpdate(rec)
}

// Remove deletes the Job from storage. Fails if never saved.
func (j *Job) Remove() error {
	j.mu.Lock()
	if !j.saved {
		j.mu.Unlock()
		return ErrNotSaved
	}
	id := j.id
	j.mu.Unlock()

	if err := j.queue.PersistRemove(id); err != nil {
		return err
	}

	j.mu.Lock()
	j.removed = true
	j.mu.Unlock()
	return nil
}

// SetStateToActive claims the Job: legal only from INACTIVE.
func (j *Job) SetStateToActive(now time.Time) error {
	j.mu.Lock()
	if !CanTransition(j.state, StateActive) {
		id, from := j.id, j.state
		j.mu.Unlock()
		return &TransitionError{JobID: id, From: from, To: StateActive}
	}
	j.state = StateActive
	j.startedAt = &now
	j.updatedAt = now
	rec := j.record()
	j.mu.Unlock()

	if err := j.queue.PersistUpdate(rec); err != nil {
		return err
	}
	j.queue.Publish(EventStart, j, nil)
	return nil
}

// SetStateToComplete marks successful completion: legal only from
// ACTIVE.
func (j *Job) SetStateToComplete(now time.Time, result interface{}) error {
	j.mu.Lock()
	if !CanTransition(j.state, StateComplete) {
		id, from := j.id, j.state
		j.mu.Unlock()
		return &TransitionError{JobID: id, From: from, To: StateComplete}
	}
	j.state = StateComplete
	j.completedAt = &now
	j.updatedAt = now
	if j.startedAt != nil {
		d := now.Sub(*j.startedAt)
		j.duration = &d
	}
	rec := j.record()
	j.mu.Unlock()

	if err := j.queue.PersistUpdate(rec); err != nil {
		return err
	}
	j.queue.Publish(EventComplete, j, result)
	return nil
}

// SetStateToFailure marks failure: legal from ACTIVE (processor error,
// shutdown timeout, or crash recovery).
func (j *Job) SetStateToFailure(now time.Time, cause error) error {
	j.mu.Lock()
	if !CanTransition(j.state, StateFailure) {
		id, from := j.id, j.state
		j.mu.Unlock()
		return &TransitionError{JobID: id, From: from, To: StateFailure}
	}
	j.state = StateFailure
	j.failedAt = &now
	j.updatedAt = now
	if j.startedAt != nil {
		d := now.Sub(*j.startedAt)
		j.duration = &d
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	j.logs = append(j.logs, msg)
	rec := j.record()
	j.mu.Unlock()

	if err := j.queue.PersistUpdate(rec); err != nil {
		return err
	}
	j.queue.Publish(EventFailure, j, cause)
	return nil
}

// SetProgress clamps done/total to a 0-100 percentage and persists it.
// Legal only from ACTIVE.
func (j *Job) SetProgress(done, total int) error {
	j.mu.Lock()
	if j.state != StateActive {
		id, from := j.id, j.state
		j.mu.Unlock()
		return &TransitionError{JobID: id, From: from, To: StateActive}
	}
	pct := 0
	if total > 0 {
		pct = done * 100 / total
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	j.progress = &pct
	j.updatedAt = time.Now()
	rec := j.record()
	j.mu.Unlock()

	if err := j.queue.PersistUpdate(rec); err != nil {
		return err
	}
	j.queue.Publish(EventProgress, j, pct)
	return nil
}

// SetPriority is legal only from INACTIVE — once a worker has claimed
// a job, re-ordering the queue behind it would have no effect.
func (j *Job) SetPriority(p Priority) error {
	j.mu.Lock()
	if j.state != StateInactive {
		id, from := j.id, j.state
		j.mu.Unlock()
		return &TransitionError{JobID: id, From: from, To: from}
	}
	j.priority = p
	j.updatedAt = time.Now()
	rec := j.record()
	j.mu.Unlock()

	return j.queue.PersistUpdate(rec)
}

// Log appends a message to the Job's log buffer and persists it.
func (j *Job) Log(msg string) error {
	j.mu.Lock()
	j.logs = append(j.logs, msg)
	j.updatedAt = time.Now()
	rec := j.record()
	j.mu.Unlock()

	return j.queue.PersistUpdate(rec)
}
