// Package repository is the thin persistence facade the Queue uses to
// talk to the embedded document store. It owns the on-disk schema and
// exposes CRUD plus the one specialized query the dispatch core needs:
// the next inactive job of a type, in priority order.
package repository

import (
	"fmt"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
)

// Repository is the contract spec.md §4.1 describes. Both backends in
// this package (Memory, Bolt) implement it identically from the
// caller's point of view.
type Repository interface {
	// Init loads or creates the backing store. Idempotent.
	Init() error

	// List returns all jobs, optionally filtered by state, sorted by
	// createdAt ascending. A nil state returns every job.
	List(state *domain.State) ([]*domain.Record, error)

	// Find returns the job with the given id, or (nil, nil) if absent.
	Find(id string) (*domain.Record, error)

	// FindNextInactiveByType returns the single highest-priority,
	// oldest-first inactive job of that type, or (nil, nil) if none.
	// Ties on (priority, createdAt) break on id for determinism.
	FindNextInactiveByType(jobType string) (*domain.Record, error)

	// Exists reports whether a job with the given id is stored.
	Exists(id string) (bool, error)

	// Insert persists a new row. Fails with domain.ErrIDCollision if
	// the id is already present.
	Insert(rec *domain.Record) error

	// Update replaces mutable fields by id. Fails with
	// domain.ErrUpdateNoMatch if the row is absent.
	Update(rec *domain.Record) error

	// Remove deletes by id. Silent if the id is already absent.
	Remove(id string) error

	// Close releases any resources held by the backend.
	Close() error
}

// WarnFunc receives a warning message when a stored priority value is
// coerced to domain.PriorityNormal during load.
type WarnFunc func(msg string, keysAndValues ...interface{})

// Options selects and configures a backend.
type Options struct {
	// Backend is "memory" or "bolt". Defaults to "memory".
	Backend string
	// Filename is the bbolt database file path. Required for "bolt".
	Filename string
	// InMemory forces the memory backend regardless of Backend.
	InMemory bool
	// Autoload controls whether Init attempts to open an existing
	// file (true) or always starts from an empty store (false).
	Autoload bool
	// Warn receives priority-sanitization warnings. May be nil.
	Warn WarnFunc
}

// New constructs the Repository selected by opts. Callers must still
// call Init before using it.
func New(opts Options) (Repository, error) {
	if opts.InMemory || opts.Backend == "" || opts.Backend == "memory" {
		return NewMemoryRepository(opts.Warn), nil
	}
	if opts.Backend == "bolt" {
		if opts.Filename == "" {
			return nil, fmt.Errorf("repository: bolt backend requires a filename")
		}
		return NewBoltRepository(opts.Filename, opts.Autoload, opts.Warn), nil
	}
	return nil, fmt.Errorf("repository: unknown backend %q", opts.Backend)
}

func sanitize(rec *domain.Record, warn WarnFunc) {
	if rec == nil {
		return
	}
	sanitized, coerced := domain.SanitizePriority(rec.Priority)
	if coerced && warn != nil {
		warn("coercing unknown priority to normal", "job_id", rec.ID, "stored_priority", int(rec.Priority))
	}
	rec.Priority = sanitized
}
