package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
)

var jobsBucket = []byte("jobs")

// BoltRepository persists jobs as JSON documents in a single bbolt
// bucket keyed by job id. bbolt gives us the atomic single-document
// update/insert/delete and the ordered-key scan the document store
// contract assumes; the priority/createdAt ordering for
// FindNextInactiveByType is computed over a bucket scan, same as the
// in-memory backend, since bbolt has no secondary index of its own.
type BoltRepository struct {
	path     string
	autoload bool
	warn     WarnFunc
	db       *bolt.DB
}

// NewBoltRepository constructs a BoltRepository. Call Init before use.
func NewBoltRepository(path string, autoload bool, warn WarnFunc) *BoltRepository {
	return &BoltRepository{path: path, autoload: autoload, warn: warn}
}

// Init opens (or creates) the database file and its bucket. Idempotent.
func (b *BoltRepository) Init() error {
	if b.db != nil {
		return nil
	}
	if !b.autoload {
		_ = os.Remove(b.path)
	}
	db, err := bolt.Open(b.path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("repository: open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(jobsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return fmt.Errorf("repository: create bucket: %w", err)
	}
	b.db = db
	return nil
}

func (b *BoltRepository) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

type boltDoc struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Priority    domain.Priority `json:"priority"`
	Data        []byte         `json:"data"`
	State       domain.State   `json:"state"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	FailedAt    *time.Time     `json:"failedAt,omitempty"`
	DurationMs  *int64         `json:"durationMs,omitempty"`
	Progress    *int           `json:"progress,omitempty"`
	Logs        []string       `json:"logs"`
}

func toDoc(rec *domain.Record) *boltDoc {
	d := &boltDoc{
		ID:          rec.ID,
		Type:        rec.Type,
		Priority:    rec.Priority,
		Data:        rec.Data,
		State:       rec.State,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
		FailedAt:    rec.FailedAt,
		Progress:    rec.Progress,
		Logs:        rec.Logs,
	}
	if rec.Duration != nil {
		ms := rec.Duration.Milliseconds()
		d.DurationMs = &ms
	}
	return d
}

func fromDoc(d *boltDoc) *domain.Record {
	rec := &domain.Record{
		ID:          d.ID,
		Type:        d.Type,
		Priority:    d.Priority,
		Data:        d.Data,
		State:       d.State,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		StartedAt:   d.StartedAt,
		CompletedAt: d.CompletedAt,
		FailedAt:    d.FailedAt,
		Progress:    d.Progress,
		Logs:        d.Logs,
	}
	if d.DurationMs != nil {
		dur := time.Duration(*d.DurationMs) * time.Millisecond
		rec.Duration = &dur
	}
	return rec
}

func (b *BoltRepository) List(state *domain.State) ([]*domain.Record, error) {
	var out []*domain.Record
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(jobsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var d boltDoc
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("repository: decode %s: %w", k, err)
			}
			rec := fromDoc(&d)
			if state != nil && rec.State != *state {
				continue
			}
			sanitize(rec, b.warn)
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(out)
	return out, nil
}

func (b *BoltRepository) Find(id string) (*domain.Record, error) {
	var rec *domain.Record
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(jobsBucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		var d boltDoc
		if err := json.Unmarshal(v, &d); err != nil {
			return fmt.Errorf("repository: decode %s: %w", id, err)
		}
		rec = fromDoc(&d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sanitize(rec, b.warn)
	return rec, nil
}

func (b *BoltRepository) FindNextInactiveByType(jobType string) (*domain.Record, error) {
	var best *domain.Record
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(jobsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var d boltDoc
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("repository: decode %s: %w", k, err)
			}
			if d.Type != jobType || d.State != domain.StateInactive {
				continue
			}
			rec := fromDoc(&d)
			if best == nil || isBetterCandidate(rec, best) {
				best = rec
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sanitize(best, b.warn)
	return best, nil
}

func (b *BoltRepository) Exists(id string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(jobsBucket).Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

func (b *BoltRepository) Insert(rec *domain.Record) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(jobsBucket)
		if bucket.Get([]byte(rec.ID)) != nil {
			return domain.ErrIDCollision
		}
		payload, err := json.Marshal(toDoc(rec))
		if err != nil {
			return fmt.Errorf("repository: encode %s: %w", rec.ID, err)
		}
		return bucket.Put([]byte(rec.ID), payload)
	})
}

func (b *BoltRepository) Update(rec *domain.Record) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(jobsBucket)
		if bucket.Get([]byte(rec.ID)) == nil {
			return domain.ErrUpdateNoMatch
		}
		payload, err := json.Marshal(toDoc(rec))
		if err != nil {
			return fmt.Errorf("repository: encode %s: %w", rec.ID, err)
		}
		return bucket.Put([]byte(rec.ID), payload)
	})
}

func (b *BoltRepository) Remove(id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(jobsBucket).Delete([]byte(id))
	})
}

func sortByCreatedAt(recs []*domain.Record) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].CreatedAt.Before(recs[j-1].CreatedAt); j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}
