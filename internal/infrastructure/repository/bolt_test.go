package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
)

func newBoltRepo(t *testing.T) *BoltRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.db")
	repo := NewBoltRepository(path, true, nil)
	if err := repo.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestBoltRepositoryInsertFindRemove(t *testing.T) {
	repo := newBoltRepo(t)
	rec := newRecord("a", "t", domain.PriorityNormal, domain.StateInactive, time.Now())

	if err := repo.Insert(rec); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	found, err := repo.Find("a")
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if found == nil || found.ID != "a" {
		t.Fatalf("Find() = %v, want record a", found)
	}

	if err := repo.Remove("a"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	found, err = repo.Find("a")
	if err != nil {
		t.Fatalf("Find() after Remove() error: %v", err)
	}
	if found != nil {
		t.Fatalf("Find() after Remove() = %v, want nil", found)
	}
}

func TestBoltRepositoryInsertCollision(t *testing.T) {
	repo := newBoltRepo(t)
	rec := newRecord("a", "t", domain.PriorityNormal, domain.StateInactive, time.Now())
	if err := repo.Insert(rec); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := repo.Insert(rec); !errors.Is(err, domain.ErrIDCollision) {
		t.Fatalf("second Insert() = %v, want ErrIDCollision", err)
	}
}

func TestBoltRepositoryFindNextInactiveByTypeOrdering(t *testing.T) {
	repo := newBoltRepo(t)
	t0 := time.Now()

	j1 := newRecord("j1", "T", domain.PriorityNormal, domain.StateInactive, t0.Add(1*time.Second))
	j2 := newRecord("j2", "T", domain.PriorityHigh, domain.StateInactive, t0.Add(2*time.Second))
	other := newRecord("o1", "OTHER", domain.PriorityCritical, domain.StateInactive, t0)

	for _, r := range []*domain.Record{j1, j2, other} {
		if err := repo.Insert(r); err != nil {
			t.Fatalf("Insert(%s) error: %v", r.ID, err)
		}
	}

	best, err := repo.FindNextInactiveByType("T")
	if err != nil {
		t.Fatalf("FindNextInactiveByType() error: %v", err)
	}
	if best == nil || best.ID != "j2" {
		t.Fatalf("FindNextInactiveByType() = %v, want j2", best)
	}
}

func TestBoltRepositoryDurationRoundTrips(t *testing.T) {
	repo := newBoltRepo(t)
	now := time.Now()
	dur := 250 * time.Millisecond
	rec := newRecord("a", "t", domain.PriorityNormal, domain.StateComplete, now)
	rec.StartedAt = &now
	completed := now.Add(dur)
	rec.CompletedAt = &completed
	rec.Duration = &dur

	if err := repo.Insert(rec); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	found, err := repo.Find("a")
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if found.Duration == nil || *found.Duration != dur {
		t.Fatalf("Duration = %v, want %v", found.Duration, dur)
	}
}
