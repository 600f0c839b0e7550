package repository

import (
	"sort"
	"sync"

	"github.com/oznakn/enhanced-embedded-queue/internal/core/domain"
)

// MemoryRepository is an in-process, map-backed Repository. It mirrors
// the teacher's MemoryJobStorage: a mutex-guarded map plus full-scan
// sort for the priority query, trading index structure for simplicity
// since the document store contract only requires correctness, not a
// particular data structure.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*domain.Record
	warn WarnFunc
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository(warn WarnFunc) *MemoryRepository {
	return &MemoryRepository{
		rows: make(map[string]*domain.Record),
		warn: warn,
	}
}

// Init is a no-op: the memory backend has nothing to load.
func (m *MemoryRepository) Init() error { return nil }

// Close is a no-op for the memory backend.
func (m *MemoryRepository) Close() error { return nil }

func copyRecord(rec *domain.Record) *domain.Record {
	c := *rec
	c.Data = append([]byte(nil), rec.Data...)
	c.Logs = append([]string(nil), rec.Logs...)
	return &c
}

func (m *MemoryRepository) List(state *domain.State) ([]*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Record, 0, len(m.rows))
	for _, rec := range m.rows {
		if state != nil && rec.State != *state {
			continue
		}
		c := copyRecord(rec)
		sanitize(c, m.warn)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) Find(id string) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	c := copyRecord(rec)
	sanitize(c, m.warn)
	return c, nil
}

func (m *MemoryRepository) FindNextInactiveByType(jobType string) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *domain.Record
	for _, rec := range m.rows {
		if rec.Type != jobType || rec.State != domain.StateInactive {
			continue
		}
		if best == nil || isBetterCandidate(rec, best) {
			best = rec
		}
	}
	if best == nil {
		return nil, nil
	}
	c := copyRecord(best)
	sanitize(c, m.warn)
	return c, nil
}

// isBetterCandidate reports whether a should be preferred over b under
// the (priority asc, createdAt asc, id asc) ordering.
func isBetterCandidate(a, b *domain.Record) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (m *MemoryRepository) Exists(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *MemoryRepository) Insert(rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rows[rec.ID]; exists {
		return domain.ErrIDCollision
	}
	m.rows[rec.ID] = copyRecord(rec)
	return nil
}

func (m *MemoryRepository) Update(rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rows[rec.ID]; !exists {
		return domain.ErrUpdateNoMatch
	}
	m.rows[rec.ID] = copyRecord(rec)
	return nil
}

func (m *MemoryRepository) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}
