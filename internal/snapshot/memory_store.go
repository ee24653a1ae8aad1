package snapshot

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and by deployments that
// do not need durable snapshots. The map key is the full identity tuple, so
// the insert-if-absent semantics match the SQL store's uniqueness
// constraint.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[Key]Snapshot
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[Key]Snapshot)}
}

// Insert stores the snapshot unless its key already exists.
func (m *MemoryStore) Insert(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[snap.Key]; ok {
		return ErrDuplicateKey
	}
	m.items[snap.Key] = snap.clone()
	return nil
}

// Get retrieves a snapshot by key.
func (m *MemoryStore) Get(ctx context.Context, key Key) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.items[key]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap.clone(), nil
}

// ListForUser returns individual snapshots for the user, newest first.
func (m *MemoryStore) ListForUser(ctx context.Context, userID string) ([]Snapshot, error) {
	return m.list(func(s Snapshot) bool {
		return s.Key.ReportType == ReportIndividual && s.Key.UserID == userID
	}), nil
}

// ListForDomain returns team snapshots for the domain, newest first.
func (m *MemoryStore) ListForDomain(ctx context.Context, domainID string) ([]Snapshot, error) {
	return m.list(func(s Snapshot) bool {
		return s.Key.ReportType == ReportTeam && s.Key.DomainID == domainID
	}), nil
}

func (m *MemoryStore) list(match func(Snapshot) bool) []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0)
	for _, snap := range m.items {
		if match(snap) {
			out = append(out, snap.clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}
