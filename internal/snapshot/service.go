// Package snapshot owns the lifecycle of saved report snapshots: deciding
// when a reporting period has closed, materializing its content exactly
// once, and guaranteeing it never changes afterwards.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/karnameh/internal/period"
)

var (
	// ErrNotFound is returned when no snapshot exists for a key.
	ErrNotFound = errors.New("snapshot: not found")
	// ErrDuplicateKey is returned by a store insert losing the uniqueness
	// race; the caller reads back the winner's row.
	ErrDuplicateKey = errors.New("snapshot: duplicate key")
	// ErrPeriodOpen rejects snapshot creation for a period that has not
	// fully elapsed yet.
	ErrPeriodOpen = errors.New("snapshot: period has not closed")
)

// Snapshot is an immutable, point-in-time-frozen report for a closed
// period. Content is an opaque payload copied verbatim from the producer;
// it is never regenerated or patched after creation.
type Snapshot struct {
	ID          string
	Key         Key
	PeriodStart time.Time
	PeriodEnd   time.Time
	Label       string
	Content     []byte
	CreatedAt   time.Time
}

// clone returns a deep copy so callers can never mutate stored content.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Content = append([]byte(nil), s.Content...)
	return out
}

// Store persists snapshots. Insert must be atomic "insert if absent":
// implementations back it with a uniqueness constraint over the key tuple
// and surface the losing write as ErrDuplicateKey, never as a second row
// or a partial one.
type Store interface {
	Insert(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, key Key) (Snapshot, error)
	ListForUser(ctx context.Context, userID string) ([]Snapshot, error)
	ListForDomain(ctx context.Context, domainID string) ([]Snapshot, error)
}

// ContentProducer assembles the frozen payload for a resolved period. It is
// the external report-assembly collaborator; the service only hands it the
// date range.
type ContentProducer func(ctx context.Context, p period.Resolved) ([]byte, error)

// Service implements the snapshot lifecycle over an injected store and
// period resolver.
type Service struct {
	store    Store
	resolver *period.Resolver
	idGen    func() string
	now      func() time.Time
	logger   *slog.Logger
}

// NewService wires the lifecycle dependencies. idGen and now default to
// empty ids and wall-clock time when nil.
func NewService(store Store, resolver *period.Resolver, idGen func() string, now func() time.Time, logger *slog.Logger) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, resolver: resolver, idGen: idGen, now: now, logger: logger}
}

// Resolve validates the key and returns its concrete period.
func (s *Service) Resolve(key Key) (period.Resolved, error) {
	if err := key.Validate(); err != nil {
		return period.Resolved{}, err
	}
	return s.resolver.Resolve(key.Descriptor())
}

// Closed reports whether the resolved period's final instant is strictly in
// the past. Only closed periods may be frozen.
func (s *Service) Closed(p period.Resolved) bool {
	return p.End.Before(s.now())
}

// Ensure returns the snapshot for the key, creating it at most once.
//
// The fast path is a plain read. On a miss the producer runs exactly once
// for this caller and the result is inserted; a concurrent creator winning
// the store's uniqueness race simply causes the loser to discard its
// content and return the winner's row. A producer failure propagates with
// nothing persisted, so the key stays available for retry.
func (s *Service) Ensure(ctx context.Context, key Key, producer ContentProducer) (Snapshot, error) {
	resolved, err := s.Resolve(key)
	if err != nil {
		return Snapshot{}, err
	}
	if !s.Closed(resolved) {
		return Snapshot{}, fmt.Errorf("%w: %s ends %s", ErrPeriodOpen, key, resolved.End.Format(time.RFC3339))
	}

	existing, err := s.store.Get(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Snapshot{}, fmt.Errorf("snapshot: read %s: %w", key, err)
	}

	content, err := producer(ctx, resolved)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: produce content for %s: %w", key, err)
	}

	snap := Snapshot{
		ID:          s.idGen(),
		Key:         key,
		PeriodStart: resolved.Start,
		PeriodEnd:   resolved.End,
		Label:       resolved.Label,
		Content:     content,
		CreatedAt:   s.now().UTC(),
	}.clone()

	if err := s.store.Insert(ctx, snap); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			s.logger.InfoContext(ctx, "snapshot race lost, returning winner", "key", key.String())
			winner, getErr := s.store.Get(ctx, key)
			if getErr != nil {
				return Snapshot{}, fmt.Errorf("snapshot: read winner for %s: %w", key, getErr)
			}
			return winner, nil
		}
		return Snapshot{}, fmt.Errorf("snapshot: insert %s: %w", key, err)
	}

	s.logger.InfoContext(ctx, "snapshot created", "key", key.String(), "label", snap.Label)
	return snap, nil
}

// Get returns the stored snapshot for a key.
func (s *Service) Get(ctx context.Context, key Key) (Snapshot, error) {
	if err := key.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s.store.Get(ctx, key)
}

// ListForUser returns the individual snapshots belonging to a user.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Snapshot, error) {
	return s.store.ListForUser(ctx, userID)
}

// ListForDomain returns the team snapshots of a domain.
func (s *Service) ListForDomain(ctx context.Context, domainID string) ([]Snapshot, error) {
	return s.store.ListForDomain(ctx, domainID)
}
