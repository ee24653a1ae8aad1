package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/persistence"
	"github.com/example/karnameh/internal/snapshot"
)

// OccurrenceSource expands meetings into the occurrences falling inside a
// resolved period.
type OccurrenceSource interface {
	OccurrencesWithin(ctx context.Context, participantID string, p period.Resolved) ([]Occurrence, error)
}

// Report is the assembled payload for a reporting period. Snapshots store
// its JSON encoding verbatim.
type Report struct {
	Label         string       `json:"label"`
	PeriodStart   time.Time    `json:"period_start"`
	PeriodEnd     time.Time    `json:"period_end"`
	TotalMeetings int          `json:"total_meetings"`
	TotalMinutes  int          `json:"total_minutes"`
	Occurrences   []Occurrence `json:"occurrences"`
}

// ReportService builds live reports and manages frozen snapshots for closed
// periods.
type ReportService struct {
	occurrences OccurrenceSource
	snapshots   *snapshot.Service
	users       persistence.UserRepository
	resolver    *period.Resolver
	logger      *slog.Logger
}

// NewReportService wires dependencies for report operations.
func NewReportService(occurrences OccurrenceSource, snapshots *snapshot.Service, users persistence.UserRepository, resolver *period.Resolver, logger *slog.Logger) *ReportService {
	return &ReportService{
		occurrences: occurrences,
		snapshots:   snapshots,
		users:       users,
		resolver:    resolver,
		logger:      defaultLogger(logger),
	}
}

// ResolvePeriod maps a Jalali period descriptor to its Gregorian range.
func (s *ReportService) ResolvePeriod(desc period.Descriptor) (period.Resolved, error) {
	return s.resolver.Resolve(desc)
}

// LiveReport assembles a report for any period, open or closed, without
// persisting anything. Individual reports cover one user; callers may only
// request their own unless they are admins.
func (s *ReportService) LiveReport(ctx context.Context, principal Principal, userID string, desc period.Descriptor) (Report, error) {
	if userID != principal.UserID && !principal.IsAdmin {
		return Report{}, ErrUnauthorized
	}

	p, err := s.resolver.Resolve(desc)
	if err != nil {
		return Report{}, err
	}
	return s.assembleIndividual(ctx, userID, p)
}

// EnsureSnapshot returns the frozen snapshot for the key, creating it first
// if the period is closed and no snapshot exists yet. Creation happens at
// most once per key regardless of concurrent callers.
func (s *ReportService) EnsureSnapshot(ctx context.Context, principal Principal, key snapshot.Key) (snapshot.Snapshot, error) {
	logger := serviceLogger(ctx, s.logger, "report", "ensure_snapshot", "key", key.String())

	if err := s.authorizeEnsure(principal, key); err != nil {
		return snapshot.Snapshot{}, err
	}

	snap, err := s.snapshots.Ensure(ctx, key, s.producerFor(key))
	if err != nil {
		logger.Warn("snapshot not created", "error", err, "kind", ErrorKind(err))
		return snapshot.Snapshot{}, err
	}
	return snap, nil
}

// GetSnapshot returns an existing snapshot without creating one.
func (s *ReportService) GetSnapshot(ctx context.Context, principal Principal, key snapshot.Key) (snapshot.Snapshot, error) {
	if err := s.authorizeRead(principal, key.ReportType, key.UserID, key.DomainID); err != nil {
		return snapshot.Snapshot{}, err
	}
	snap, err := s.snapshots.Get(ctx, key)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return snapshot.Snapshot{}, ErrNotFound
		}
		return snapshot.Snapshot{}, err
	}
	return snap, nil
}

// ListUserSnapshots lists a user's individual snapshots, newest first.
func (s *ReportService) ListUserSnapshots(ctx context.Context, principal Principal, userID string) ([]snapshot.Snapshot, error) {
	if err := s.authorizeRead(principal, snapshot.ReportIndividual, userID, ""); err != nil {
		return nil, err
	}
	return s.snapshots.ListForUser(ctx, userID)
}

// ListDomainSnapshots lists a domain's team snapshots, newest first.
func (s *ReportService) ListDomainSnapshots(ctx context.Context, principal Principal, domainID string) ([]snapshot.Snapshot, error) {
	if err := s.authorizeRead(principal, snapshot.ReportTeam, "", domainID); err != nil {
		return nil, err
	}
	return s.snapshots.ListForDomain(ctx, domainID)
}

func (s *ReportService) authorizeEnsure(principal Principal, key snapshot.Key) error {
	switch key.ReportType {
	case snapshot.ReportIndividual:
		if key.UserID != principal.UserID && !principal.IsAdmin {
			return ErrUnauthorized
		}
	case snapshot.ReportTeam:
		if !principal.IsAdmin {
			return ErrUnauthorized
		}
	}
	return nil
}

func (s *ReportService) authorizeRead(principal Principal, reportType snapshot.ReportType, userID, domainID string) error {
	if principal.IsAdmin {
		return nil
	}
	switch reportType {
	case snapshot.ReportIndividual:
		if userID != principal.UserID {
			return ErrUnauthorized
		}
	case snapshot.ReportTeam:
		if domainID != principal.DomainID {
			return ErrUnauthorized
		}
	}
	return nil
}

// producerFor builds the content producer handed to the snapshot service.
// Individual reports cover the keyed user; team reports merge every active
// member of the keyed domain.
func (s *ReportService) producerFor(key snapshot.Key) snapshot.ContentProducer {
	return func(ctx context.Context, p period.Resolved) ([]byte, error) {
		var report Report
		var err error
		switch key.ReportType {
		case snapshot.ReportTeam:
			report, err = s.assembleTeam(ctx, key.DomainID, p)
		default:
			report, err = s.assembleIndividual(ctx, key.UserID, p)
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal(report)
	}
}

func (s *ReportService) assembleIndividual(ctx context.Context, userID string, p period.Resolved) (Report, error) {
	occurrences, err := s.occurrences.OccurrencesWithin(ctx, userID, p)
	if err != nil {
		return Report{}, err
	}
	return summarize(p, occurrences), nil
}

func (s *ReportService) assembleTeam(ctx context.Context, domainID string, p period.Resolved) (Report, error) {
	users, err := s.users.ListActiveUsers(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list domain members: %w", err)
	}

	var merged []Occurrence
	seen := make(map[string]bool)
	for _, user := range users {
		if user.DomainID != domainID {
			continue
		}
		occurrences, err := s.occurrences.OccurrencesWithin(ctx, user.ID, p)
		if err != nil {
			return Report{}, err
		}
		for _, occ := range occurrences {
			if seen[occ.MeetingID] {
				continue
			}
			seen[occ.MeetingID] = true
			merged = append(merged, occ)
		}
	}
	slices.SortFunc(merged, func(a, b Occurrence) int {
		return a.StartsAt.Compare(b.StartsAt)
	})
	return summarize(p, merged), nil
}

func summarize(p period.Resolved, occurrences []Occurrence) Report {
	report := Report{
		Label:       p.Label,
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
		Occurrences: occurrences,
	}
	for _, occ := range occurrences {
		report.TotalMeetings++
		report.TotalMinutes += occ.DurationMinutes
	}
	return report
}
