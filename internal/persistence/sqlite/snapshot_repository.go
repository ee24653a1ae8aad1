package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/snapshot"
)

// SnapshotRepository implements snapshot.Store on SQLite. At-most-once
// creation rides on the unique index over the key columns: the insert uses
// ON CONFLICT DO NOTHING and a zero row count means another writer won.
type SnapshotRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSnapshotRepository creates a new SQLite snapshot repository.
func NewSnapshotRepository(pool *ConnectionPool) *SnapshotRepository {
	return &SnapshotRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// Insert stores a snapshot if no snapshot exists for its key, otherwise
// returns snapshot.ErrDuplicateKey without touching the winner's row.
func (r *SnapshotRepository) Insert(ctx context.Context, snap snapshot.Snapshot) error {
	query := `
		INSERT INTO report_snapshots (id, report_type, period_type, jalali_year, jalali_month, jalali_week,
			user_id, domain_id, period_start, period_end, label, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_type, period_type, jalali_year, jalali_month, jalali_week, user_id, domain_id)
		DO NOTHING
	`

	result, err := r.helper.Exec(ctx, query,
		snap.ID,
		string(snap.Key.ReportType),
		string(snap.Key.PeriodType),
		snap.Key.Year,
		snap.Key.Month,
		snap.Key.Week,
		snap.Key.UserID,
		snap.Key.DomainID,
		snap.PeriodStart.UTC().Format(time.RFC3339Nano),
		snap.PeriodEnd.UTC().Format(time.RFC3339Nano),
		snap.Label,
		snap.Content,
		snap.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.mapper.MapError(err)
	}
	if affected == 0 {
		return snapshot.ErrDuplicateKey
	}
	return nil
}

// Get retrieves the snapshot stored under the key, or snapshot.ErrNotFound.
func (r *SnapshotRepository) Get(ctx context.Context, key snapshot.Key) (snapshot.Snapshot, error) {
	query := selectSnapshotColumns + `
		WHERE report_type = ? AND period_type = ? AND jalali_year = ? AND jalali_month = ?
			AND jalali_week = ? AND user_id = ? AND domain_id = ?`

	row := r.helper.QueryRow(ctx, query,
		string(key.ReportType),
		string(key.PeriodType),
		key.Year,
		key.Month,
		key.Week,
		key.UserID,
		key.DomainID,
	)
	snap, err := scanSnapshot(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return snapshot.Snapshot{}, snapshot.ErrNotFound
		}
		return snapshot.Snapshot{}, r.mapper.MapError(err)
	}
	return snap, nil
}

// ListForUser lists individual snapshots for a user, newest first.
func (r *SnapshotRepository) ListForUser(ctx context.Context, userID string) ([]snapshot.Snapshot, error) {
	query := selectSnapshotColumns + `
		WHERE report_type = ? AND user_id = ?
		ORDER BY created_at DESC, id`
	return r.listSnapshots(ctx, query, string(snapshot.ReportIndividual), userID)
}

// ListForDomain lists team snapshots for a domain, newest first.
func (r *SnapshotRepository) ListForDomain(ctx context.Context, domainID string) ([]snapshot.Snapshot, error) {
	query := selectSnapshotColumns + `
		WHERE report_type = ? AND domain_id = ?
		ORDER BY created_at DESC, id`
	return r.listSnapshots(ctx, query, string(snapshot.ReportTeam), domainID)
}

func (r *SnapshotRepository) listSnapshots(ctx context.Context, query string, args ...any) ([]snapshot.Snapshot, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var snaps []snapshot.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

const selectSnapshotColumns = `
	SELECT id, report_type, period_type, jalali_year, jalali_month, jalali_week,
		user_id, domain_id, period_start, period_end, label, content, created_at
	FROM report_snapshots`

func scanSnapshot(scan func(...any) error) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	var reportType, periodType string
	var startStr, endStr, createdAtStr string

	err := scan(
		&snap.ID,
		&reportType,
		&periodType,
		&snap.Key.Year,
		&snap.Key.Month,
		&snap.Key.Week,
		&snap.Key.UserID,
		&snap.Key.DomainID,
		&startStr,
		&endStr,
		&snap.Label,
		&snap.Content,
		&createdAtStr,
	)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	snap.Key.ReportType = snapshot.ReportType(reportType)
	snap.Key.PeriodType = period.Type(periodType)

	if snap.PeriodStart, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("failed to parse period_start: %w", err)
	}
	if snap.PeriodEnd, err = time.Parse(time.RFC3339Nano, endStr); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("failed to parse period_end: %w", err)
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return snap, nil
}
