package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/karnameh/internal/persistence"
)

// MeetingRepository implements persistence.MeetingRepository using SQLite.
type MeetingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMeetingRepository creates a new SQLite meeting repository.
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateMeeting inserts a new meeting with its participants.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO meetings (id, topic, meeting_type, location, summary, starts_at, duration_minutes,
				recurrence_type, recurrence_interval, recurrence_end_date, recurrence_count, recurrence_calendar,
				created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := r.helper.ExecTx(tx, query,
			meeting.ID,
			meeting.Topic,
			meeting.MeetingType,
			nullString(meeting.Location),
			nullString(meeting.Summary),
			meeting.StartsAt.UTC().Format(time.RFC3339Nano),
			meeting.DurationMinutes,
			meeting.RecurrenceType,
			meeting.RecurrenceInterval,
			nullTime(meeting.RecurrenceEndDate),
			nullInt(meeting.RecurrenceCount),
			meeting.RecurrenceCalendar,
			meeting.CreatedBy,
			meeting.CreatedAt.Format(time.RFC3339Nano),
			meeting.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertParticipants(tx, meeting.ID, meeting.Participants)
	})
}

// UpdateMeeting updates an existing meeting and its participants. The creator
// is never changed.
func (r *MeetingRepository) UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" {
		return persistence.ErrConstraintViolation
	}

	meeting.UpdatedAt = time.Now().UTC()

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := r.helper.QueryRowTx(tx, `SELECT 1 FROM meetings WHERE id = ?`, meeting.ID).Scan(&exists)
		if err != nil {
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}

		query := `
			UPDATE meetings
			SET topic = ?, meeting_type = ?, location = ?, summary = ?, starts_at = ?, duration_minutes = ?,
				recurrence_type = ?, recurrence_interval = ?, recurrence_end_date = ?, recurrence_count = ?,
				recurrence_calendar = ?, updated_at = ?
			WHERE id = ?
		`

		_, err = r.helper.ExecTx(tx, query,
			meeting.Topic,
			meeting.MeetingType,
			nullString(meeting.Location),
			nullString(meeting.Summary),
			meeting.StartsAt.UTC().Format(time.RFC3339Nano),
			meeting.DurationMinutes,
			meeting.RecurrenceType,
			meeting.RecurrenceInterval,
			nullTime(meeting.RecurrenceEndDate),
			nullInt(meeting.RecurrenceCount),
			meeting.RecurrenceCalendar,
			meeting.UpdatedAt.Format(time.RFC3339Nano),
			meeting.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		if _, err := r.helper.ExecTx(tx, `DELETE FROM meeting_participants WHERE meeting_id = ?`, meeting.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertParticipants(tx, meeting.ID, meeting.Participants)
	})
}

// GetMeeting retrieves a meeting by ID.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	if id == "" {
		return persistence.Meeting{}, persistence.ErrNotFound
	}

	query := selectMeetingColumns + ` WHERE id = ?`

	row := r.helper.QueryRow(ctx, query, id)
	meeting, err := scanMeeting(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Meeting{}, persistence.ErrNotFound
		}
		return persistence.Meeting{}, r.mapper.MapError(err)
	}

	participants, err := r.loadParticipants(ctx, id)
	if err != nil {
		return persistence.Meeting{}, err
	}
	meeting.Participants = participants

	return meeting, nil
}

// ListMeetings lists meetings matching the filter, ordered by start time.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	query, args := buildMeetingListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range meetings {
		participants, err := r.loadParticipants(ctx, meetings[i].ID)
		if err != nil {
			return nil, err
		}
		meetings[i].Participants = participants
	}

	return meetings, nil
}

// DeleteMeeting removes a meeting and its participants.
func (r *MeetingRepository) DeleteMeeting(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, `DELETE FROM meeting_participants WHERE meeting_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		result, err := r.helper.ExecTx(tx, `DELETE FROM meetings WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return r.mapper.MapError(err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

const selectMeetingColumns = `
	SELECT id, topic, meeting_type, location, summary, starts_at, duration_minutes,
		recurrence_type, recurrence_interval, recurrence_end_date, recurrence_count, recurrence_calendar,
		created_by, created_at, updated_at
	FROM meetings`

func scanMeeting(scan func(...any) error) (persistence.Meeting, error) {
	var meeting persistence.Meeting
	var location, summary, recEndStr sql.NullString
	var recCount sql.NullInt64
	var startsAtStr, createdAtStr, updatedAtStr string

	err := scan(
		&meeting.ID,
		&meeting.Topic,
		&meeting.MeetingType,
		&location,
		&summary,
		&startsAtStr,
		&meeting.DurationMinutes,
		&meeting.RecurrenceType,
		&meeting.RecurrenceInterval,
		&recEndStr,
		&recCount,
		&meeting.RecurrenceCalendar,
		&meeting.CreatedBy,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Meeting{}, err
	}

	if location.Valid {
		meeting.Location = &location.String
	}
	if summary.Valid {
		meeting.Summary = &summary.String
	}
	if recCount.Valid {
		count := int(recCount.Int64)
		meeting.RecurrenceCount = &count
	}
	if recEndStr.Valid {
		end, err := time.Parse(time.RFC3339Nano, recEndStr.String)
		if err != nil {
			return persistence.Meeting{}, fmt.Errorf("failed to parse recurrence_end_date: %w", err)
		}
		meeting.RecurrenceEndDate = &end
	}

	if meeting.StartsAt, err = time.Parse(time.RFC3339Nano, startsAtStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("failed to parse starts_at: %w", err)
	}
	if meeting.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if meeting.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr); err != nil {
		return persistence.Meeting{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return meeting, nil
}

func buildMeetingListQuery(filter persistence.MeetingFilter) (string, []any) {
	query := selectMeetingColumns
	var clauses []string
	var args []any

	if filter.ParticipantID != "" {
		clauses = append(clauses, `id IN (SELECT meeting_id FROM meeting_participants WHERE user_id = ?)`)
		args = append(args, filter.ParticipantID)
	}
	if filter.CreatedBy != "" {
		clauses = append(clauses, `created_by = ?`)
		args = append(args, filter.CreatedBy)
	}
	if filter.StartsAfter != nil {
		clauses = append(clauses, `starts_at >= ?`)
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339Nano))
	}
	if filter.StartsBefore != nil {
		clauses = append(clauses, `starts_at < ?`)
		args = append(args, filter.StartsBefore.UTC().Format(time.RFC3339Nano))
	}

	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY starts_at, id"

	return query, args
}

func (r *MeetingRepository) insertParticipants(tx *sql.Tx, meetingID string, participants []string) error {
	for _, userID := range participants {
		_, err := r.helper.ExecTx(tx,
			`INSERT OR IGNORE INTO meeting_participants (meeting_id, user_id) VALUES (?, ?)`,
			meetingID, userID)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *MeetingRepository) loadParticipants(ctx context.Context, meetingID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT user_id FROM meeting_participants WHERE meeting_id = ? ORDER BY user_id`, meetingID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		participants = append(participants, userID)
	}
	return participants, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
