package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/karnameh/internal/conflict"
	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/persistence"
	"github.com/example/karnameh/internal/recurrence"
)

// UserDirectory exposes the user lookups needed by meeting validation.
type UserDirectory interface {
	MissingUserIDs(ctx context.Context, ids []string) ([]string, error)
}

// MeetingService orchestrates validation, persistence and recurrence
// expansion for meeting operations.
type MeetingService struct {
	meetings    persistence.MeetingRepository
	users       UserDirectory
	engine      *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService wires dependencies for meeting operations.
func NewMeetingService(meetings persistence.MeetingRepository, users UserDirectory, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:    meetings,
		users:       users,
		engine:      engine,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateMeeting validates the request before delegating to persistence.
func (s *MeetingService) CreateMeeting(ctx context.Context, params CreateMeetingParams) (Meeting, error) {
	logger := serviceLogger(ctx, s.logger, "meeting", "create")
	input := params.Input

	if err := s.validateInput(ctx, input); err != nil {
		return Meeting{}, err
	}

	participants := uniqueStrings(append(slices.Clone(input.ParticipantIDs), params.Principal.UserID))

	record := persistence.Meeting{
		ID:              s.idGenerator(),
		Topic:           strings.TrimSpace(input.Topic),
		MeetingType:     input.MeetingType,
		Location:        input.Location,
		Summary:         input.Summary,
		StartsAt:        input.StartsAt,
		DurationMinutes: input.DurationMinutes,
		CreatedBy:       params.Principal.UserID,
		Participants:    participants,
	}
	applyRule(&record, input.Recurrence)

	if err := s.meetings.CreateMeeting(ctx, record); err != nil {
		logger.Error("failed to create meeting", "error", err)
		return Meeting{}, err
	}

	logger.Info("meeting created", "meeting_id", record.ID, "recurrence", record.RecurrenceType)
	s.warnDoubleBookings(ctx, logger, record)
	return s.GetMeeting(ctx, record.ID)
}

// UpdateMeeting replaces a meeting's mutable fields. Only the creator or an
// admin may update.
func (s *MeetingService) UpdateMeeting(ctx context.Context, params UpdateMeetingParams) (Meeting, error) {
	logger := serviceLogger(ctx, s.logger, "meeting", "update", "meeting_id", params.MeetingID)

	existing, err := s.meetings.GetMeeting(ctx, params.MeetingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Meeting{}, ErrNotFound
		}
		return Meeting{}, err
	}
	if existing.CreatedBy != params.Principal.UserID && !params.Principal.IsAdmin {
		return Meeting{}, ErrUnauthorized
	}

	input := params.Input
	if err := s.validateInput(ctx, input); err != nil {
		return Meeting{}, err
	}

	existing.Topic = strings.TrimSpace(input.Topic)
	existing.MeetingType = input.MeetingType
	existing.Location = input.Location
	existing.Summary = input.Summary
	existing.StartsAt = input.StartsAt
	existing.DurationMinutes = input.DurationMinutes
	existing.Participants = uniqueStrings(append(slices.Clone(input.ParticipantIDs), existing.CreatedBy))
	applyRule(&existing, input.Recurrence)

	if err := s.meetings.UpdateMeeting(ctx, existing); err != nil {
		logger.Error("failed to update meeting", "error", err)
		return Meeting{}, err
	}

	logger.Info("meeting updated")
	s.warnDoubleBookings(ctx, logger, existing)
	return s.GetMeeting(ctx, existing.ID)
}

// GetMeeting returns a meeting by ID.
func (s *MeetingService) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	record, err := s.meetings.GetMeeting(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Meeting{}, ErrNotFound
		}
		return Meeting{}, err
	}
	return toMeeting(record), nil
}

// ListMeetings lists meetings visible under the filter, ordered by start.
func (s *MeetingService) ListMeetings(ctx context.Context, params ListMeetingsParams) ([]Meeting, error) {
	records, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{
		ParticipantID: params.ParticipantID,
		StartsAfter:   params.StartsAfter,
		StartsBefore:  params.StartsBefore,
	})
	if err != nil {
		return nil, err
	}
	meetings := make([]Meeting, 0, len(records))
	for _, record := range records {
		meetings = append(meetings, toMeeting(record))
	}
	return meetings, nil
}

// DeleteMeeting removes a meeting. Only the creator or an admin may delete.
func (s *MeetingService) DeleteMeeting(ctx context.Context, principal Principal, id string) error {
	logger := serviceLogger(ctx, s.logger, "meeting", "delete", "meeting_id", id)

	existing, err := s.meetings.GetMeeting(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if existing.CreatedBy != principal.UserID && !principal.IsAdmin {
		return ErrUnauthorized
	}

	if err := s.meetings.DeleteMeeting(ctx, id); err != nil {
		logger.Error("failed to delete meeting", "error", err)
		return err
	}
	logger.Info("meeting deleted")
	return nil
}

// NextOccurrences returns the next n occurrences of a meeting at or after
// the reference instant.
func (s *MeetingService) NextOccurrences(ctx context.Context, meetingID string, ref time.Time, n int) ([]time.Time, error) {
	record, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.engine.NextOccurrences(record.StartsAt, toRule(record), ref, n)
}

// OccurrencesWithin expands every meeting a participant belongs to against
// the resolved period and returns the occurrences falling inside it, ordered
// by start time.
func (s *MeetingService) OccurrencesWithin(ctx context.Context, participantID string, p period.Resolved) ([]Occurrence, error) {
	records, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{ParticipantID: participantID})
	if err != nil {
		return nil, err
	}

	var occurrences []Occurrence
	for _, record := range records {
		when, ok, err := s.engine.OccurrenceWithin(record.StartsAt, toRule(record), p)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			MeetingID:       record.ID,
			Topic:           record.Topic,
			MeetingType:     record.MeetingType,
			StartsAt:        when,
			DurationMinutes: record.DurationMinutes,
		})
	}
	slices.SortFunc(occurrences, func(a, b Occurrence) int {
		return a.StartsAt.Compare(b.StartsAt)
	})
	return occurrences, nil
}

// warnDoubleBookings checks the stored meeting's first occurrence against the
// participants' other meetings and logs any overlap. Overlaps never block the
// write; the check looks back at most a day, so longer meetings that started
// earlier are not reported.
func (s *MeetingService) warnDoubleBookings(ctx context.Context, logger *slog.Logger, record persistence.Meeting) {
	start := record.StartsAt
	end := start.Add(time.Duration(record.DurationMinutes) * time.Minute)
	lookback := start.Add(-24 * time.Hour)

	seen := map[string]bool{record.ID: true}
	var existing []conflict.Booking
	for _, participantID := range record.Participants {
		records, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{
			ParticipantID: participantID,
			StartsAfter:   &lookback,
			StartsBefore:  &end,
		})
		if err != nil {
			logger.Warn("double-booking check skipped", "error", err)
			return
		}
		for _, other := range records {
			if seen[other.ID] {
				continue
			}
			seen[other.ID] = true
			existing = append(existing, conflict.Booking{
				MeetingID:      other.ID,
				ParticipantIDs: other.Participants,
				Start:          other.StartsAt,
				End:            other.StartsAt.Add(time.Duration(other.DurationMinutes) * time.Minute),
			})
		}
	}

	candidate := conflict.Booking{
		MeetingID:      record.ID,
		ParticipantIDs: record.Participants,
		Start:          start,
		End:            end,
	}
	for _, c := range conflict.Detect(existing, candidate) {
		logger.Warn("participant double-booked",
			"participant_id", c.ParticipantID,
			"with_meeting_id", c.WithMeetingID,
		)
	}
}

func (s *MeetingService) validateInput(ctx context.Context, input MeetingInput) error {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Topic) == "" {
		vErr.add("topic", "topic is required")
	}
	switch input.MeetingType {
	case persistence.MeetingTypeInPerson:
		if input.Location == nil || strings.TrimSpace(*input.Location) == "" {
			vErr.add("location", "location is required for in-person meetings")
		}
	case persistence.MeetingTypeOnline:
	default:
		vErr.add("meeting_type", fmt.Sprintf("unknown meeting type %q", input.MeetingType))
	}
	if input.StartsAt.IsZero() {
		vErr.add("starts_at", "start time is required")
	}
	if input.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}

	// Sequence construction runs the full recurrence validation.
	rule := input.Recurrence
	if rule.Type == "" {
		rule.Type = recurrence.TypeNone
	}
	if rule.Calendar == "" {
		rule.Calendar = recurrence.CalendarGregorian
	}
	if _, err := s.engine.Sequence(input.StartsAt, rule); err != nil {
		vErr.add("recurrence", err.Error())
	}

	if vErr.HasErrors() {
		return vErr
	}

	missing, err := s.users.MissingUserIDs(ctx, input.ParticipantIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		vErr.add("participant_ids", fmt.Sprintf("unknown participants: %s", strings.Join(missing, ", ")))
		return vErr
	}
	return nil
}

func applyRule(record *persistence.Meeting, rule recurrence.Rule) {
	if rule.Type == "" {
		rule.Type = recurrence.TypeNone
	}
	if rule.Interval <= 0 {
		rule.Interval = 1
	}
	if rule.Calendar == "" {
		rule.Calendar = recurrence.CalendarGregorian
	}
	record.RecurrenceType = string(rule.Type)
	record.RecurrenceInterval = rule.Interval
	record.RecurrenceEndDate = rule.EndDate
	record.RecurrenceCount = rule.Count
	record.RecurrenceCalendar = string(rule.Calendar)
}

func toRule(record persistence.Meeting) recurrence.Rule {
	return recurrence.Rule{
		Type:     recurrence.Type(record.RecurrenceType),
		Interval: record.RecurrenceInterval,
		EndDate:  record.RecurrenceEndDate,
		Count:    record.RecurrenceCount,
		Calendar: recurrence.Calendar(record.RecurrenceCalendar),
	}
}

func toMeeting(record persistence.Meeting) Meeting {
	return Meeting{
		ID:              record.ID,
		Topic:           record.Topic,
		MeetingType:     record.MeetingType,
		Location:        record.Location,
		Summary:         record.Summary,
		StartsAt:        record.StartsAt,
		DurationMinutes: record.DurationMinutes,
		Recurrence:      toRule(record),
		CreatedBy:       record.CreatedBy,
		ParticipantIDs:  record.Participants,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
