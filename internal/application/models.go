package application

import (
	"time"

	"github.com/example/karnameh/internal/recurrence"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID   string
	DomainID string
	IsAdmin  bool
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	Topic           string
	MeetingType     string
	Location        *string
	Summary         *string
	StartsAt        time.Time
	DurationMinutes int
	Recurrence      recurrence.Rule
	ParticipantIDs  []string
}

// Meeting represents a meeting as exposed by the application layer.
type Meeting struct {
	ID              string
	Topic           string
	MeetingType     string
	Location        *string
	Summary         *string
	StartsAt        time.Time
	DurationMinutes int
	Recurrence      recurrence.Rule
	CreatedBy       string
	ParticipantIDs  []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Occurrence is a single expanded instance of a possibly recurring meeting.
type Occurrence struct {
	MeetingID       string
	Topic           string
	MeetingType     string
	StartsAt        time.Time
	DurationMinutes int
}

// CreateMeetingParams wraps the data required to create a meeting.
type CreateMeetingParams struct {
	Principal Principal
	Input     MeetingInput
}

// UpdateMeetingParams wraps the data required to update an existing meeting.
type UpdateMeetingParams struct {
	Principal Principal
	MeetingID string
	Input     MeetingInput
}

// ListMeetingsParams wraps the data required to list meetings.
type ListMeetingsParams struct {
	Principal     Principal
	ParticipantID string
	StartsAfter   *time.Time
	StartsBefore  *time.Time
}
