package persistence

import "time"

// User represents an account in the business-tracking domain.
type User struct {
	ID          string
	Email       string
	DisplayName string
	DomainID    string
	IsAdmin     bool
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Domain represents an organization whose members share team reports.
type Domain struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Meeting represents a scheduled meeting, possibly recurring.
//
// Recurrence is stored flat: RecurrenceType "none" means a single
// occurrence and the remaining recurrence columns are ignored.
type Meeting struct {
	ID                 string
	Topic              string
	MeetingType        string
	Location           *string
	Summary            *string
	StartsAt           time.Time
	DurationMinutes    int
	RecurrenceType     string
	RecurrenceInterval int
	RecurrenceEndDate  *time.Time
	RecurrenceCount    *int
	RecurrenceCalendar string
	CreatedBy          string
	Participants       []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Meeting types accepted by the meetings table CHECK constraint.
const (
	MeetingTypeInPerson = "in_person"
	MeetingTypeOnline   = "online"
)
