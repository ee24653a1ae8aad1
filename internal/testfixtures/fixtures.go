package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/karnameh/internal/persistence"
)

var (
	userCounter    uint64
	domainCounter  uint64
	meetingCounter uint64
)

var referenceTime = time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on Nowruz 1403 so Jalali period assertions read naturally.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures the generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user record with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.com", id),
		DisplayName: fmt.Sprintf("User %03d", idx),
		DomainID:    "domain-001",
		IsAdmin:     false,
		Active:      true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) {
		u.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) {
		u.Email = email
	}
}

// WithUserDomain assigns the user to a domain.
func WithUserDomain(domainID string) UserOption {
	return func(u *persistence.User) {
		u.DomainID = domainID
	}
}

// WithUserAdmin sets the admin flag on the generated fixture.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(u *persistence.User) {
		u.IsAdmin = isAdmin
	}
}

// WithUserActive sets the active flag on the generated fixture.
func WithUserActive(active bool) UserOption {
	return func(u *persistence.User) {
		u.Active = active
	}
}

// ---------------------------- Domain fixtures ----------------------------

// DomainOption configures the generated domain fixture.
type DomainOption func(*persistence.Domain)

// NewDomainFixture returns a deterministic domain record with optional
// overrides.
func NewDomainFixture(opts ...DomainOption) persistence.Domain {
	idx := atomic.AddUint64(&domainCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	domain := persistence.Domain{
		ID:        fmt.Sprintf("domain-%03d", idx),
		Name:      fmt.Sprintf("Domain %03d", idx),
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&domain)
	}
	return domain
}

// WithDomainID overrides the generated domain ID.
func WithDomainID(id string) DomainOption {
	return func(d *persistence.Domain) {
		d.ID = id
	}
}

// WithDomainName overrides the generated domain name.
func WithDomainName(name string) DomainOption {
	return func(d *persistence.Domain) {
		d.Name = name
	}
}

// WithDomainActive sets the active flag on the generated fixture.
func WithDomainActive(active bool) DomainOption {
	return func(d *persistence.Domain) {
		d.Active = active
	}
}

// ---------------------------- Meeting fixtures ---------------------------

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*persistence.Meeting)

// NewMeetingFixture returns a deterministic one-off online meeting with
// optional overrides.
func NewMeetingFixture(opts ...MeetingOption) persistence.Meeting {
	idx := atomic.AddUint64(&meetingCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	meeting := persistence.Meeting{
		ID:                 fmt.Sprintf("meeting-%03d", idx),
		Topic:              fmt.Sprintf("Meeting %03d", idx),
		MeetingType:        persistence.MeetingTypeOnline,
		StartsAt:           referenceTime.Add(time.Duration(idx) * time.Hour),
		DurationMinutes:    60,
		RecurrenceType:     "none",
		RecurrenceInterval: 1,
		RecurrenceCalendar: "gregorian",
		CreatedBy:          "user-001",
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, opt := range opts {
		opt(&meeting)
	}
	return meeting
}

// WithMeetingID overrides the generated meeting ID.
func WithMeetingID(id string) MeetingOption {
	return func(m *persistence.Meeting) {
		m.ID = id
	}
}

// WithMeetingTopic overrides the generated topic.
func WithMeetingTopic(topic string) MeetingOption {
	return func(m *persistence.Meeting) {
		m.Topic = topic
	}
}

// WithMeetingType sets the meeting type and, for in-person meetings, the
// location.
func WithMeetingType(meetingType string, location *string) MeetingOption {
	return func(m *persistence.Meeting) {
		m.MeetingType = meetingType
		m.Location = location
	}
}

// WithMeetingStartsAt overrides the first occurrence instant.
func WithMeetingStartsAt(t time.Time) MeetingOption {
	return func(m *persistence.Meeting) {
		m.StartsAt = t
	}
}

// WithMeetingRecurrence configures the stored recurrence columns.
func WithMeetingRecurrence(recType string, interval int, endDate *time.Time, count *int) MeetingOption {
	return func(m *persistence.Meeting) {
		m.RecurrenceType = recType
		m.RecurrenceInterval = interval
		m.RecurrenceEndDate = endDate
		m.RecurrenceCount = count
	}
}

// WithMeetingCalendar selects the calendar used for monthly and yearly
// recurrence stepping.
func WithMeetingCalendar(calendar string) MeetingOption {
	return func(m *persistence.Meeting) {
		m.RecurrenceCalendar = calendar
	}
}

// WithMeetingCreatedBy overrides the creator.
func WithMeetingCreatedBy(userID string) MeetingOption {
	return func(m *persistence.Meeting) {
		m.CreatedBy = userID
	}
}

// WithMeetingParticipants sets the participant list.
func WithMeetingParticipants(userIDs ...string) MeetingOption {
	return func(m *persistence.Meeting) {
		m.Participants = userIDs
	}
}
