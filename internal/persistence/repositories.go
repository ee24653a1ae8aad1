package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListActiveUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// DomainRepository exposes CRUD operations for organizations.
type DomainRepository interface {
	CreateDomain(ctx context.Context, domain Domain) error
	UpdateDomain(ctx context.Context, domain Domain) error
	GetDomain(ctx context.Context, id string) (Domain, error)
	ListDomains(ctx context.Context) ([]Domain, error)
	ListActiveDomains(ctx context.Context) ([]Domain, error)
	DeleteDomain(ctx context.Context, id string) error
}

// MeetingFilter narrows meeting queries.
type MeetingFilter struct {
	ParticipantID string
	CreatedBy     string
	StartsAfter   *time.Time
	StartsBefore  *time.Time
}

// MeetingRepository stores meetings and their participants.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) error
	UpdateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error
}
