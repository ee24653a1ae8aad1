package application

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/karnameh/internal/persistence"
)

// UserService manages user and domain records.
type UserService struct {
	users       persistence.UserRepository
	domains     persistence.DomainRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for user and domain operations.
func NewUserService(users persistence.UserRepository, domains persistence.DomainRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		domains:     domains,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// UserInput captures caller provided user fields.
type UserInput struct {
	Email       string
	DisplayName string
	DomainID    string
	IsAdmin     bool
}

// CreateUser registers a new account. Only admins may create users.
func (s *UserService) CreateUser(ctx context.Context, principal Principal, input UserInput) (persistence.User, error) {
	logger := serviceLogger(ctx, s.logger, "user", "create")

	if !principal.IsAdmin {
		return persistence.User{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is not a valid address")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if input.DomainID == "" {
		vErr.add("domain_id", "domain is required")
	}
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	if _, err := s.domains.GetDomain(ctx, input.DomainID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr.add("domain_id", "domain does not exist")
			return persistence.User{}, vErr
		}
		return persistence.User{}, err
	}

	user := persistence.User{
		ID:          s.idGenerator(),
		Email:       email,
		DisplayName: strings.TrimSpace(input.DisplayName),
		DomainID:    input.DomainID,
		IsAdmin:     input.IsAdmin,
		Active:      true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, persistence.ErrConstraintViolation) {
			return persistence.User{}, ErrAlreadyExists
		}
		logger.Error("failed to create user", "error", err)
		return persistence.User{}, err
	}

	logger.Info("user created", "user_id", user.ID, "domain_id", user.DomainID)
	return s.users.GetUser(ctx, user.ID)
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return persistence.User{}, ErrNotFound
	}
	return user, err
}

// ListUsers returns every registered user.
func (s *UserService) ListUsers(ctx context.Context) ([]persistence.User, error) {
	return s.users.ListUsers(ctx)
}

// DeactivateUser marks an account inactive. Only admins may deactivate.
func (s *UserService) DeactivateUser(ctx context.Context, principal Principal, id string) error {
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	user.Active = false
	return s.users.UpdateUser(ctx, user)
}

// CreateDomain registers a new organization. Only admins may create domains.
func (s *UserService) CreateDomain(ctx context.Context, principal Principal, name string) (persistence.Domain, error) {
	logger := serviceLogger(ctx, s.logger, "user", "create_domain")

	if !principal.IsAdmin {
		return persistence.Domain{}, ErrUnauthorized
	}

	name = strings.TrimSpace(name)
	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		return persistence.Domain{}, vErr
	}

	domain := persistence.Domain{
		ID:     s.idGenerator(),
		Name:   name,
		Active: true,
	}
	if err := s.domains.CreateDomain(ctx, domain); err != nil {
		if errors.Is(err, persistence.ErrConstraintViolation) {
			return persistence.Domain{}, ErrAlreadyExists
		}
		logger.Error("failed to create domain", "error", err)
		return persistence.Domain{}, err
	}

	logger.Info("domain created", "domain_id", domain.ID)
	return s.domains.GetDomain(ctx, domain.ID)
}

// ListDomains returns every registered domain.
func (s *UserService) ListDomains(ctx context.Context) ([]persistence.Domain, error) {
	return s.domains.ListDomains(ctx)
}

// MissingUserIDs reports which of the supplied IDs have no matching user.
func (s *UserService) MissingUserIDs(ctx context.Context, ids []string) ([]string, error) {
	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.users.GetUser(ctx, id); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				missing = append(missing, id)
				continue
			}
			return nil, err
		}
	}
	return missing, nil
}
