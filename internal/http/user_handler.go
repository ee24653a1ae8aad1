package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/karnameh/internal/application"
	"github.com/example/karnameh/internal/persistence"
)

type userService interface {
	CreateUser(ctx context.Context, principal application.Principal, input application.UserInput) (persistence.User, error)
	GetUser(ctx context.Context, userID string) (persistence.User, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
	DeactivateUser(ctx context.Context, principal application.Principal, userID string) error
	CreateDomain(ctx context.Context, principal application.Principal, name string) (persistence.Domain, error)
	ListDomains(ctx context.Context) ([]persistence.Domain, error)
}

// UserHandler serves the /users and /domains endpoints.
type UserHandler struct {
	service   userService
	responder responder
}

// NewUserHandler constructs a user handler.
func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, responder: newResponder(logger)}
}

type userRequest struct {
	Email       string `json:"email" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
	DomainID    string `json:"domain_id" validate:"required"`
	IsAdmin     bool   `json:"is_admin"`
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	DomainID    string `json:"domain_id"`
	IsAdmin     bool   `json:"is_admin"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

func toUserDTO(user persistence.User) userDTO {
	return userDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		DomainID:    user.DomainID,
		IsAdmin:     user.IsAdmin,
		Active:      user.Active,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if verr := validateRequest(req); verr != nil {
		h.responder.handleServiceError(r.Context(), w, verr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	user, err := h.service.CreateUser(r.Context(), principal, application.UserInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		DomainID:    req.DomainID,
		IsAdmin:     req.IsAdmin,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toUserDTO(user))
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTO(user))
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	dtos := make([]userDTO, 0, len(users))
	for _, user := range users {
		dtos = append(dtos, toUserDTO(user))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]userDTO{"users": dtos})
}

// Deactivate handles DELETE /users/{id}.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request, userID string) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeactivateUser(r.Context(), principal, userID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type domainRequest struct {
	Name string `json:"name" validate:"required"`
}

type domainDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// CreateDomain handles POST /domains.
func (h *UserHandler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if verr := validateRequest(req); verr != nil {
		h.responder.handleServiceError(r.Context(), w, verr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	domain, err := h.service.CreateDomain(r.Context(), principal, req.Name)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, domainDTO{
		ID:        domain.ID,
		Name:      domain.Name,
		Active:    domain.Active,
		CreatedAt: domain.CreatedAt.Format(time.RFC3339),
	})
}

// ListDomains handles GET /domains.
func (h *UserHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.service.ListDomains(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	dtos := make([]domainDTO, 0, len(domains))
	for _, domain := range domains {
		dtos = append(dtos, domainDTO{
			ID:        domain.ID,
			Name:      domain.Name,
			Active:    domain.Active,
			CreatedAt: domain.CreatedAt.Format(time.RFC3339),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]domainDTO{"domains": dtos})
}
