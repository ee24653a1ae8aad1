package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/karnameh/internal/application"
	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/snapshot"
)

type reportService interface {
	LiveReport(ctx context.Context, principal application.Principal, userID string, desc period.Descriptor) (application.Report, error)
	EnsureSnapshot(ctx context.Context, principal application.Principal, key snapshot.Key) (snapshot.Snapshot, error)
	GetSnapshot(ctx context.Context, principal application.Principal, key snapshot.Key) (snapshot.Snapshot, error)
	ListUserSnapshots(ctx context.Context, principal application.Principal, userID string) ([]snapshot.Snapshot, error)
	ListDomainSnapshots(ctx context.Context, principal application.Principal, domainID string) ([]snapshot.Snapshot, error)
}

// ReportHandler serves the /reports endpoints.
type ReportHandler struct {
	service   reportService
	responder responder
}

// NewReportHandler constructs a report handler.
func NewReportHandler(service reportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{service: service, responder: newResponder(logger)}
}

type snapshotKeyDTO struct {
	ReportType string `json:"report_type" validate:"required,oneof=individual team"`
	PeriodType string `json:"period_type" validate:"required,oneof=weekly monthly yearly"`
	Year       int    `json:"year" validate:"required"`
	Month      int    `json:"month,omitempty"`
	Week       int    `json:"week,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	DomainID   string `json:"domain_id,omitempty"`
}

func (d snapshotKeyDTO) toKey() snapshot.Key {
	return snapshot.Key{
		ReportType: snapshot.ReportType(d.ReportType),
		PeriodType: period.Type(d.PeriodType),
		Year:       d.Year,
		Month:      d.Month,
		Week:       d.Week,
		UserID:     d.UserID,
		DomainID:   d.DomainID,
	}
}

type snapshotDTO struct {
	ID          string          `json:"id"`
	Key         snapshotKeyDTO  `json:"key"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Label       string          `json:"label"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   string          `json:"created_at"`
}

func toSnapshotDTO(snap snapshot.Snapshot) snapshotDTO {
	return snapshotDTO{
		ID: snap.ID,
		Key: snapshotKeyDTO{
			ReportType: string(snap.Key.ReportType),
			PeriodType: string(snap.Key.PeriodType),
			Year:       snap.Key.Year,
			Month:      snap.Key.Month,
			Week:       snap.Key.Week,
			UserID:     snap.Key.UserID,
			DomainID:   snap.Key.DomainID,
		},
		PeriodStart: snap.PeriodStart.Format(time.RFC3339),
		PeriodEnd:   snap.PeriodEnd.Format(time.RFC3339Nano),
		Label:       snap.Label,
		Content:     json.RawMessage(snap.Content),
		CreatedAt:   snap.CreatedAt.Format(time.RFC3339),
	}
}

// EnsureSnapshot handles POST /reports/snapshots.
func (h *ReportHandler) EnsureSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotKeyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if verr := validateRequest(req); verr != nil {
		h.responder.handleServiceError(r.Context(), w, verr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	snap, err := h.service.EnsureSnapshot(r.Context(), principal, req.toKey())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSnapshotDTO(snap))
}

// GetSnapshot handles GET /reports/snapshots with the key as query params.
func (h *ReportHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := snapshotKeyDTO{
		ReportType: query.Get("report_type"),
		PeriodType: query.Get("period_type"),
		UserID:     query.Get("user_id"),
		DomainID:   query.Get("domain_id"),
	}
	var err error
	if key.Year, err = requiredIntParam(query.Get("year")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if key.Month, err = optionalIntParam(query.Get("month")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if key.Week, err = optionalIntParam(query.Get("week")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	snap, err := h.service.GetSnapshot(r.Context(), principal, key.toKey())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSnapshotDTO(snap))
}

// ListUserSnapshots handles GET /reports/snapshots/users/{id}.
func (h *ReportHandler) ListUserSnapshots(w http.ResponseWriter, r *http.Request, userID string) {
	principal, _ := PrincipalFromContext(r.Context())
	snaps, err := h.service.ListUserSnapshots(r.Context(), principal, userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeSnapshotList(r, w, snaps)
}

// ListDomainSnapshots handles GET /reports/snapshots/domains/{id}.
func (h *ReportHandler) ListDomainSnapshots(w http.ResponseWriter, r *http.Request, domainID string) {
	principal, _ := PrincipalFromContext(r.Context())
	snaps, err := h.service.ListDomainSnapshots(r.Context(), principal, domainID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.writeSnapshotList(r, w, snaps)
}

func (h *ReportHandler) writeSnapshotList(r *http.Request, w http.ResponseWriter, snaps []snapshot.Snapshot) {
	dtos := make([]snapshotDTO, 0, len(snaps))
	for _, snap := range snaps {
		dtos = append(dtos, toSnapshotDTO(snap))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]snapshotDTO{"snapshots": dtos})
}

type liveReportRequest struct {
	UserID string `json:"user_id"`
	Period struct {
		Type  string `json:"type" validate:"required,oneof=daily weekly monthly yearly"`
		Year  int    `json:"year" validate:"required"`
		Month int    `json:"month,omitempty"`
		Week  int    `json:"week,omitempty"`
		Day   int    `json:"day,omitempty"`
	} `json:"period" validate:"required"`
}

// LiveReport handles POST /reports/live. It works for open periods; nothing
// is persisted.
func (h *ReportHandler) LiveReport(w http.ResponseWriter, r *http.Request) {
	var req liveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if verr := validateRequest(req); verr != nil {
		h.responder.handleServiceError(r.Context(), w, verr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = principal.UserID
	}

	report, err := h.service.LiveReport(r.Context(), principal, userID, period.Descriptor{
		Type:  period.Type(req.Period.Type),
		Year:  req.Period.Year,
		Month: req.Period.Month,
		Week:  req.Period.Week,
		Day:   req.Period.Day,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, report)
}
