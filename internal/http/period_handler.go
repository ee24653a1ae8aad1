package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/karnameh/internal/period"
)

type periodResolver interface {
	ResolvePeriod(desc period.Descriptor) (period.Resolved, error)
}

// PeriodHandler serves the /periods endpoints.
type PeriodHandler struct {
	resolver  periodResolver
	responder responder
}

// NewPeriodHandler constructs a period handler.
func NewPeriodHandler(resolver periodResolver, logger *slog.Logger) *PeriodHandler {
	return &PeriodHandler{resolver: resolver, responder: newResponder(logger)}
}

type resolvedPeriodDTO struct {
	Type      string `json:"type"`
	Year      int    `json:"year"`
	Month     int    `json:"month,omitempty"`
	Week      int    `json:"week,omitempty"`
	Day       int    `json:"day,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Label     string `json:"label"`
	Days      int    `json:"days"`
}

// Resolve handles GET /periods/resolve. The descriptor arrives as query
// parameters; dates in the response are Gregorian.
func (h *PeriodHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	desc := period.Descriptor{Type: period.Type(query.Get("type"))}
	var err error
	if desc.Year, err = requiredIntParam(query.Get("year")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if desc.Month, err = optionalIntParam(query.Get("month")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if desc.Week, err = optionalIntParam(query.Get("week")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if desc.Day, err = optionalIntParam(query.Get("day")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	resolved, err := h.resolver.ResolvePeriod(desc)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, resolvedPeriodDTO{
		Type:      string(desc.Type),
		Year:      desc.Year,
		Month:     desc.Month,
		Week:      desc.Week,
		Day:       desc.Day,
		Start:     resolved.Start.Format(time.RFC3339),
		End:       resolved.End.Format(time.RFC3339Nano),
		StartDate: resolved.Start.Format("2006-01-02"),
		EndDate:   resolved.End.Format("2006-01-02"),
		Label:     resolved.Label,
		Days:      resolved.Days(),
	})
}

func requiredIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, errBadRequestBody
	}
	return strconv.Atoi(raw)
}

func optionalIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
