package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/karnameh/internal/application"
	"github.com/example/karnameh/internal/recurrence"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type meetingService interface {
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, error)
	UpdateMeeting(ctx context.Context, params application.UpdateMeetingParams) (application.Meeting, error)
	GetMeeting(ctx context.Context, id string) (application.Meeting, error)
	ListMeetings(ctx context.Context, params application.ListMeetingsParams) ([]application.Meeting, error)
	DeleteMeeting(ctx context.Context, principal application.Principal, id string) error
	NextOccurrences(ctx context.Context, meetingID string, ref time.Time, n int) ([]time.Time, error)
}

// MeetingHandler serves the /meetings endpoints.
type MeetingHandler struct {
	service   meetingService
	responder responder
	now       func() time.Time
}

// NewMeetingHandler constructs a meeting handler.
func NewMeetingHandler(service meetingService, now func() time.Time, logger *slog.Logger) *MeetingHandler {
	if now == nil {
		now = time.Now
	}
	return &MeetingHandler{service: service, responder: newResponder(logger), now: now}
}

type recurrenceDTO struct {
	Type     string  `json:"type" validate:"omitempty,oneof=none daily weekly monthly yearly"`
	Interval int     `json:"interval" validate:"gte=0"`
	EndDate  *string `json:"end_date,omitempty"`
	Count    *int    `json:"count,omitempty" validate:"omitempty,gte=1"`
	Calendar string  `json:"calendar,omitempty" validate:"omitempty,oneof=gregorian jalali"`
}

type meetingRequest struct {
	Topic           string         `json:"topic" validate:"required"`
	MeetingType     string         `json:"meeting_type" validate:"required,oneof=in_person online"`
	Location        *string        `json:"location,omitempty"`
	Summary         *string        `json:"summary,omitempty"`
	StartsAt        string         `json:"starts_at" validate:"required"`
	DurationMinutes int            `json:"duration_minutes" validate:"gt=0"`
	Recurrence      *recurrenceDTO `json:"recurrence,omitempty"`
	ParticipantIDs  []string       `json:"participant_ids,omitempty" validate:"dive,required"`
}

func (req meetingRequest) toInput() (application.MeetingInput, error) {
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return application.MeetingInput{}, err
	}

	rule := recurrence.Rule{Type: recurrence.TypeNone, Interval: 1, Calendar: recurrence.CalendarGregorian}
	if req.Recurrence != nil {
		rule.Type = recurrence.Type(req.Recurrence.Type)
		if req.Recurrence.Type == "" {
			rule.Type = recurrence.TypeNone
		}
		rule.Interval = req.Recurrence.Interval
		rule.Count = req.Recurrence.Count
		if req.Recurrence.Calendar != "" {
			rule.Calendar = recurrence.Calendar(req.Recurrence.Calendar)
		}
		if req.Recurrence.EndDate != nil {
			end, err := time.Parse(time.RFC3339, *req.Recurrence.EndDate)
			if err != nil {
				return application.MeetingInput{}, err
			}
			rule.EndDate = &end
		}
	}

	return application.MeetingInput{
		Topic:           req.Topic,
		MeetingType:     req.MeetingType,
		Location:        req.Location,
		Summary:         req.Summary,
		StartsAt:        startsAt,
		DurationMinutes: req.DurationMinutes,
		Recurrence:      rule,
		ParticipantIDs:  req.ParticipantIDs,
	}, nil
}

type meetingDTO struct {
	ID              string        `json:"id"`
	Topic           string        `json:"topic"`
	MeetingType     string        `json:"meeting_type"`
	Location        *string       `json:"location,omitempty"`
	Summary         *string       `json:"summary,omitempty"`
	StartsAt        string        `json:"starts_at"`
	DurationMinutes int           `json:"duration_minutes"`
	Recurrence      recurrenceDTO `json:"recurrence"`
	CreatedBy       string        `json:"created_by"`
	ParticipantIDs  []string      `json:"participant_ids"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
}

func toMeetingDTO(meeting application.Meeting) meetingDTO {
	dto := meetingDTO{
		ID:              meeting.ID,
		Topic:           meeting.Topic,
		MeetingType:     meeting.MeetingType,
		Location:        meeting.Location,
		Summary:         meeting.Summary,
		StartsAt:        meeting.StartsAt.Format(time.RFC3339),
		DurationMinutes: meeting.DurationMinutes,
		Recurrence: recurrenceDTO{
			Type:     string(meeting.Recurrence.Type),
			Interval: meeting.Recurrence.Interval,
			Count:    meeting.Recurrence.Count,
			Calendar: string(meeting.Recurrence.Calendar),
		},
		CreatedBy:      meeting.CreatedBy,
		ParticipantIDs: meeting.ParticipantIDs,
		CreatedAt:      meeting.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      meeting.UpdatedAt.Format(time.RFC3339),
	}
	if meeting.Recurrence.EndDate != nil {
		end := meeting.Recurrence.EndDate.Format(time.RFC3339)
		dto.Recurrence.EndDate = &end
	}
	return dto
}

// Create handles POST /meetings.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if verr := validateRequest(req); verr != nil {
		h.responder.handleServiceError(r.Context(), w, verr)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	meeting, err := h.service.CreateMeeting(r.Context(), application.CreateMeetingParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toMeetingDTO(meeting))
}

// Update handles PUT /meetings/{id}.
func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if verr := validateRequest(req); verr != nil {
		h.responder.handleServiceError(r.Context(), w, verr)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	meeting, err := h.service.UpdateMeeting(r.Context(), application.UpdateMeetingParams{
		Principal: principal,
		MeetingID: meetingID,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMeetingDTO(meeting))
}

// Get handles GET /meetings/{id}.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	meeting, err := h.service.GetMeeting(r.Context(), meetingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMeetingDTO(meeting))
}

// Delete handles DELETE /meetings/{id}.
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteMeeting(r.Context(), principal, meetingID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List handles GET /meetings. Without query parameters it lists the caller's
// meetings.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.ListMeetingsParams{
		Principal:     principal,
		ParticipantID: query.Get("participant_id"),
	}
	if params.ParticipantID == "" {
		params.ParticipantID = principal.UserID
	}
	if raw := query.Get("starts_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		params.StartsAfter = &t
	}
	if raw := query.Get("starts_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		params.StartsBefore = &t
	}

	meetings, err := h.service.ListMeetings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		dtos = append(dtos, toMeetingDTO(meeting))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]meetingDTO{"meetings": dtos})
}

// Occurrences handles GET /meetings/{id}/occurrences.
func (h *MeetingHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(meetingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	query := r.URL.Query()
	ref := h.now()
	if raw := query.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		ref = t
	}

	count := 5
	if raw := query.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		count = n
	}
	if count > 100 {
		count = 100
	}

	occurrences, err := h.service.NextOccurrences(r.Context(), meetingID, ref, count)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	formatted := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		formatted = append(formatted, occ.Format(time.RFC3339))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"meeting_id":  meetingID,
		"from":        ref.Format(time.RFC3339),
		"occurrences": formatted,
	})
}

// validateRequest runs struct tag validation and converts failures into the
// application's field-error shape.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	vErr := &application.ValidationError{FieldErrors: make(map[string]string)}
	if invalid, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range invalid {
			vErr.FieldErrors[strings.ToLower(fe.Field())] = "failed validation on " + fe.Tag()
		}
		return vErr
	}
	return err
}
