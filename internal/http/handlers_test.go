package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/karnameh/internal/application"
	"github.com/example/karnameh/internal/jalali"
	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/persistence"
	"github.com/example/karnameh/internal/recurrence"
	"github.com/example/karnameh/internal/snapshot"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticDirectory map[string]persistence.User

func (d staticDirectory) GetUser(_ context.Context, id string) (persistence.User, error) {
	user, ok := d[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

type fakeMeetingService struct {
	meetings    map[string]application.Meeting
	lastCreate  application.CreateMeetingParams
	occurrences []time.Time
}

func newFakeMeetingService() *fakeMeetingService {
	return &fakeMeetingService{meetings: make(map[string]application.Meeting)}
}

func (f *fakeMeetingService) CreateMeeting(_ context.Context, params application.CreateMeetingParams) (application.Meeting, error) {
	f.lastCreate = params
	meeting := application.Meeting{
		ID:              "m1",
		Topic:           params.Input.Topic,
		MeetingType:     params.Input.MeetingType,
		Location:        params.Input.Location,
		StartsAt:        params.Input.StartsAt,
		DurationMinutes: params.Input.DurationMinutes,
		Recurrence:      params.Input.Recurrence,
		CreatedBy:       params.Principal.UserID,
		ParticipantIDs:  append(params.Input.ParticipantIDs, params.Principal.UserID),
	}
	f.meetings[meeting.ID] = meeting
	return meeting, nil
}

func (f *fakeMeetingService) UpdateMeeting(_ context.Context, params application.UpdateMeetingParams) (application.Meeting, error) {
	meeting, ok := f.meetings[params.MeetingID]
	if !ok {
		return application.Meeting{}, application.ErrNotFound
	}
	meeting.Topic = params.Input.Topic
	f.meetings[params.MeetingID] = meeting
	return meeting, nil
}

func (f *fakeMeetingService) GetMeeting(_ context.Context, id string) (application.Meeting, error) {
	meeting, ok := f.meetings[id]
	if !ok {
		return application.Meeting{}, application.ErrNotFound
	}
	return meeting, nil
}

func (f *fakeMeetingService) ListMeetings(_ context.Context, _ application.ListMeetingsParams) ([]application.Meeting, error) {
	out := make([]application.Meeting, 0, len(f.meetings))
	for _, meeting := range f.meetings {
		out = append(out, meeting)
	}
	return out, nil
}

func (f *fakeMeetingService) DeleteMeeting(_ context.Context, principal application.Principal, id string) error {
	meeting, ok := f.meetings[id]
	if !ok {
		return application.ErrNotFound
	}
	if meeting.CreatedBy != principal.UserID && !principal.IsAdmin {
		return application.ErrUnauthorized
	}
	delete(f.meetings, id)
	return nil
}

func (f *fakeMeetingService) NextOccurrences(_ context.Context, id string, _ time.Time, _ int) ([]time.Time, error) {
	if _, ok := f.meetings[id]; !ok {
		return nil, application.ErrNotFound
	}
	return f.occurrences, nil
}

type fakeReportService struct {
	ensureErr error
	snapshots map[snapshot.Key]snapshot.Snapshot
	report    application.Report
	reportErr error
}

func (f *fakeReportService) LiveReport(_ context.Context, principal application.Principal, userID string, _ period.Descriptor) (application.Report, error) {
	if userID != principal.UserID && !principal.IsAdmin {
		return application.Report{}, application.ErrUnauthorized
	}
	return f.report, f.reportErr
}

func (f *fakeReportService) EnsureSnapshot(_ context.Context, _ application.Principal, key snapshot.Key) (snapshot.Snapshot, error) {
	if f.ensureErr != nil {
		return snapshot.Snapshot{}, f.ensureErr
	}
	snap, ok := f.snapshots[key]
	if !ok {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}
	return snap, nil
}

func (f *fakeReportService) GetSnapshot(_ context.Context, principal application.Principal, key snapshot.Key) (snapshot.Snapshot, error) {
	return f.EnsureSnapshot(context.Background(), principal, key)
}

func (f *fakeReportService) ListUserSnapshots(_ context.Context, _ application.Principal, userID string) ([]snapshot.Snapshot, error) {
	var out []snapshot.Snapshot
	for _, snap := range f.snapshots {
		if snap.Key.UserID == userID {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (f *fakeReportService) ListDomainSnapshots(_ context.Context, _ application.Principal, domainID string) ([]snapshot.Snapshot, error) {
	var out []snapshot.Snapshot
	for _, snap := range f.snapshots {
		if snap.Key.DomainID == domainID {
			out = append(out, snap)
		}
	}
	return out, nil
}

type resolverAdapter struct {
	resolver *period.Resolver
}

func (a resolverAdapter) ResolvePeriod(desc period.Descriptor) (period.Resolved, error) {
	return a.resolver.Resolve(desc)
}

type testServer struct {
	handler  http.Handler
	meetings *fakeMeetingService
	reports  *fakeReportService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := testLogger()
	directory := staticDirectory{
		"u1":       {ID: "u1", DomainID: "d1", Active: true},
		"admin":    {ID: "admin", DomainID: "d1", IsAdmin: true, Active: true},
		"inactive": {ID: "inactive", DomainID: "d1", Active: false},
	}

	meetings := newFakeMeetingService()
	reports := &fakeReportService{snapshots: make(map[snapshot.Key]snapshot.Snapshot)}
	resolver := period.NewResolver(jalali.NewConverter(time.UTC, jalali.LocaleLatin))
	now := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	handler := NewRouter(RouterConfig{
		Meetings: NewMeetingHandler(meetings, now, logger),
		Periods:  NewPeriodHandler(resolverAdapter{resolver}, logger),
		Reports:  NewReportHandler(reports, logger),
		Middleware: []func(http.Handler) http.Handler{
			RequestLogger(logger),
			RequireIdentity(directory, logger),
		},
	})

	return &testServer{handler: handler, meetings: meetings, reports: reports}
}

func (s *testServer) do(t *testing.T, method, path, identity string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if identity != "" {
		req.Header.Set("X-User-ID", identity)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func TestRequireIdentity(t *testing.T) {
	t.Parallel()
	server := newTestServer(t)

	t.Run("missing header is rejected", func(t *testing.T) {
		t.Parallel()
		rec := server.do(t, http.MethodGet, "/meetings", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("unknown identity is rejected", func(t *testing.T) {
		t.Parallel()
		rec := server.do(t, http.MethodGet, "/meetings", "ghost", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("deactivated account is rejected", func(t *testing.T) {
		t.Parallel()
		rec := server.do(t, http.MethodGet, "/meetings", "inactive", nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("active account passes through", func(t *testing.T) {
		t.Parallel()
		rec := server.do(t, http.MethodGet, "/meetings", "u1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestMeetingEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("create returns the stored meeting", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)

		rec := server.do(t, http.MethodPost, "/meetings", "u1", map[string]any{
			"topic":            "planning",
			"meeting_type":     "online",
			"starts_at":        "2024-05-08T14:00:00Z",
			"duration_minutes": 45,
			"participant_ids":  []string{"admin"},
			"recurrence": map[string]any{
				"type":     "weekly",
				"interval": 1,
				"calendar": "jalali",
			},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var dto meetingDTO
		decodeBody(t, rec, &dto)
		if dto.ID != "m1" || dto.Topic != "planning" {
			t.Fatalf("unexpected meeting payload: %+v", dto)
		}
		if dto.Recurrence.Type != "weekly" || dto.Recurrence.Calendar != "jalali" {
			t.Fatalf("recurrence not preserved: %+v", dto.Recurrence)
		}
		if server.meetings.lastCreate.Principal.UserID != "u1" {
			t.Fatalf("principal = %+v, want u1", server.meetings.lastCreate.Principal)
		}
	})

	t.Run("validation failures return field errors", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)

		rec := server.do(t, http.MethodPost, "/meetings", "u1", map[string]any{
			"meeting_type":     "carrier_pigeon",
			"starts_at":        "2024-05-08T14:00:00Z",
			"duration_minutes": 45,
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
		}

		var resp errorResponse
		decodeBody(t, rec, &resp)
		if _, ok := resp.Errors["topic"]; !ok {
			t.Fatalf("expected topic field error, got %+v", resp.Errors)
		}
		if _, ok := resp.Errors["meetingtype"]; !ok {
			t.Fatalf("expected meeting type field error, got %+v", resp.Errors)
		}
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/meetings", strings.NewReader("{"))
		req.Header.Set("X-User-ID", "u1")
		rec := httptest.NewRecorder()
		server.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("get by id and occurrences subpath route correctly", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)
		server.meetings.meetings["m1"] = application.Meeting{
			ID: "m1", Topic: "standup", MeetingType: "online",
			StartsAt:        time.Date(2024, 5, 8, 14, 0, 0, 0, time.UTC),
			DurationMinutes: 15,
			Recurrence:      recurrence.Rule{Type: recurrence.TypeDaily, Interval: 1, Calendar: recurrence.CalendarGregorian},
			CreatedBy:       "u1",
		}
		server.meetings.occurrences = []time.Time{
			time.Date(2024, 5, 9, 14, 0, 0, 0, time.UTC),
			time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC),
		}

		rec := server.do(t, http.MethodGet, "/meetings/m1", "u1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get status = %d: %s", rec.Code, rec.Body.String())
		}

		rec = server.do(t, http.MethodGet, "/meetings/m1/occurrences?count=2", "u1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("occurrences status = %d: %s", rec.Code, rec.Body.String())
		}
		var payload struct {
			MeetingID   string   `json:"meeting_id"`
			Occurrences []string `json:"occurrences"`
		}
		decodeBody(t, rec, &payload)
		if payload.MeetingID != "m1" || len(payload.Occurrences) != 2 {
			t.Fatalf("unexpected occurrences payload: %+v", payload)
		}
	})

	t.Run("unknown meeting maps to 404", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)
		rec := server.do(t, http.MethodGet, "/meetings/nope", "u1", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("unsupported methods return 405 with Allow header", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)
		rec := server.do(t, http.MethodPatch, "/meetings", "u1", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
		if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
			t.Fatalf("Allow = %q, want POST listed", allow)
		}
	})
}

func TestPeriodResolveEndpoint(t *testing.T) {
	t.Parallel()
	server := newTestServer(t)

	t.Run("weekly descriptor resolves to Gregorian range", func(t *testing.T) {
		t.Parallel()
		rec := server.do(t, http.MethodGet, "/periods/resolve?type=weekly&year=1403&week=7", "u1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		var dto resolvedPeriodDTO
		decodeBody(t, rec, &dto)
		if dto.StartDate != "2024-05-04" || dto.EndDate != "2024-05-10" {
			t.Fatalf("range = %s..%s, want 2024-05-04..2024-05-10", dto.StartDate, dto.EndDate)
		}
		if dto.Label != "Week 7, 1403" {
			t.Fatalf("label = %q", dto.Label)
		}
		if dto.Days != 7 {
			t.Fatalf("days = %d, want 7", dto.Days)
		}
	})

	t.Run("missing year returns 400", func(t *testing.T) {
		t.Parallel()
		rec := server.do(t, http.MethodGet, "/periods/resolve?type=weekly&week=7", "u1", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("unsupported type returns 422", func(t *testing.T) {
		t.Parallel()
		rec := server.do(t, http.MethodGet, "/periods/resolve?type=fortnightly&year=1403", "u1", nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("weekly without week returns 422", func(t *testing.T) {
		t.Parallel()
		rec := server.do(t, http.MethodGet, "/periods/resolve?type=weekly&year=1403", "u1", nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
		}
	})
}

func TestReportEndpoints(t *testing.T) {
	t.Parallel()

	key := snapshot.Key{
		ReportType: snapshot.ReportIndividual,
		PeriodType: period.TypeWeekly,
		Year:       1403,
		Week:       7,
		UserID:     "u1",
	}

	t.Run("ensure returns the snapshot", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)
		server.reports.snapshots[key] = snapshot.Snapshot{
			ID:          "s1",
			Key:         key,
			PeriodStart: time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(2024, 5, 10, 23, 59, 59, 999999999, time.UTC),
			Label:       "Week 7, 1403",
			Content:     []byte(`{"total_meetings":1}`),
			CreatedAt:   time.Date(2024, 5, 12, 3, 0, 0, 0, time.UTC),
		}

		rec := server.do(t, http.MethodPost, "/reports/snapshots", "u1", map[string]any{
			"report_type": "individual",
			"period_type": "weekly",
			"year":        1403,
			"week":        7,
			"user_id":     "u1",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		var dto snapshotDTO
		decodeBody(t, rec, &dto)
		if dto.ID != "s1" || dto.Label != "Week 7, 1403" {
			t.Fatalf("unexpected snapshot payload: %+v", dto)
		}
		var content struct {
			TotalMeetings int `json:"total_meetings"`
		}
		if err := json.Unmarshal(dto.Content, &content); err != nil || content.TotalMeetings != 1 {
			t.Fatalf("content not embedded as JSON: %s", dto.Content)
		}
	})

	t.Run("open period maps to 409 PERIOD_OPEN", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)
		server.reports.ensureErr = snapshot.ErrPeriodOpen

		rec := server.do(t, http.MethodPost, "/reports/snapshots", "u1", map[string]any{
			"report_type": "individual",
			"period_type": "weekly",
			"year":        1403,
			"week":        7,
			"user_id":     "u1",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.ErrorCode != "PERIOD_OPEN" {
			t.Fatalf("error_code = %q, want PERIOD_OPEN", resp.ErrorCode)
		}
	})

	t.Run("invalid key payload returns 422", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)
		rec := server.do(t, http.MethodPost, "/reports/snapshots", "u1", map[string]any{
			"report_type": "quarterly_review",
			"period_type": "weekly",
			"year":        1403,
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
		}
	})

	t.Run("live report for another user is forbidden", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)
		rec := server.do(t, http.MethodPost, "/reports/live", "u1", map[string]any{
			"user_id": "admin",
			"period":  map[string]any{"type": "weekly", "year": 1403, "week": 7},
		})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("snapshot lists route by owner", func(t *testing.T) {
		t.Parallel()
		server := newTestServer(t)
		server.reports.snapshots[key] = snapshot.Snapshot{ID: "s1", Key: key}

		rec := server.do(t, http.MethodGet, "/reports/snapshots/users/u1", "u1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var payload struct {
			Snapshots []snapshotDTO `json:"snapshots"`
		}
		decodeBody(t, rec, &payload)
		if len(payload.Snapshots) != 1 || payload.Snapshots[0].ID != "s1" {
			t.Fatalf("unexpected list payload: %+v", payload)
		}
	})
}
