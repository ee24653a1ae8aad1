package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/karnameh/internal/application"
	"github.com/example/karnameh/internal/jalali"
	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/persistence"
	"github.com/example/karnameh/internal/snapshot"
)

type recordingEnsurer struct {
	keys    []snapshot.Key
	openErr map[snapshot.Key]bool
}

func (r *recordingEnsurer) EnsureSnapshot(_ context.Context, principal application.Principal, key snapshot.Key) (snapshot.Snapshot, error) {
	if !principal.IsAdmin {
		return snapshot.Snapshot{}, application.ErrUnauthorized
	}
	if r.openErr[key] {
		return snapshot.Snapshot{}, snapshot.ErrPeriodOpen
	}
	r.keys = append(r.keys, key)
	return snapshot.Snapshot{Key: key}, nil
}

type staticUsers struct {
	persistence.UserRepository
	users []persistence.User
}

func (s staticUsers) ListActiveUsers(context.Context) ([]persistence.User, error) {
	return s.users, nil
}

type staticDomains struct {
	persistence.DomainRepository
	domains []persistence.Domain
}

func (s staticDomains) ListActiveDomains(context.Context) ([]persistence.Domain, error) {
	return s.domains, nil
}

func newJob(ensurer *recordingEnsurer, now time.Time, users []persistence.User, domains []persistence.Domain) *SnapshotJob {
	return NewSnapshotJob(
		ensurer,
		staticUsers{users: users},
		staticDomains{domains: domains},
		jalali.NewConverter(time.UTC, jalali.LocaleLatin),
		func() time.Time { return now },
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestClosedPeriods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		now       time.Time
		wantWeek  closedPeriod
		wantMonth closedPeriod
		wantYear  closedPeriod
	}{
		{
			// 2024-05-12 falls inside week 8 of 1403.
			name:      "mid year",
			now:       time.Date(2024, 5, 12, 3, 0, 0, 0, time.UTC),
			wantWeek:  closedPeriod{periodType: period.TypeWeekly, year: 1403, week: 7},
			wantMonth: closedPeriod{periodType: period.TypeMonthly, year: 1403, month: 1},
			wantYear:  closedPeriod{periodType: period.TypeYearly, year: 1402},
		},
		{
			// Nowruz 1403: a week earlier is still in 1402 and Farvardin
			// has no previous month in the same year.
			name:      "start of year",
			now:       time.Date(2024, 3, 21, 3, 0, 0, 0, time.UTC),
			wantWeek:  closedPeriod{periodType: period.TypeWeekly, year: 1402, week: 51},
			wantMonth: closedPeriod{periodType: period.TypeMonthly, year: 1402, month: 12},
			wantYear:  closedPeriod{periodType: period.TypeYearly, year: 1402},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			job := newJob(&recordingEnsurer{}, tc.now, nil, nil)

			periods, err := job.closedPeriods()
			if err != nil {
				t.Fatalf("closedPeriods: %v", err)
			}
			if len(periods) != 3 {
				t.Fatalf("got %d periods, want 3", len(periods))
			}
			if periods[0] != tc.wantWeek {
				t.Errorf("weekly = %+v, want %+v", periods[0], tc.wantWeek)
			}
			if periods[1] != tc.wantMonth {
				t.Errorf("monthly = %+v, want %+v", periods[1], tc.wantMonth)
			}
			if periods[2] != tc.wantYear {
				t.Errorf("yearly = %+v, want %+v", periods[2], tc.wantYear)
			}
		})
	}
}

func TestRunCoversUsersAndDomains(t *testing.T) {
	t.Parallel()

	ensurer := &recordingEnsurer{}
	job := newJob(ensurer,
		time.Date(2024, 5, 12, 3, 0, 0, 0, time.UTC),
		[]persistence.User{{ID: "u1", DomainID: "d1"}, {ID: "u2", DomainID: "d1"}},
		[]persistence.Domain{{ID: "d1"}},
	)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 3 periods x (2 users + 1 domain).
	if len(ensurer.keys) != 9 {
		t.Fatalf("ensured %d keys, want 9", len(ensurer.keys))
	}
	for _, key := range ensurer.keys {
		if err := key.Validate(); err != nil {
			t.Errorf("job produced invalid key %s: %v", key.String(), err)
		}
	}
}

func TestRunSkipsOpenPeriods(t *testing.T) {
	t.Parallel()

	open := snapshot.Key{
		ReportType: snapshot.ReportIndividual,
		PeriodType: period.TypeWeekly,
		Year:       1403,
		Week:       7,
		UserID:     "u1",
	}
	ensurer := &recordingEnsurer{openErr: map[snapshot.Key]bool{open: true}}
	job := newJob(ensurer,
		time.Date(2024, 5, 12, 3, 0, 0, 0, time.UTC),
		[]persistence.User{{ID: "u1", DomainID: "d1"}},
		nil,
	)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, key := range ensurer.keys {
		if key == open {
			t.Fatalf("open period key was ensured: %s", key.String())
		}
	}
	if len(ensurer.keys) != 2 {
		t.Fatalf("ensured %d keys, want 2", len(ensurer.keys))
	}
}
