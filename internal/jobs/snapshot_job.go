// Package jobs hosts the background work the server schedules with quartz.
// Its single job today walks every active user and domain and freezes report
// snapshots for the most recently closed week, month, and year.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"

	"github.com/example/karnameh/internal/application"
	"github.com/example/karnameh/internal/jalali"
	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/persistence"
	"github.com/example/karnameh/internal/snapshot"
)

// SnapshotEnsurer freezes a snapshot for a key if the period has closed.
type SnapshotEnsurer interface {
	EnsureSnapshot(ctx context.Context, principal application.Principal, key snapshot.Key) (snapshot.Snapshot, error)
}

// SnapshotJob materializes snapshots for closed periods. Every run covers
// the previous week, month, and year; ensure semantics make repeat runs
// harmless.
type SnapshotJob struct {
	reports   SnapshotEnsurer
	users     persistence.UserRepository
	domains   persistence.DomainRepository
	converter *jalali.Converter
	now       func() time.Time
	logger    *slog.Logger
}

// NewSnapshotJob constructs the job.
func NewSnapshotJob(
	reports SnapshotEnsurer,
	users persistence.UserRepository,
	domains persistence.DomainRepository,
	converter *jalali.Converter,
	now func() time.Time,
	logger *slog.Logger,
) *SnapshotJob {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotJob{
		reports:   reports,
		users:     users,
		domains:   domains,
		converter: converter,
		now:       now,
		logger:    logger,
	}
}

type closedPeriod struct {
	periodType period.Type
	year       int
	month      int
	week       int
}

// closedPeriods returns the most recently completed week, month, and year
// relative to the job clock. A reference date in week 0 rolls the weekly
// target back to the last week of the previous year.
func (j *SnapshotJob) closedPeriods() ([]closedPeriod, error) {
	today, err := j.converter.FromTime(j.now())
	if err != nil {
		return nil, fmt.Errorf("failed to locate reference date: %w", err)
	}

	weekAgo := today.AddDays(-7)
	weekYear := weekAgo.Year()
	week, err := jalali.WeekOf(weekAgo)
	if err != nil {
		return nil, err
	}
	if week < 1 {
		weekYear--
		if week, err = jalali.LastWeek(weekYear); err != nil {
			return nil, err
		}
	}

	monthYear, month := today.Year(), today.Month()-1
	if month < 1 {
		monthYear, month = monthYear-1, 12
	}

	return []closedPeriod{
		{periodType: period.TypeWeekly, year: weekYear, week: week},
		{periodType: period.TypeMonthly, year: monthYear, month: month},
		{periodType: period.TypeYearly, year: today.Year() - 1},
	}, nil
}

// Run ensures all snapshot targets once. Individual failures are logged and
// skipped so one bad target cannot starve the rest.
func (j *SnapshotJob) Run(ctx context.Context) error {
	logger := j.logger.With("job", "snapshots")
	periods, err := j.closedPeriods()
	if err != nil {
		logger.ErrorContext(ctx, "failed to compute snapshot periods", "error", err)
		return err
	}

	users, err := j.users.ListActiveUsers(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list users", "error", err)
		return err
	}
	domains, err := j.domains.ListActiveDomains(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list domains", "error", err)
		return err
	}

	var keys []snapshot.Key
	for _, p := range periods {
		for _, user := range users {
			keys = append(keys, snapshot.Key{
				ReportType: snapshot.ReportIndividual,
				PeriodType: p.periodType,
				Year:       p.year,
				Month:      p.month,
				Week:       p.week,
				UserID:     user.ID,
			})
		}
		for _, domain := range domains {
			keys = append(keys, snapshot.Key{
				ReportType: snapshot.ReportTeam,
				PeriodType: p.periodType,
				Year:       p.year,
				Month:      p.month,
				Week:       p.week,
				DomainID:   domain.ID,
			})
		}
	}

	// The scheduler acts on behalf of the system, not any one account.
	principal := application.Principal{IsAdmin: true}
	ensured, failed := 0, 0
	for _, key := range keys {
		if _, err := j.reports.EnsureSnapshot(ctx, principal, key); err != nil {
			if errors.Is(err, snapshot.ErrPeriodOpen) {
				continue
			}
			failed++
			logger.WarnContext(ctx, "snapshot target failed", "key", key.String(), "error", err)
			continue
		}
		ensured++
	}

	logger.InfoContext(ctx, "snapshot sweep finished", "targets", len(keys), "ensured", ensured, "failed", failed)
	return nil
}

// Schedule registers the job on a quartz scheduler with a fixed interval.
func Schedule(scheduler quartz.Scheduler, snapshots *SnapshotJob, interval time.Duration) error {
	functionJob := job.NewFunctionJob(func(ctx context.Context) (int, error) {
		return 0, snapshots.Run(ctx)
	})
	detail := quartz.NewJobDetail(functionJob, quartz.NewJobKey("report_snapshots"))
	return scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(interval))
}
