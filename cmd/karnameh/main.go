package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/reugn/go-quartz/quartz"

	"github.com/example/karnameh/internal/application"
	"github.com/example/karnameh/internal/config"
	httptransport "github.com/example/karnameh/internal/http"
	"github.com/example/karnameh/internal/jalali"
	"github.com/example/karnameh/internal/jobs"
	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/persistence/sqlite"
	"github.com/example/karnameh/internal/recurrence"
	"github.com/example/karnameh/internal/snapshot"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional; the environment wins over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.DatabasePath))
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := func() string { return uuid.NewString() }
	now := time.Now

	converter := jalali.NewConverter(cfg.Location, cfg.Locale)
	resolver := period.NewResolver(converter)
	engine := recurrence.NewEngine(cfg.Location, cfg.BoundPolicy)

	userRepo := sqlite.NewUserRepository(pool)
	domainRepo := sqlite.NewDomainRepository(pool)
	meetingRepo := sqlite.NewMeetingRepository(pool)
	snapshotStore := sqlite.NewSnapshotRepository(pool)

	userService := application.NewUserService(userRepo, domainRepo, idGenerator, now, logger)
	meetingService := application.NewMeetingService(meetingRepo, userService, engine, idGenerator, now, logger)
	snapshotService := snapshot.NewService(snapshotStore, resolver, idGenerator, now, logger)
	reportService := application.NewReportService(meetingService, snapshotService, userRepo, resolver, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Meetings: httptransport.NewMeetingHandler(meetingService, now, logger),
		Periods:  httptransport.NewPeriodHandler(reportService, logger),
		Reports:  httptransport.NewReportHandler(reportService, logger),
		Users:    httptransport.NewUserHandler(userService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireIdentity(userRepo, logger),
		},
	})

	scheduler := quartz.NewStdScheduler()
	scheduler.Start(ctx)
	snapshotJob := jobs.NewSnapshotJob(reportService, userRepo, domainRepo, converter, now, logger)
	if err := jobs.Schedule(scheduler, snapshotJob, cfg.SnapshotInterval); err != nil {
		logger.Error("failed to schedule snapshot job", "error", err)
		os.Exit(1)
	}
	defer func() {
		scheduler.Stop()
		scheduler.Wait(context.Background())
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("karnameh API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
