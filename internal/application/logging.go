package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/karnameh/internal/logging"
	"github.com/example/karnameh/internal/period"
	"github.com/example/karnameh/internal/recurrence"
	"github.com/example/karnameh/internal/snapshot"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, snapshot.ErrPeriodOpen):
		return "period_open"
	case errors.Is(err, snapshot.ErrInvalidKey):
		return "invalid_key"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var pErr *period.UnsupportedPeriodTypeError
	if errors.As(err, &pErr) {
		return "validation"
	}
	var aErr *recurrence.AmbiguousRecurrenceError
	if errors.As(err, &aErr) {
		return "validation"
	}

	return "internal"
}
