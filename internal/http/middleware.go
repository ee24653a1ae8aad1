package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/karnameh/internal/application"
	"github.com/example/karnameh/internal/persistence"
)

// IdentityResolver looks up the account backing a request identity.
type IdentityResolver interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
}

// RequireIdentity resolves the X-User-ID header into a Principal and injects
// it into the request context. Requests without a resolvable identity are
// rejected.
func RequireIdentity(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
			if userID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
				return
			}

			user, err := resolver.GetUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, application.ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "unknown user identity"})
					return
				}
				responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "failed to resolve identity"})
				return
			}
			if !user.Active {
				responder.writeJSON(r.Context(), w, http.StatusForbidden, errorResponse{Message: "account is deactivated"})
				return
			}

			ctx := ContextWithPrincipal(r.Context(), application.Principal{
				UserID:   user.ID,
				DomainID: user.DomainID,
				IsAdmin:  user.IsAdmin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request-scoped logger and records request timing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
