package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/domain/defect"
)

type actorKey struct{}

func actorFromContext(ctx context.Context) (defect.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(defect.Actor)
	return actor, ok
}

// requireAuth verifies the bearer token and stores the actor on the request
// context for downstream handlers.
func (h *handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		actor, err := h.deps.Auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Info(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
