package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/literature-backend/pkg/logger"
)

// responseRecorder remembers the status and body size written downstream.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Logging writes one access entry per request once the handler returns. The
// entry carries the resolved chi route and, for authenticated calls, the
// actor's user, organization and role. Server errors log at error level,
// client errors at warn. Health checks and metric scrapes only log at debug.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logg == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx, entry := withAccessEntry(r.Context())
			rec := &responseRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			fields := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       rec.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if rc := chi.RouteContext(ctx); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
			}
			if entry.hasActor {
				fields["user_id"] = entry.actor.UserID.String()
				fields["organization_id"] = entry.actor.OrganizationID.String()
				fields["actor_role"] = string(entry.actor.Role)
			}
			logCtx := logg.WithFields(ctx, fields)

			switch {
			case quietPath(r.URL.Path) && status < http.StatusInternalServerError:
				logg.Debug(logCtx, "request.complete")
			case status >= http.StatusInternalServerError:
				logg.Error(logCtx, "request.failed", fmt.Errorf("status %d", status))
			case status >= http.StatusBadRequest:
				logg.Warn(logCtx, "request.rejected")
			default:
				logg.Info(logCtx, "request.complete")
			}
		})
	}
}

func quietPath(path string) bool {
	return strings.HasPrefix(path, "/health/") || path == "/metrics"
}
