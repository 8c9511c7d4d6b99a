package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

// Logging emits one access line per request once the handler returns.
// Probe and scrape traffic is logged at debug.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(started).Milliseconds(),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
			}
			accessLog(logg, r, status)(logg.WithFields(r.Context(), fields), "http.request")
		})
	}
}

func accessLog(logg *logger.Logger, r *http.Request, status int) func(context.Context, string) {
	switch {
	case status >= http.StatusInternalServerError:
		return logg.Warn
	case strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics":
		return logg.Debug
	default:
		return logg.Info
	}
}
