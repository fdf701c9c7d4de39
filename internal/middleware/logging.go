package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/societyhub/internal/metrics"
)

const requestInfoKey contextKey = "request_info"

// requestInfo lets handlers deeper in the chain report back to Logging.
type requestInfo struct {
	userID string
}

// Logging returns a middleware that logs every request and records its
// latency. It logs the route, user ID, status and duration.
func Logging(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			info := &requestInfo{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestInfoKey, info)))

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.ObserveHTTP(r.Method, route, status, elapsed)

			attrs := []any{
				"method", r.Method,
				"route", route,
				"status", status,
				"user_id", info.userID, // empty if pre-auth
				"request_id", chimw.GetReqID(r.Context()),
				"duration_ms", elapsed.Milliseconds(),
			}
			switch {
			case status >= http.StatusInternalServerError:
				slog.Error("HTTP error", attrs...)
			case status >= http.StatusBadRequest:
				slog.Warn("HTTP error", attrs...)
			default:
				slog.Info("HTTP ok", attrs...)
			}
		})
	}
}
