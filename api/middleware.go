package api

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// Logging records method, path, status and duration for every request.
func Logging(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			log.Info("handled",
				"method", r.Method,
				"url", r.URL.Path,
				"status", m.Code,
				"duration", m.Duration)
		})
	}
}
