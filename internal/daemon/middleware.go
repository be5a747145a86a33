package daemon

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// instrumentHandler wraps a handler with Prometheus metrics and tags every
// request with a request ID for log correlation. If metrics are not
// configured the handler only gains the request ID.
func (s *Server) instrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)

		next.ServeHTTP(rec, r)

		if s.metrics == nil {
			return
		}
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rec.status)
		s.metrics.APIRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		s.metrics.APIRequestDurationSeconds.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
	})
}

// authFailureLog rate-limits warnings about bad auth tokens so a misbehaving
// local client cannot flood the log.
var authFailureLog = rate.NewLimiter(rate.Every(time.Second), 5)

// authMiddleware checks the Authorization: Bearer <token> header on every request.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		expected := "Bearer " + s.authToken

		if auth != expected {
			if authFailureLog.Allow() {
				slog.Warn("daemon: rejected request with invalid auth token", "path", r.URL.Path)
			}
			respondError(w, http.StatusUnauthorized, "unauthorized: invalid or missing auth token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
