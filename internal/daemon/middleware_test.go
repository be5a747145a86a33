package daemon

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/meshwire/meshwire/pkg/connectivity"
)

func TestStatusRecorderCapturesCode(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusTeapot)
	if rec.status != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.status)
	}
}

func TestInstrumentHandlerCountsRequests(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.SetMetrics(connectivity.NewMetrics("test", runtime.Version()))

	handler := s.instrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest("POST", "/v1/relay/public", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("no request ID header set")
	}

	counter := s.metrics.APIRequestsTotal.WithLabelValues("POST", "/v1/relay/public", "202")
	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if got := m.Counter.GetValue(); got != 1 {
		t.Errorf("request count = %v, want 1", got)
	}
}

func TestInstrumentHandlerWithoutMetrics(t *testing.T) {
	s, _, _ := newTestServer(t)

	handler := s.instrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.authToken = "sekrit"

	handler := s.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer sekrit", http.StatusOK},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic sekrit", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
