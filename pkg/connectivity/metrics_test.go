package connectivity

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	dto "github.com/prometheus/client_model/go"
)

// counterValue reads a counter's current value via the dto snapshot.
func counterValue(t *testing.T, c interface {
	Write(*dto.Metric) error
}) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.incSessionTransition(SessionOnline)
	m.incRelayConnect("success")
	m.incRefresh("peers", "failure")
	m.incEvent(EventPeerConnected)
}

func TestMetricsTrackSessionAndRelay(t *testing.T) {
	gw := newFakeGateway()
	metrics := NewMetrics("test", "go-test")
	mock := clock.NewMock()
	s := NewStore(Config{Gateway: gw, Clock: mock, Metrics: metrics})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		s.Close()
	})

	if err := s.StartNetwork(ctx); err != nil {
		t.Fatalf("StartNetwork: %v", err)
	}
	if got := counterValue(t, metrics.SessionTransitionsTotal.WithLabelValues("online")); got != 1 {
		t.Errorf("online transitions = %v, want 1", got)
	}

	gw.mu.Lock()
	gw.relayErr = errors.New("refused")
	gw.mu.Unlock()
	_ = s.ConnectToRelay(ctx, testRelayAddr)
	if got := counterValue(t, metrics.RelayConnectTotal.WithLabelValues("request_failed")); got != 1 {
		t.Errorf("request_failed = %v, want 1", got)
	}

	gw.mu.Lock()
	gw.relayErr = nil
	gw.mu.Unlock()
	if err := s.ConnectToRelay(ctx, testRelayAddr); err != nil {
		t.Fatalf("ConnectToRelay: %v", err)
	}
	mock.Add(relayConnectTimeout)
	if got := counterValue(t, metrics.RelayTimeoutsTotal); got != 1 {
		t.Errorf("relay timeouts = %v, want 1", got)
	}
	if got := counterValue(t, metrics.RelayConnectTotal.WithLabelValues("timeout")); got != 1 {
		t.Errorf("timeout result = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	metrics := NewMetrics("1.2.3", "go1.x")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "meshwire_info") {
		t.Errorf("scrape output missing meshwire_info:\n%s", body[:min(len(body), 400)])
	}
	if !strings.Contains(body, `version="1.2.3"`) {
		t.Error("scrape output missing version label")
	}
}
