package connectivity

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all meshwire Prometheus collectors on an isolated registry
// so they never collide with the global default registry. Every consumer is
// nil-safe: passing a nil *Metrics disables instrumentation.
type Metrics struct {
	Registry *prometheus.Registry

	// Session lifecycle
	SessionTransitionsTotal *prometheus.CounterVec

	// Relay connection attempts and timeouts
	RelayConnectTotal  *prometheus.CounterVec
	RelayTimeoutsTotal prometheus.Counter

	// Polling refreshes
	RefreshTotal *prometheus.CounterVec

	// Backend events by kind
	EventsTotal *prometheus.CounterVec

	// Live gauges
	ConnectedPeers prometheus.Gauge
	RelayAddresses prometheus.Gauge

	// Hole punching
	HolePunchSucceededTotal prometheus.Counter

	// Control API
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	// Build info
	BuildInfo *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with all collectors registered on a
// fresh registry. Each test gets its own instance.
func NewMetrics(version, goVersion string) *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		SessionTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshwire_session_transitions_total",
				Help: "Total session status transitions.",
			},
			[]string{"to"},
		),
		RelayConnectTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshwire_relay_connect_total",
				Help: "Total relay connection attempts by result.",
			},
			[]string{"result"},
		),
		RelayTimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meshwire_relay_timeouts_total",
				Help: "Total relay connection attempts that hit the deadline.",
			},
		),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshwire_refresh_total",
				Help: "Total backend refresh pulls by kind and result.",
			},
			[]string{"kind", "result"},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshwire_events_total",
				Help: "Total backend lifecycle events by kind.",
			},
			[]string{"kind"},
		),
		ConnectedPeers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "meshwire_connected_peers",
				Help: "Number of currently connected peers.",
			},
		),
		RelayAddresses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "meshwire_relay_addresses",
				Help: "Number of known relay circuit addresses.",
			},
		),
		HolePunchSucceededTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meshwire_holepunch_succeeded_total",
				Help: "Total successful hole punches reported by the backend.",
			},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshwire_api_requests_total",
				Help: "Total control API requests.",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meshwire_api_request_duration_seconds",
				Help:    "Duration of control API requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "meshwire_info",
				Help: "Build information for the running meshwire instance.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		m.SessionTransitionsTotal,
		m.RelayConnectTotal,
		m.RelayTimeoutsTotal,
		m.RefreshTotal,
		m.EventsTotal,
		m.ConnectedPeers,
		m.RelayAddresses,
		m.HolePunchSucceededTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.BuildInfo,
	)

	m.BuildInfo.WithLabelValues(version, goVersion).Set(1)

	return m
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// incSessionTransition is a nil-safe helper used by the store.
func (m *Metrics) incSessionTransition(to SessionStatus) {
	if m != nil {
		m.SessionTransitionsTotal.WithLabelValues(string(to)).Inc()
	}
}

func (m *Metrics) incRelayConnect(result string) {
	if m != nil {
		m.RelayConnectTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) incRefresh(kind, result string) {
	if m != nil {
		m.RefreshTotal.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) incEvent(kind EventKind) {
	if m != nil {
		m.EventsTotal.WithLabelValues(string(kind)).Inc()
	}
}
