package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus collectors of the gateway on a private registry,
// so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	mutations      *prometheus.CounterVec
	fetches        *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "favourites_mutations_total",
				Help: "Favourite mutations by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "favourites_fetches_total",
				Help: "Favourites cache fetches from the remote store by outcome",
			},
			[]string{"outcome"},
		),
		remoteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "favourites_remote_request_duration_seconds",
				Help:    "Duration of requests to the remote favourites store in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "favourites_active_sessions",
				Help: "Number of open user sessions holding a favourites cache",
			},
		),
	}

	m.Registry.MustRegister(m.mutations, m.fetches, m.remoteLatency, m.activeSessions)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// The methods below accept a nil receiver so callers may run without metrics.

func (m *Metrics) ObserveMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

// ObserveRemote records one remote request. status 0 means a transport failure.
func (m *Metrics) ObserveRemote(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.remoteLatency.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
