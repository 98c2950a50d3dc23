package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mockgov"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics tracks configuration loads on a private Prometheus registry.
type Metrics struct {
	registry   *prometheus.Registry
	reloads    *prometheus.CounterVec
	entries    prometheus.Gauge
	version    prometheus.Gauge
	lastReload prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Configuration loads by result.",
		}, []string{"result"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_entries",
			Help:      "Leaf values in the active registry.",
		}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_version",
			Help:      "Version of the active snapshot.",
		}),
		lastReload: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reload_timestamp_seconds",
			Help:      "Unix time of the last successful load.",
		}),
	}
	m.registry.MustRegister(m.reloads, m.entries, m.version, m.lastReload)
	// both label values show up from the start
	m.reloads.WithLabelValues(ResultSuccess)
	m.reloads.WithLabelValues(ResultFailure)
	return m
}

// ObserveSuccess records a snapshot that became active.
func (m *Metrics) ObserveSuccess(entries int, version uint64, at time.Time) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(ResultSuccess).Inc()
	m.entries.Set(float64(entries))
	m.version.Set(float64(version))
	m.lastReload.Set(float64(at.Unix()))
}

// ObserveFailure records a load that was rejected.
func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(ResultFailure).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Timeout: 5 * time.Second,
	})
}
