// File: internal/observability/metrics.go
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "guestpass"

// Metrics groups the collectors recorded by runs. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	inFlight    prometheus.Gauge
	runDuration *prometheus.HistogramVec
	fieldsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry, together with the
// standard Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Completed form-fill runs by final status.",
		}, []string{"status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "runs_in_flight",
			Help:      "Runs currently executing.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of runs.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"status"}),
		fieldsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fields_total",
			Help:      "Per-field outcomes across runs.",
		}, []string{"field", "outcome"}),
	}
	reg.MustRegister(
		m.runsTotal, m.inFlight, m.runDuration, m.fieldsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RunStarted marks a run as in flight.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RunFinished records the terminal status and duration of a run.
func (m *Metrics) RunFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// FieldOutcome counts one field result.
func (m *Metrics) FieldOutcome(field, outcome string) {
	if m == nil {
		return
	}
	m.fieldsTotal.WithLabelValues(field, outcome).Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
