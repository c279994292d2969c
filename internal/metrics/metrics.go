// Package metrics holds the Prometheus collectors of the compiler pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "leapview"

// Metrics holds prometheus metrics for compilation, emission, persistence
// and export analysis.
type Metrics struct {
	compileDuration *prometheus.HistogramVec
	filesEmitted    prometheus.Counter
	diagnostics     *prometheus.CounterVec
	writes          *prometheus.CounterVec
	exports         *prometheus.CounterVec
	sessions        prometheus.Gauge
}

// New creates an unregistered set of collectors.
func New() *Metrics {
	return &Metrics{
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "compile",
				Name:      "duration_seconds",
				Help:      "Interface compilation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
			[]string{"result"}, // "success" or "error"
		),
		filesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emit",
			Name:      "files_total",
			Help:      "Number of artifact files emitted.",
		}),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "emit",
				Name:      "diagnostics_total",
				Help:      "Number of artifact check diagnostics by severity.",
			},
			[]string{"severity"},
		),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "persist",
				Name:      "writes_total",
				Help:      "Details writes by outcome.",
			},
			[]string{"outcome"}, // sent, suppressed, failed, superseded
		),
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exports",
				Name:      "analyses_total",
				Help:      "Import export analyses by resulting status.",
			},
			[]string{"status"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "open",
			Help:      "Number of open editor sessions.",
		}),
	}
}

// ObserveCompile records one interface compilation.
func (m *Metrics) ObserveCompile(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.compileDuration.WithLabelValues(result).Observe(d.Seconds())
}

// AddFiles counts emitted artifact files.
func (m *Metrics) AddFiles(n int) {
	if m == nil {
		return
	}
	m.filesEmitted.Add(float64(n))
}

// ObserveDiagnostic counts one artifact check diagnostic.
func (m *Metrics) ObserveDiagnostic(severity string) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(severity).Inc()
}

// ObserveWrite counts one details write outcome.
func (m *Metrics) ObserveWrite(outcome string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(outcome).Inc()
}

// ObserveExport counts one finished export analysis.
func (m *Metrics) ObserveExport(status string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(status).Inc()
}

// SessionOpened increments the open session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionClosed decrements the open session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.compileDuration,
		m.filesEmitted,
		m.diagnostics,
		m.writes,
		m.exports,
		m.sessions,
	)
}
