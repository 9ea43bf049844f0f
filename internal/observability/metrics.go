// Package observability holds the service's Prometheus metrics and
// OpenTelemetry tracer setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xiaot623/gogo/chatstream/internal/domain"
)

const metricsNamespace = "chatstream"

// Metrics tracks chat turns.
type Metrics struct {
	Registry *prometheus.Registry

	TurnsTotal                 *prometheus.CounterVec
	FragmentsTotal             *prometheus.CounterVec
	FallbacksTotal             prometheus.Counter
	ActiveTurns                prometheus.Gauge
	TurnDurationSeconds        *prometheus.HistogramVec
	TimeToFirstFragmentSeconds prometheus.Histogram
}

// NewMetrics registers the turn metrics, plus Go runtime and process
// collectors, on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "turns_total",
				Help:      "Chat turns by outcome",
			},
			[]string{"outcome"},
		),
		FragmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fragments_total",
				Help:      "Reply fragments forwarded to clients by reply source",
			},
			[]string{"source"},
		),
		FallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fallbacks_total",
				Help:      "Turns that switched to the local fallback after a remote failure",
			},
		),
		ActiveTurns: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_turns",
				Help:      "Chat turns currently streaming",
			},
		),
		TurnDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "turn_duration_seconds",
				Help:      "Time spent streaming and finalizing a turn",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
		TimeToFirstFragmentSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "time_to_first_fragment_seconds",
				Help:      "Time from stream start to the first forwarded fragment",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
	}
}

func (m *Metrics) TurnStarted() {
	m.ActiveTurns.Inc()
}

// TurnFinished records the end of a turn that started at start.
func (m *Metrics) TurnFinished(outcome domain.TurnOutcome, start time.Time) {
	m.ActiveTurns.Dec()
	m.TurnsTotal.WithLabelValues(string(outcome)).Inc()
	m.TurnDurationSeconds.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Fragment(source string) {
	m.FragmentsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) FirstFragment(start time.Time) {
	m.TimeToFirstFragmentSeconds.Observe(time.Since(start).Seconds())
}

func (m *Metrics) Fallback() {
	m.FallbacksTotal.Inc()
}
