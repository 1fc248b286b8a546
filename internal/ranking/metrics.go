package ranking

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	invocations    *prometheus.CounterVec
	duration       prometheus.Histogram
	sourceFailures *prometheus.CounterVec
	sanitizedTotal *prometheus.CounterVec
	listSize       prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them with reg.
// Collectors that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranking_invocations_total",
			Help: "Total number of ranking invocations by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranking_duration_seconds",
			Help:    "Time spent producing a ranked list",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranking_signal_source_failures_total",
			Help: "Total number of signal source failures",
		}, []string{"source"}),
		sanitizedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ranking_signal_values_sanitized_total",
			Help: "Raw signal values replaced with zero",
		}, []string{"source", "reason"}),
		listSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranking_list_size",
			Help:    "Number of items in produced ranked lists",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
	}

	m.invocations = register(reg, m.invocations)
	m.duration = register(reg, m.duration)
	m.sourceFailures = register(reg, m.sourceFailures)
	m.sanitizedTotal = register(reg, m.sanitizedTotal)
	m.listSize = register(reg, m.listSize)

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observe(outcome string, started time.Time, size int) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(started).Seconds())
	if outcome == "success" {
		m.listSize.Observe(float64(size))
	}
}

func (m *Metrics) sourceFailed(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) sanitized(source, reason string) {
	if m == nil {
		return
	}
	m.sanitizedTotal.WithLabelValues(source, reason).Inc()
}
