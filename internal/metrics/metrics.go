// Package metrics provides Prometheus metrics for summarization invocations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "urlsum"

type Metrics struct {
	// Invocations counts finished invocations by source kind and outcome.
	Invocations *prometheus.CounterVec
	// Duration measures invocations by source kind.
	Duration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of summarization invocations",
			},
			[]string{"source", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of summarization invocations in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"source"},
		),
	}
}

func (m *Metrics) Observe(source string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.Invocations.WithLabelValues(source, outcome).Inc()
	m.Duration.WithLabelValues(source).Observe(elapsed.Seconds())
}
