package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const MetricPrefix = "ttbench_"

var PhaseItemsDesc = prometheus.NewDesc(
	MetricPrefix+"phase_items_completed",
	"Number of work items claimed by the jobs of a phase",
	[]string{"phase"},
	nil,
)

var PhaseFailuresDesc = prometheus.NewDesc(
	MetricPrefix+"phase_items_failed",
	"Number of work items of a phase whose dispatch failed",
	[]string{"phase"},
	nil,
)

var PhaseElapsedDesc = prometheus.NewDesc(
	MetricPrefix+"phase_elapsed_seconds",
	"Time spent waiting for a phase to converge",
	[]string{"phase"},
	nil,
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// DispatchMetrics records the latency and outcome of every dispatched operation.
type DispatchMetrics struct {
	latency  *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewDispatchMetrics creates the dispatch metrics and registers them with registerer.
func NewDispatchMetrics(registerer prometheus.Registerer) (*DispatchMetrics, error) {
	m := &DispatchMetrics{
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPrefix + "dispatch_latency_seconds",
				Help:    "Latency of dispatched operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18),
			},
			[]string{"phase"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "dispatch_total",
				Help: "Number of dispatched operations by outcome",
			},
			[]string{"phase", "outcome"},
		),
	}
	for _, c := range []prometheus.Collector{m.latency, m.outcomes} {
		if err := registerer.Register(c); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return m, nil
}

// Observe records a single dispatch. It is a no-op on a nil receiver.
func (m *DispatchMetrics) Observe(phase string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(phase).Observe(duration.Seconds())
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	m.outcomes.WithLabelValues(phase, outcome).Inc()
}
