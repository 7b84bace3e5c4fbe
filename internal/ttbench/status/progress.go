package status

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/armadaproject/ttbench/internal/common/metrics"
)

// Progress holds the counters of a single phase. All methods are safe for concurrent use.
type Progress struct {
	phase     string
	items     atomic.Uint64
	failures  atomic.Uint64
	elapsedMs atomic.Uint64
}

func NewProgress(phase string) *Progress {
	return &Progress{phase: phase}
}

func (p *Progress) Phase() string {
	return p.phase
}

// Completed returns the number of items claimed so far.
func (p *Progress) Completed() uint64 {
	return p.items.Load()
}

func (p *Progress) Failures() uint64 {
	return p.failures.Load()
}

func (p *Progress) Elapsed() time.Duration {
	return time.Duration(p.elapsedMs.Load()) * time.Millisecond
}

func (p *Progress) addItem() {
	p.items.Add(1)
}

func (p *Progress) addFailure() {
	p.failures.Add(1)
}

func (p *Progress) addElapsed(d time.Duration) {
	p.elapsedMs.Add(uint64(d.Milliseconds()))
}

// Summary is the report of a finished phase.
// Latency figures are not aggregated and are always zero.
type Summary struct {
	Phase      string
	Elapsed    time.Duration
	Items      uint64
	Failures   uint64
	LatencyAvg time.Duration
	LatencyP95 time.Duration
	LatencyMax time.Duration
	// Items per second
	Rate float64
}

func (p *Progress) Summary() Summary {
	summary := Summary{
		Phase:    p.phase,
		Elapsed:  p.Elapsed(),
		Items:    p.Completed(),
		Failures: p.Failures(),
	}
	if summary.Elapsed > 0 {
		summary.Rate = float64(summary.Items) / summary.Elapsed.Seconds()
	}
	return summary
}

// Fields returns the summary in a form suitable for structured logging.
func (s Summary) Fields() map[string]any {
	return map[string]any{
		"phase":      s.Phase,
		"elapsed":    s.Elapsed.String(),
		"items":      s.Items,
		"failures":   s.Failures,
		"latencyAvg": s.LatencyAvg.String(),
		"latencyP95": s.LatencyP95.String(),
		"latencyMax": s.LatencyMax.String(),
		"rate":       s.Rate,
	}
}

func (p *Progress) Describe(desc chan<- *prometheus.Desc) {
	desc <- metrics.PhaseItemsDesc
	desc <- metrics.PhaseFailuresDesc
	desc <- metrics.PhaseElapsedDesc
}

func (p *Progress) Collect(out chan<- prometheus.Metric) {
	out <- prometheus.MustNewConstMetric(metrics.PhaseItemsDesc, prometheus.CounterValue, float64(p.Completed()), p.phase)
	out <- prometheus.MustNewConstMetric(metrics.PhaseFailuresDesc, prometheus.CounterValue, float64(p.Failures()), p.phase)
	out <- prometheus.MustNewConstMetric(metrics.PhaseElapsedDesc, prometheus.GaugeValue, p.Elapsed().Seconds(), p.phase)
}
