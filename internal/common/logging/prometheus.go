package logging

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PrometheusHook counts log lines per level.
type PrometheusHook struct {
	counters map[zapcore.Level]prometheus.Counter
}

// NewPrometheusHook creates and registers Prometheus counters for each log level.
func NewPrometheusHook(registerer prometheus.Registerer) *PrometheusHook {
	counters := make(map[zapcore.Level]prometheus.Counter)

	for _, level := range []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
	} {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "log_messages",
			Help: "Total number of log lines logged by level",
			ConstLabels: prometheus.Labels{
				"level": level.String(),
			},
		})
		registerer.MustRegister(counter)
		counters[level] = counter
	}
	return &PrometheusHook{counters: counters}
}

func (h *PrometheusHook) Run(entry zapcore.Entry) error {
	if counter, ok := h.counters[entry.Level]; ok {
		counter.Inc()
	}
	return nil
}

// Option returns a zap option installing the hook.
func (h *PrometheusHook) Option() zap.Option {
	return zap.Hooks(h.Run)
}
