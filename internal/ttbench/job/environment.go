package job

import (
	"golang.org/x/time/rate"

	"github.com/armadaproject/ttbench/internal/common/metrics"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/routing"
	"github.com/armadaproject/ttbench/internal/ttbench/store"
)

// Connections hands out store connections. It is implemented by connection.Pool.
type Connections interface {
	Get() store.Conn
}

// Environment is everything a dispatch operation may use. It is shared by every job of every phase.
type Environment struct {
	Config configuration.Config
	Pool   Connections
	Router *routing.Router
	// Optional. If nil dispatches are not recorded.
	Metrics *metrics.DispatchMetrics
	// Optional. If nil dispatches are not throttled.
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing perSecond dispatches per second, or nil if perSecond is not positive.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
