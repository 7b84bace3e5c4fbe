package connection

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/ttbench/internal/common/logging"
	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/store"
)

// DialOptions control how often a failed dial is retried.
type DialOptions struct {
	Attempts uint
	Backoff  time.Duration
}

// Pool is a fixed set of connections handed out in round-robin order.
// The set is never modified after New returns, so Get is safe for concurrent use.
type Pool struct {
	conns  []store.Conn
	cursor atomic.Uint64
}

// New opens instance.Connections connections to every instance, in the order the instances are given.
// If any connection fails, the ones already opened are closed and the error is returned.
func New(ctx context.Context, instances []configuration.InstanceConfig, dial store.Dialer, opts DialOptions) (*Pool, error) {
	if len(instances) == 0 {
		return nil, &ttbencherrors.ErrConfiguration{
			Name:    "instances",
			Value:   instances,
			Message: "instance list can't be empty",
		}
	}
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}

	pool := &Pool{}
	for _, instance := range instances {
		for i := 0; i < instance.Connections; i++ {
			conn, err := dialWithRetry(ctx, instance, dial, opts)
			if err != nil {
				if closeErr := pool.Close(); closeErr != nil {
					logging.WithError(closeErr).Warn("failed to close partially opened pool")
				}
				return nil, err
			}
			pool.conns = append(pool.conns, conn)
		}
	}
	if len(pool.conns) == 0 {
		return nil, &ttbencherrors.ErrConfiguration{
			Name:    "instances",
			Value:   instances,
			Message: "instances must open at least one connection",
		}
	}
	logging.WithField("connections", len(pool.conns)).Info("connection pool ready")
	return pool, nil
}

func dialWithRetry(ctx context.Context, instance configuration.InstanceConfig, dial store.Dialer, opts DialOptions) (store.Conn, error) {
	var conn store.Conn
	err := retry.Do(
		func() error {
			var err error
			conn, err = dial(ctx, instance)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.
				WithField("address", instance.Address).
				WithField("attempt", n+1).
				WithError(err).
				Warn("failed to connect")
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", instance.Address)
	}
	return conn, nil
}

// Get returns the next connection in round-robin order.
func (p *Pool) Get() store.Conn {
	n := p.cursor.Add(1) - 1
	return p.conns[n%uint64(len(p.conns))]
}

// Size returns the number of connections in the pool.
func (p *Pool) Size() int {
	return len(p.conns)
}

// Close closes every connection and returns all errors encountered.
func (p *Pool) Close() error {
	var result *multierror.Error
	for _, conn := range p.conns {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
