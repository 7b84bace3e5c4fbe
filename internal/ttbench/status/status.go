package status

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/armadaproject/ttbench/internal/common/logging"
	"github.com/armadaproject/ttbench/internal/ttbench/target"
)

// PollInterval is how often waiters check whether the target has been reached.
const PollInterval = 100 * time.Millisecond

// Status is shared by all jobs of a phase. It wraps the phase target and counts what the jobs do with it.
// The logger is expected to be scoped to the phase already.
type Status[T any] struct {
	name     string
	target   target.Target[T]
	progress *Progress
	log      *logging.Logger
	clock    clock.WithTicker
}

func New[T any](name string, t target.Target[T], log *logging.Logger) *Status[T] {
	return NewWithClock(name, t, log, clock.RealClock{})
}

func NewWithClock[T any](name string, t target.Target[T], log *logging.Logger, clock clock.WithTicker) *Status[T] {
	return &Status[T]{
		name:     name,
		target:   t,
		progress: NewProgress(name),
		log:      log,
		clock:    clock,
	}
}

func (s *Status[T]) Name() string {
	return s.name
}

func (s *Status[T]) Progress() *Progress {
	return s.progress
}

// MakeProgress claims the next item from the target and counts it.
func (s *Status[T]) MakeProgress() (T, bool, error) {
	item, ok, err := s.target.MakeProgress()
	if err == nil && ok {
		s.progress.addItem()
	}
	return item, ok, err
}

func (s *Status[T]) IsReached() bool {
	return s.target.IsReached()
}

// RecordFailure counts a failed dispatch.
func (s *Status[T]) RecordFailure() {
	s.progress.addFailure()
}

// WaitTheEnd blocks until the target is reached, adding the time spent waiting to the phase's elapsed time.
func (s *Status[T]) WaitTheEnd(ctx context.Context) error {
	if err := s.poll(ctx, func() { s.progress.addElapsed(PollInterval) }); err != nil {
		return err
	}
	s.log.
		WithField("items", s.progress.Completed()).
		WithField("elapsed", s.progress.Elapsed().String()).
		Debug("target reached")
	return nil
}

// AwaitReached blocks until the target is reached without touching the elapsed time.
func (s *Status[T]) AwaitReached(ctx context.Context) error {
	return s.poll(ctx, func() {})
}

func (s *Status[T]) poll(ctx context.Context, onTick func()) error {
	if s.target.IsReached() {
		return nil
	}
	ticker := s.clock.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "stopped waiting for phase %s", s.name)
		case <-ticker.C():
			onTick()
		}
		if s.target.IsReached() {
			return nil
		}
	}
}
