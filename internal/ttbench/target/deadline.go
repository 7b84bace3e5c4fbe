package target

import (
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

// Deadline hands out generated items until a fixed amount of time has passed since it was created.
type Deadline[T any] struct {
	end      time.Time
	clock    clock.PassiveClock
	reached  atomic.Bool
	generate func() T
}

func NewDeadline[T any](duration time.Duration, generate func() T, clock clock.PassiveClock) *Deadline[T] {
	return &Deadline[T]{
		end:      clock.Now().Add(duration),
		clock:    clock,
		generate: generate,
	}
}

func (d *Deadline[T]) MakeProgress() (T, bool, error) {
	if d.IsReached() {
		var zero T
		return zero, false, nil
	}
	return d.generate(), true, nil
}

func (d *Deadline[T]) IsReached() bool {
	if d.reached.Load() {
		return true
	}
	if d.clock.Now().Before(d.end) {
		return false
	}
	d.reached.Store(true)
	return true
}

// Remaining returns the time left before the deadline, or zero once it has passed.
func (d *Deadline[T]) Remaining() time.Duration {
	if d.IsReached() {
		return 0
	}
	return d.end.Sub(d.clock.Now())
}
