package target

import (
	"sync/atomic"

	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
)

// Target is the shared source of work items for every job of a phase.
type Target[T any] interface {
	// MakeProgress claims the next item. The boolean is false once the target has no more items to give out.
	MakeProgress() (T, bool, error)
	// IsReached reports whether the target is exhausted. Once true it stays true.
	IsReached() bool
}

// quota is a lock free countdown. claim succeeds at most initial times in total, however many goroutines call it.
type quota struct {
	initial   uint64
	remaining atomic.Uint64
}

func newQuota(n uint64) *quota {
	q := &quota{initial: n}
	q.remaining.Store(n)
	return q
}

// claim decrements the remaining count and returns the zero based index of the claimed slot.
func (q *quota) claim() (uint64, bool) {
	for {
		remaining := q.remaining.Load()
		if remaining == 0 {
			return 0, false
		}
		if q.remaining.CompareAndSwap(remaining, remaining-1) {
			return q.initial - remaining, true
		}
	}
}

func (q *quota) reached() bool {
	return q.remaining.Load() == 0
}

// Counter hands out the identifiers 0, 1, ..., quota-1.
type Counter struct {
	name  string
	quota *quota
}

func NewCounter(name string, quota uint64) *Counter {
	return &Counter{name: name, quota: newQuota(quota)}
}

// SingleRun returns a counter with a single item, for phases that run one operation.
func SingleRun(name string) *Counter {
	return NewCounter(name, 1)
}

func (c *Counter) MakeProgress() (uint64, bool, error) {
	id, ok := c.quota.claim()
	if !ok {
		return 0, false, nil
	}
	if id >= c.quota.initial {
		return 0, false, &ttbencherrors.ErrConvergence{Target: c.name, Message: "claimed an item past the quota"}
	}
	return id, true, nil
}

func (c *Counter) IsReached() bool {
	return c.quota.reached()
}

// Quota returns the number of items the counter was created with.
func (c *Counter) Quota() uint64 {
	return c.quota.initial
}

// Generator hands out quota items produced by generate.
type Generator[T any] struct {
	name     string
	quota    *quota
	generate func() T
}

func NewGenerator[T any](name string, quota uint64, generate func() T) *Generator[T] {
	return &Generator[T]{name: name, quota: newQuota(quota), generate: generate}
}

func (g *Generator[T]) MakeProgress() (T, bool, error) {
	var zero T
	id, ok := g.quota.claim()
	if !ok {
		return zero, false, nil
	}
	if id >= g.quota.initial {
		return zero, false, &ttbencherrors.ErrConvergence{Target: g.name, Message: "claimed an item past the quota"}
	}
	return g.generate(), true, nil
}

func (g *Generator[T]) IsReached() bool {
	return g.quota.reached()
}

func (g *Generator[T]) Quota() uint64 {
	return g.quota.initial
}
