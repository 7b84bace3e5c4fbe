package benchcontext

import (
	"context"

	"github.com/armadaproject/ttbench/internal/common/logging"
)

// Context carries the logger of the phase or job it belongs to alongside the go context.
type Context struct {
	context.Context
	Log *logging.Logger
}

func New(ctx context.Context, log *logging.Logger) *Context {
	return &Context{
		Context: ctx,
		Log:     log,
	}
}

// WithCancel is analogous to context.WithCancel; the logger is shared with parent.
func WithCancel(parent *Context) (*Context, context.CancelFunc) {
	c, cancel := context.WithCancel(parent.Context)
	return &Context{
		Context: c,
		Log:     parent.Log,
	}, cancel
}

// WithoutCancel returns a copy of parent that is not cancelled when parent is.
// Used to release remote resources, such as an open transaction, after the run was interrupted.
func WithoutCancel(parent *Context) *Context {
	return &Context{
		Context: context.WithoutCancel(parent.Context),
		Log:     parent.Log,
	}
}

// WithPhase scopes the logger to a benchmark phase.
func WithPhase(parent *Context, phase string) *Context {
	return &Context{
		Context: parent.Context,
		Log:     parent.Log.WithField("phase", phase),
	}
}

// WithJob scopes the logger to a single job of a phase.
func WithJob(parent *Context, id uint64) *Context {
	return &Context{
		Context: parent.Context,
		Log:     parent.Log.WithField("job", id),
	}
}
