package job

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/armadaproject/ttbench/internal/common/benchcontext"
	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
	"github.com/armadaproject/ttbench/internal/ttbench/status"
)

// Operation dispatches a single work item.
type Operation[T any] func(ctx *benchcontext.Context, env *Environment, item T) error

// Job is a single worker of a phase. It repeatedly dispatches the item it holds and claims the next one
// until the phase target is reached.
type Job[T any] struct {
	id      uint64
	item    T
	retries uint64
	status  *status.Status[T]
	op      Operation[T]
	env     *Environment
}

// New creates a job holding the next item of the phase.
// It returns ErrTargetReached if the target has no items left.
func New[T any](id uint64, s *status.Status[T], op Operation[T], env *Environment) (*Job[T], error) {
	item, ok, err := s.MakeProgress()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.WithStack(ttbencherrors.ErrTargetReached)
	}
	return &Job[T]{
		id:     id,
		item:   item,
		status: s,
		op:     op,
		env:    env,
	}, nil
}

func (j *Job[T]) Id() uint64 {
	return j.id
}

// Retries returns the number of failed dispatches this job has tolerated.
func (j *Job[T]) Retries() uint64 {
	return j.retries
}

// Run dispatches items until the target is reached.
//
// Failures while the target is not yet reached are logged and tolerated, and each one is added to the job's
// retry count. A failure of the dispatch that finishes the job is tolerated, and counted, unless the retry count
// already exceeds MaxRetries, in which case it is returned as an *ttbencherrors.ErrDispatch. Mid-phase failures
// therefore use up the tolerance left for the final dispatch.
func (j *Job[T]) Run(ctx *benchcontext.Context) error {
	log := ctx.Log
	for {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		err := j.dispatch(ctx)
		if err != nil {
			j.status.RecordFailure()
		}

		if !j.status.IsReached() {
			if err != nil {
				log.WithError(err).Warn("dispatch failed")
				j.retries++
			}
			item, ok, claimErr := j.status.MakeProgress()
			if claimErr != nil {
				return claimErr
			}
			if !ok {
				return j.status.AwaitReached(ctx)
			}
			j.item = item
			continue
		}

		if err == nil {
			return nil
		}
		if j.retries > j.env.Config.MaxRetries {
			return &ttbencherrors.ErrDispatch{Phase: j.status.Name(), JobId: j.id, Err: err}
		}
		j.retries++
		log.WithError(err).Warnf("final dispatch failed; tolerated as retry %d of %d", j.retries, j.env.Config.MaxRetries)
		return nil
	}
}

func (j *Job[T]) dispatch(ctx *benchcontext.Context) error {
	if j.env.Limiter != nil {
		if err := j.env.Limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter")
		}
	}
	start := time.Now()
	err := j.op(ctx, j.env, j.item)
	j.env.Metrics.Observe(j.status.Name(), time.Since(start), err)
	return err
}

// Spawn starts up to workers jobs against s and waits for all of them to finish.
// Fewer jobs are started if the target runs out of items first. A failing job does not stop the others; once all
// have finished, the failures are returned as a *multierror.Error.
func Spawn[T any](ctx *benchcontext.Context, s *status.Status[T], op Operation[T], env *Environment, workers uint64) error {
	var g errgroup.Group

	var mu sync.Mutex
	var result *multierror.Error
	record := func(err error) error {
		if err != nil && !errors.Is(err, context.Canceled) {
			mu.Lock()
			result = multierror.Append(result, err)
			mu.Unlock()
		}
		return err
	}

	started := uint64(0)
	for i := uint64(0); i < workers; i++ {
		j, err := New(i, s, op, env)
		if errors.Is(err, ttbencherrors.ErrTargetReached) {
			break
		}
		if err != nil {
			g.Go(func() error { return record(err) })
			break
		}
		started++
		g.Go(func() error { return record(j.Run(benchcontext.WithJob(ctx, j.Id()))) })
	}
	ctx.Log.Debugf("started %d of %d jobs", started, workers)

	if err := g.Wait(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		if aggregated := result.ErrorOrNil(); aggregated != nil {
			return aggregated
		}
		return err
	}
	return nil
}
