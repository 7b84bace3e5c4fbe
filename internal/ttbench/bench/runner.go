package bench

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/ttbench/internal/common/benchcontext"
	"github.com/armadaproject/ttbench/internal/common/metrics"
	"github.com/armadaproject/ttbench/internal/common/serve"
	"github.com/armadaproject/ttbench/internal/common/task"
	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
	"github.com/armadaproject/ttbench/internal/common/util"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/connection"
	"github.com/armadaproject/ttbench/internal/ttbench/job"
	"github.com/armadaproject/ttbench/internal/ttbench/routing"
	"github.com/armadaproject/ttbench/internal/ttbench/status"
	"github.com/armadaproject/ttbench/internal/ttbench/store"
	"github.com/armadaproject/ttbench/internal/ttbench/target"
	"github.com/armadaproject/ttbench/internal/ttbench/workload"
)

const (
	PhaseCreate       = "create"
	PhaseVacuum       = "vacuum"
	PhaseAccounts     = "accounts"
	PhaseTellers      = "tellers"
	PhaseBranches     = "branches"
	PhaseTransactions = "tpcb"
	PhaseDrop         = "drop"
)

// Runner runs a whole benchmark: schema creation, data generation, the transaction run and cleanup.
type Runner struct {
	config   configuration.Config
	dial     store.Dialer
	registry *prometheus.Registry
	clock    clock.WithTicker
	seed     int64

	current   atomic.Pointer[status.Progress]
	mu        sync.Mutex
	summaries []status.Summary
}

// NewRunner creates a Runner. Metrics of the run are registered with registry, which is also what the metrics
// endpoint serves.
func NewRunner(config configuration.Config, dial store.Dialer, registry *prometheus.Registry) *Runner {
	return &Runner{
		config:   config,
		dial:     dial,
		registry: registry,
		clock:    clock.RealClock{},
		seed:     time.Now().UnixNano(),
	}
}

// WithClock replaces the clock used to measure phases and to bound time mode runs.
func (r *Runner) WithClock(c clock.WithTicker) *Runner {
	r.clock = c
	return r
}

// WithSeed fixes the seed of the transaction generator.
func (r *Runner) WithSeed(seed int64) *Runner {
	r.seed = seed
	return r
}

// Summaries returns the summary of every phase run so far, in order.
func (r *Runner) Summaries() []status.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]status.Summary{}, r.summaries...)
}

// Run executes the benchmark. It returns the summary of the transaction phase.
//
// It performs the following steps:
//  1. Opens the connection pool
//  2. Creates the spaces (t), reporting v as not applicable
//  3. Seeds accounts, tellers and branches (g)
//  4. Runs the transactions, bounded by count or by time
//  5. Drops the spaces (d)
//
// Progress is logged every ProgressInterval, and metrics are served on MetricsPort if it is set.
func (r *Runner) Run(ctx *benchcontext.Context) (status.Summary, error) {
	steps := r.config.InitSteps
	ctx.Log.
		WithField("backend", r.config.Backend).
		WithField("mode", r.config.Mode).
		WithField("jobs", r.config.Jobs).
		WithField("scale", r.config.Scale).
		WithField("initSteps", steps.String()).
		Info("Starting ttbench")

	env, cleanup, err := r.setup(ctx)
	if err != nil {
		return status.Summary{}, err
	}
	defer cleanup()

	if steps.Contains(configuration.StepCreate) {
		if err := runPhase(ctx, r, PhaseCreate, target.SingleRun(PhaseCreate), workload.Create, env, 1); err != nil {
			return status.Summary{}, err
		}
	}
	if steps.Contains(configuration.StepVacuum) {
		if err := runPhase(ctx, r, PhaseVacuum, target.SingleRun(PhaseVacuum), workload.Vacuum, env, 1); err != nil {
			return status.Summary{}, err
		}
	}
	if steps.Contains(configuration.StepGenerateData) {
		seeds := []struct {
			phase string
			count uint64
			op    job.Operation[uint64]
		}{
			{PhaseAccounts, r.config.Accounts(), workload.Accounts},
			{PhaseTellers, r.config.Tellers(), workload.Tellers},
			{PhaseBranches, r.config.Branches(), workload.Branches},
		}
		for _, seed := range seeds {
			counter := target.NewCounter(seed.phase, seed.count)
			if err := runPhase(ctx, r, seed.phase, counter, seed.op, env, r.config.SeedJobs(seed.count)); err != nil {
				return status.Summary{}, err
			}
		}
	}

	generator := target.NewTransactionGenerator(r.config, r.seed, r.clock)
	var transactions target.Target[target.Transaction]
	switch r.config.Mode {
	case configuration.ModeTime:
		transactions = target.NewDeadline(r.config.Duration, generator.Generate, r.clock)
	default:
		transactions = target.NewGenerator(PhaseTransactions, r.config.TotalTransactions(), generator.Generate)
	}
	if err := runPhase(ctx, r, PhaseTransactions, transactions, workload.TPCB, env, r.config.Jobs); err != nil {
		return status.Summary{}, err
	}
	summary := r.lastSummary()

	if steps.Contains(configuration.StepDrop) {
		if err := runPhase(ctx, r, PhaseDrop, target.SingleRun(PhaseDrop), workload.Drop, env, 1); err != nil {
			return summary, err
		}
	}

	ctx.Log.WithFields(summary.Fields()).Info("Benchmark complete")
	return summary, nil
}

// setup opens the pool and starts the progress logger and metrics endpoint. The returned function releases
// everything setup started.
func (r *Runner) setup(ctx *benchcontext.Context) (*job.Environment, func(), error) {
	hash, err := routing.ParseHash(r.config.Routing.Hash)
	if err != nil {
		return nil, nil, err
	}
	router, err := routing.NewRouter(r.config.BucketCount, hash, r.config.Routing.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	dispatchMetrics, err := metrics.NewDispatchMetrics(r.registry)
	if err != nil {
		return nil, nil, err
	}

	pool, err := connection.New(ctx, r.instances(), r.dial, connection.DialOptions{
		Attempts: r.config.DialAttempts,
		Backoff:  r.config.DialBackoff,
	})
	if err != nil {
		return nil, nil, err
	}

	tasks := task.NewBackgroundTaskManager(metrics.MetricPrefix, r.registry)
	if err := tasks.Register(func() { r.logProgress(ctx) }, r.config.ProgressInterval, "progress_logger"); err != nil {
		util.CloseResource("connection pool", pool)
		return nil, nil, err
	}

	serveCtx, stopServing := benchcontext.WithCancel(ctx)
	var serving sync.WaitGroup
	if r.config.MetricsPort != 0 {
		server := serve.NewMetricsServer(r.config.MetricsPort, r.registry)
		serving.Add(1)
		go func() {
			defer serving.Done()
			if err := serve.ListenAndServe(serveCtx, server); err != nil {
				ctx.Log.WithStacktrace(err).Error("metrics server failure")
			}
		}()
	}

	env := &job.Environment{
		Config:  r.config,
		Pool:    pool,
		Router:  router,
		Metrics: dispatchMetrics,
		Limiter: job.NewLimiter(r.config.Rate),
	}
	cleanup := func() {
		if tasks.StopAll(time.Second) {
			ctx.Log.Warn("timed out waiting for background tasks to stop")
		}
		stopServing()
		serving.Wait()
		util.CloseResource("connection pool", pool)
	}
	return env, cleanup, nil
}

// instances returns the configured instances. The memory backend needs no addresses, so a single local
// instance with one connection per job stands in when none are configured.
func (r *Runner) instances() []configuration.InstanceConfig {
	if len(r.config.Instances) > 0 || r.config.Backend != configuration.BackendMemory {
		return r.config.Instances
	}
	return []configuration.InstanceConfig{{Address: "memory", User: "guest", Connections: int(r.config.Jobs)}}
}

// runPhase spawns the jobs of a phase and waits for the phase to converge.
func runPhase[T any](ctx *benchcontext.Context, r *Runner, name string, t target.Target[T], op job.Operation[T], env *job.Environment, workers uint64) error {
	ctx = benchcontext.WithPhase(ctx, name)
	s := status.NewWithClock(name, t, ctx.Log, r.clock)
	r.current.Store(s.Progress())
	defer r.current.Store(nil)
	if err := r.registry.Register(s.Progress()); err != nil {
		return errors.Wrapf(err, "failed to register metrics of phase %s", name)
	}
	defer r.registry.Unregister(s.Progress())

	ctx.Log.WithField("jobs", workers).Info("Phase started")
	waitCtx, stopWaiting := benchcontext.WithCancel(ctx)
	waited := make(chan struct{})
	go func() {
		defer close(waited)
		// Only measures the phase; Spawn decides when it is over.
		_ = s.WaitTheEnd(waitCtx)
	}()
	err := job.Spawn(ctx, s, op, env, workers)
	stopWaiting()
	<-waited
	if err == nil && !s.IsReached() {
		err = &ttbencherrors.ErrConvergence{Target: name, Message: "all jobs finished before the target was reached"}
	}

	summary := s.Progress().Summary()
	r.mu.Lock()
	r.summaries = append(r.summaries, summary)
	r.mu.Unlock()
	if err != nil {
		return errors.WithMessagef(err, "phase %s failed", name)
	}
	ctx.Log.WithFields(summary.Fields()).Info("Phase complete")
	return nil
}

func (r *Runner) lastSummary() status.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.summaries) == 0 {
		return status.Summary{}
	}
	return r.summaries[len(r.summaries)-1]
}

func (r *Runner) logProgress(ctx *benchcontext.Context) {
	progress := r.current.Load()
	if progress == nil {
		return
	}
	ctx.Log.
		WithField("phase", progress.Phase()).
		WithField("items", progress.Completed()).
		WithField("failures", progress.Failures()).
		WithField("elapsed", progress.Elapsed().String()).
		Info("Progress")
}
