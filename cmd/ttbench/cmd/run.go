package cmd

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/armadaproject/ttbench/internal/common/benchcontext"
	"github.com/armadaproject/ttbench/internal/common/logging"
	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
	"github.com/armadaproject/ttbench/internal/ttbench/bench"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/store"
	"github.com/armadaproject/ttbench/internal/ttbench/store/memory"
	"github.com/armadaproject/ttbench/internal/ttbench/store/tarantool"
)

func runCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Initialises the spaces and runs the benchmark",
	}

	cmd.Flags().StringP("backend", "b", configuration.BackendTarantool, "Store to benchmark: tarantool or memory")
	cmd.Flags().Uint64P("jobs", "j", 1, "Number of concurrent jobs")
	cmd.Flags().Uint64P("transactions", "t", 10, "Number of transactions each job runs")
	cmd.Flags().DurationP("time", "T", 0, "Run for this long instead of a fixed number of transactions")
	cmd.Flags().Uint64P("scale", "s", 1, "Scale factor")
	cmd.Flags().StringP("init-steps", "I", configuration.DefaultInitSteps, "Initialisation steps to run, any of dtpfvg")
	cmd.Flags().Bool("keep-history", false, "Keep the history space when dropping")
	cmd.Flags().Float64P("rate", "R", 0, "Limit on transactions per second across all jobs, 0 for no limit")
	cmd.Flags().Uint16("metrics-port", 0, "Serve Prometheus metrics on this port")
	bindFlags(v, cmd.Flags(), map[string]string{
		"backend":      "backend",
		"jobs":         "jobs",
		"transactions": "transactions",
		"time":         "duration",
		"scale":        "scale",
		"init-steps":   "initSteps",
		"keep-history": "keepHistory",
		"rate":         "rate",
		"metrics-port": "metricsPort",
	})

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("time") {
			v.Set("mode", string(configuration.ModeTime))
		}
		config, err := loadConfig(cmd, v)
		if err != nil {
			return err
		}
		return runBenchmark(cmd.Context(), cmd.OutOrStdout(), config)
	}
	return cmd
}

func runBenchmark(ctx context.Context, out io.Writer, config configuration.Config) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hook := logging.NewPrometheusHook(registry)
	if err := logging.ConfigureApplicationLogging(config.Logging, hook.Option()); err != nil {
		return &ttbencherrors.ErrConfiguration{Name: "logging", Value: config.Logging, Message: err.Error()}
	}

	dial, err := dialer(config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := bench.NewRunner(config, dial, registry)
	_, err = runner.Run(benchcontext.New(ctx, logging.StdLogger()))
	if reportErr := bench.WriteReport(out, runner.Summaries()); reportErr != nil {
		logging.WithError(reportErr).Warn("failed to write report")
	}
	return err
}

func dialer(config configuration.Config) (store.Dialer, error) {
	switch config.Backend {
	case configuration.BackendMemory:
		s, err := memory.New()
		if err != nil {
			return nil, err
		}
		return s.Dial, nil
	case configuration.BackendTarantool:
		return tarantool.Dial, nil
	default:
		return nil, &ttbencherrors.ErrConfiguration{Name: "backend", Value: config.Backend, Message: "unknown backend"}
	}
}
