package configuration

import (
	"time"

	"github.com/armadaproject/ttbench/internal/common/logging"
)

const (
	BackendTarantool = "tarantool"
	BackendMemory    = "memory"
)

// Config is the full ttbench configuration.
type Config struct {
	// Which store implementation to talk to: tarantool or memory
	Backend string `validate:"oneof=tarantool memory"`
	// Router instances to connect to
	Instances []InstanceConfig `validate:"dive"`
	// Initialisation steps, e.g. "dtpfvg"
	InitSteps InitSteps
	// Whether the transaction phase is bounded by a transaction count or by wall clock time
	Mode Mode `validate:"oneof=iterations time"`
	// Number of concurrent jobs
	Jobs uint64 `validate:"min=1"`
	// Transactions executed by each job in iterations mode
	Transactions uint64
	// Length of the transaction phase in time mode
	Duration time.Duration
	// Scale factor; multiplies the number of branches, tellers and accounts
	Scale uint64
	// Number of tail failures a job tolerates before it reports the failure
	MaxRetries uint64
	// Number of vshard buckets
	BucketCount uint64 `validate:"min=1"`
	// If true, the history space survives the drop step
	KeepHistory bool
	// Maximum transactions per second across all jobs. Zero means unlimited
	Rate float64 `validate:"min=0"`
	// Upper bound (exclusive) of the transfer amount
	MaxDelta uint64 `validate:"min=1"`
	Routing  RoutingConfig
	// Number of attempts made to establish each connection
	DialAttempts uint `validate:"min=1"`
	// Delay between dial attempts
	DialBackoff time.Duration
	// How often progress is logged while a phase is running
	ProgressInterval time.Duration `validate:"required"`
	// If non-zero, Prometheus metrics are served on this port
	MetricsPort uint16
	Logging     logging.Config
}

// InstanceConfig describes a single router endpoint.
type InstanceConfig struct {
	Address string `validate:"required"`
	// Per-request timeout. Zero means no timeout
	Timeout  time.Duration
	User     string `validate:"required"`
	Password *string
	// Number of connections opened to this instance
	Connections int `validate:"min=1"`
}

type RoutingConfig struct {
	// crc32 or crc32c
	Hash string `validate:"omitempty,oneof=crc32 crc32c"`
	// Size of the key to bucket cache. Zero disables caching
	CacheSize int `validate:"min=0"`
}

// Branches returns the number of branches implied by the scale factor.
func (c Config) Branches() uint64 {
	return 1 * c.Scale
}

// Tellers returns the number of tellers implied by the scale factor.
func (c Config) Tellers() uint64 {
	return 10 * c.Scale
}

// Accounts returns the number of accounts implied by the scale factor.
func (c Config) Accounts() uint64 {
	return 100_000 * c.Scale
}

// TotalTransactions returns the transaction quota summed over all jobs.
func (c Config) TotalTransactions() uint64 {
	return c.Transactions * c.Jobs
}

// SeedJobs returns the number of jobs to use when seeding count records.
func (c Config) SeedJobs(count uint64) uint64 {
	if c.Jobs > count {
		return count
	}
	return c.Jobs
}
