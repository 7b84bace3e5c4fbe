package target

import (
	"math/rand"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/armadaproject/ttbench/internal/common/util"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
)

// Transaction is a single TPC-B transfer. BucketID is assigned when the history record is written.
type Transaction struct {
	UUID      string
	TellerID  uint64
	BranchID  uint64
	AccountID uint64
	Delta     uint64
	// Seconds since the epoch
	Time     uint64
	BucketID uint64
}

// TransactionGenerator samples transactions uniformly over the seeded accounts, tellers and branches.
// It is safe for concurrent use.
type TransactionGenerator struct {
	accounts uint64
	tellers  uint64
	branches uint64
	maxDelta uint64
	rand     *rand.Rand
	clock    clock.PassiveClock
}

func NewTransactionGenerator(config configuration.Config, seed int64, clock clock.PassiveClock) *TransactionGenerator {
	return &TransactionGenerator{
		accounts: config.Accounts(),
		tellers:  config.Tellers(),
		branches: config.Branches(),
		maxDelta: config.MaxDelta,
		rand:     util.NewThreadsafeRand(seed),
		clock:    clock,
	}
}

func (g *TransactionGenerator) Generate() Transaction {
	return Transaction{
		UUID:      uuid.NewString(),
		AccountID: util.UniformUint64(g.rand, g.accounts),
		TellerID:  util.UniformUint64(g.rand, g.tellers),
		BranchID:  util.UniformUint64(g.rand, g.branches),
		Delta:     util.UniformUint64(g.rand, g.maxDelta),
		Time:      uint64(g.clock.Now().Unix()),
	}
}
