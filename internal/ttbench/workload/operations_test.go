package workload

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/armadaproject/ttbench/internal/common/benchcontext"
	"github.com/armadaproject/ttbench/internal/common/logging"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/connection"
	"github.com/armadaproject/ttbench/internal/ttbench/job"
	"github.com/armadaproject/ttbench/internal/ttbench/routing"
	"github.com/armadaproject/ttbench/internal/ttbench/store/memory"
	"github.com/armadaproject/ttbench/internal/ttbench/target"
)

func TestCreate(t *testing.T) {
	s, env := newTestEnvironment(t, "tpf", false)
	require.NoError(t, Create(testContext(), env, 0))

	spaces, err := s.Spaces()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{AccountsSpace.Name, TellersSpace.Name, BranchesSpace.Name, HistorySpace.Name}, spaces)

	// Creating twice is harmless
	require.NoError(t, Create(testContext(), env, 0))
}

func TestCreate_WithoutPrimaryIndex(t *testing.T) {
	_, env := newTestEnvironment(t, "t", false)
	require.NoError(t, Create(testContext(), env, 0))

	err := Accounts(testContext(), env, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No index #0")
}

func TestSeed(t *testing.T) {
	s, env := newTestEnvironment(t, "tp", false)
	require.NoError(t, Create(testContext(), env, 0))

	for id := uint64(0); id < 10; id++ {
		require.NoError(t, Accounts(testContext(), env, id))
		require.NoError(t, Tellers(testContext(), env, id))
	}
	require.NoError(t, Branches(testContext(), env, 0))

	accounts, err := s.Tuples(AccountsSpace.Name)
	require.NoError(t, err)
	assert.Len(t, accounts, 10)

	account, err := s.Get(AccountsSpace.Name, uint64(1))
	require.NoError(t, err)
	assert.Equal(t, []any{uint64(1), uint64(0), uint64(713)}, account)

	branches, err := s.Tuples(BranchesSpace.Name)
	require.NoError(t, err)
	assert.Len(t, branches, 1)
}

func TestSeed_IsIdempotent(t *testing.T) {
	s, env := newTestEnvironment(t, "tp", false)
	require.NoError(t, Create(testContext(), env, 0))
	require.NoError(t, Tellers(testContext(), env, 3))
	require.NoError(t, Tellers(testContext(), env, 3))

	tellers, err := s.Tuples(TellersSpace.Name)
	require.NoError(t, err)
	assert.Len(t, tellers, 1)
}

func TestTPCB(t *testing.T) {
	s, env := newTestEnvironment(t, "tp", false)
	seedAll(t, env)

	tx := target.Transaction{
		UUID:      "7b3c6fd8-1f5c-4b7e-9d53-0c0f0a3e2b11",
		AccountID: 1,
		TellerID:  2,
		BranchID:  0,
		Delta:     42,
		Time:      1704067200,
	}
	require.NoError(t, TPCB(testContext(), env, tx))
	require.NoError(t, TPCB(testContext(), env, target.Transaction{UUID: "second", AccountID: 1, TellerID: 3, Delta: 8, Time: 1704067201}))

	account, err := s.Get(AccountsSpace.Name, uint64(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(50), account[1])
	teller, err := s.Get(TellersSpace.Name, uint64(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), teller[1])
	branch, err := s.Get(BranchesSpace.Name, uint64(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(50), branch[1])

	history, err := s.Get(HistorySpace.Name, tx.UUID)
	require.NoError(t, err)
	bucket := env.Router.Bucket(tx.UUID)
	assert.Equal(t, []any{tx.UUID, uint64(2), uint64(0), uint64(1), uint64(42), uint64(1704067200), bucket}, history)
}

func TestTPCB_RollsBackOnFailure(t *testing.T) {
	s, env := newTestEnvironment(t, "tp", false)
	seedAll(t, env)

	// Teller 99 was never seeded
	err := TPCB(testContext(), env, target.Transaction{UUID: "broken", AccountID: 1, TellerID: 99, Delta: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttbench_tellers 99 not found")

	account, err := s.Get(AccountsSpace.Name, uint64(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), account[1])
	history, err := s.Tuples(HistorySpace.Name)
	require.NoError(t, err)
	assert.Empty(t, history)

	// The store must still accept transactions afterwards
	require.NoError(t, TPCB(testContext(), env, target.Transaction{UUID: "ok", AccountID: 1, TellerID: 1, Delta: 1}))
}

func TestTPCB_DuplicateHistoryFails(t *testing.T) {
	_, env := newTestEnvironment(t, "tp", false)
	seedAll(t, env)

	tx := target.Transaction{UUID: "same", AccountID: 1, TellerID: 1, Delta: 1}
	require.NoError(t, TPCB(testContext(), env, tx))
	assert.Error(t, TPCB(testContext(), env, tx))
}

func TestDrop(t *testing.T) {
	tests := map[string]struct {
		keepHistory    bool
		expectedSpaces []string
	}{
		"drop everything": {
			keepHistory:    false,
			expectedSpaces: []string{},
		},
		"keep history": {
			keepHistory:    true,
			expectedSpaces: []string{HistorySpace.Name},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, env := newTestEnvironment(t, "tp", tc.keepHistory)
			require.NoError(t, Create(testContext(), env, 0))
			require.NoError(t, Drop(testContext(), env, 0))

			spaces, err := s.Spaces()
			require.NoError(t, err)
			assert.Equal(t, tc.expectedSpaces, spaces)

			// Dropping spaces that don't exist is not an error
			require.NoError(t, Drop(testContext(), env, 0))
		})
	}
}

func TestVacuum(t *testing.T) {
	_, env := newTestEnvironment(t, "v", false)
	assert.NoError(t, Vacuum(testContext(), env, 0))
}

func TestCreateScript(t *testing.T) {
	script, err := createScript(HistorySpace, true, false)
	require.NoError(t, err)
	assert.Contains(t, script, `box.schema.create_space("ttbench_history"`)
	assert.Contains(t, script, `{ name = "uuid", type = "string" },`)
	assert.Contains(t, script, `create_index("primary"`)
	assert.Contains(t, script, `parts = { "uuid" }`)
	assert.NotContains(t, script, `create_index("delta"`)
	assert.Contains(t, script, "vshard.router.routeall()")

	script, err = createScript(HistorySpace, false, true)
	require.NoError(t, err)
	assert.NotContains(t, script, `create_index("primary"`)
	for _, index := range HistorySpace.Secondary {
		assert.Contains(t, script, `box.space.ttbench_history:create_index("`+index+`"`)
	}
}

func TestDropScript(t *testing.T) {
	script, err := dropScript(TellersSpace)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(script, "box.space.ttbench_tellers:drop()"))
}

func seedAll(t *testing.T, env *job.Environment) {
	t.Helper()
	require.NoError(t, Create(testContext(), env, 0))
	for id := uint64(0); id < 5; id++ {
		require.NoError(t, Accounts(testContext(), env, id))
		require.NoError(t, Tellers(testContext(), env, id))
	}
	require.NoError(t, Branches(testContext(), env, 0))
}

func newTestEnvironment(t *testing.T, steps string, keepHistory bool) (*memory.Store, *job.Environment) {
	t.Helper()
	s, err := memory.New()
	require.NoError(t, err)
	initSteps, err := configuration.ParseInitSteps(steps)
	require.NoError(t, err)
	config := configuration.Config{
		InitSteps:   initSteps,
		Scale:       1,
		BucketCount: 3000,
		KeepHistory: keepHistory,
		MaxDelta:    1000,
	}
	pool, err := connection.New(context.Background(), []configuration.InstanceConfig{
		{Address: "memory", User: "admin", Connections: 2},
	}, s.Dial, connection.DialOptions{Attempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	router, err := routing.NewRouter(config.BucketCount, routing.HashCrc32, 16)
	require.NoError(t, err)
	return s, &job.Environment{Config: config, Pool: pool, Router: router}
}

func testContext() *benchcontext.Context {
	return benchcontext.New(context.Background(), logging.FromZap(zap.NewNop()))
}
