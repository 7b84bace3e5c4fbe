package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/store"
)

const createAccounts = `
box.schema.create_space("ttbench_accounts", {
    if_not_exists = true,
    format = {
        { name = "aid", type = "unsigned" },
        { name = "abalance", type = "unsigned" },
        { name = "bucket_id", type = "unsigned" },
    }
})
box.space.ttbench_accounts:create_index("primary", { type = "hash", parts = { "aid" } })
`

func TestCreateAndDrop(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	resp, err := conn.Eval(ctx, createAccounts)
	require.NoError(t, err)
	assert.Equal(t, []any{true}, resp)

	spaces, err := s.Spaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"ttbench_accounts"}, spaces)

	_, err = conn.Call(ctx, store.CallRW, uint64(1), "box.space.ttbench_accounts:replace", []any{[]any{uint64(1), uint64(0), uint64(1)}})
	require.NoError(t, err)

	_, err = conn.Eval(ctx, `if box.space.ttbench_accounts then box.space.ttbench_accounts:drop() end`)
	require.NoError(t, err)
	spaces, err = s.Spaces()
	require.NoError(t, err)
	assert.Empty(t, spaces)

	// Tuples go with the space
	_, err = conn.Eval(ctx, createAccounts)
	require.NoError(t, err)
	tuples, err := s.Tuples("ttbench_accounts")
	require.NoError(t, err)
	assert.Empty(t, tuples)
}

func TestCreate_IfNotExistsKeepsFormat(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	_, err := conn.Eval(ctx, createAccounts)
	require.NoError(t, err)
	_, err = conn.Eval(ctx, `box.schema.create_space("ttbench_accounts", { if_not_exists = true })`)
	require.NoError(t, err)

	_, err = conn.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:replace", []any{[]any{1, 10, 1}})
	require.NoError(t, err)
	_, err = conn.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:update", []any{1, []any{[]any{"+", "abalance", 5}}})
	require.NoError(t, err)

	tuple, err := s.Get("ttbench_accounts", 1)
	require.NoError(t, err)
	assert.Equal(t, []any{1, uint64(15), 1}, tuple)
}

func TestCall_ReplaceGetUpdate(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	_, err := conn.Eval(ctx, createAccounts)
	require.NoError(t, err)

	resp, err := conn.Call(ctx, store.CallRW, uint64(713), "box.space.ttbench_accounts:replace", []any{[]any{uint64(1), uint64(0), uint64(713)}})
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{uint64(1), uint64(0), uint64(713)}}, resp)

	resp, err = conn.Call(ctx, store.CallRW, uint64(713), "box.space.ttbench_accounts:update", []any{uint64(1), []any{[]any{"+", "abalance", uint64(42)}}})
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{uint64(1), uint64(42), uint64(713)}}, resp)

	resp, err = conn.Call(ctx, store.CallBRO, uint64(713), "box.space.ttbench_accounts:get", []any{uint64(1)})
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{uint64(1), uint64(42), uint64(713)}}, resp)

	// Update by field number
	_, err = conn.Call(ctx, store.CallRW, uint64(713), "box.space.ttbench_accounts:update", []any{uint64(1), []any{[]any{"-", 2, uint64(2)}}})
	require.NoError(t, err)
	tuple, err := s.Get("ttbench_accounts", uint64(1))
	require.NoError(t, err)
	assert.Equal(t, []any{uint64(1), uint64(40), uint64(713)}, tuple)

	// Missing keys return a nil tuple
	resp, err = conn.Call(ctx, store.CallRW, uint64(1), "box.space.ttbench_accounts:update", []any{uint64(99), []any{[]any{"+", "abalance", uint64(1)}}})
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, resp)
	resp, err = conn.Call(ctx, store.CallRO, uint64(1), "box.space.ttbench_accounts:get", []any{uint64(99)})
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, resp)
}

func TestCall_Errors(t *testing.T) {
	_, conn := newTestStore(t)
	ctx := context.Background()

	_, err := conn.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:get", []any{1})
	assert.EqualError(t, err, "Space 'ttbench_accounts' does not exist")

	_, err = conn.Eval(ctx, `box.schema.create_space("ttbench_tellers", { format = { { name = "tid" } } })`)
	require.NoError(t, err)
	_, err = conn.Call(ctx, store.CallRW, 1, "box.space.ttbench_tellers:get", []any{1})
	assert.EqualError(t, err, "No index #0 is defined in space 'ttbench_tellers'")

	_, err = conn.Eval(ctx, createAccounts)
	require.NoError(t, err)
	_, err = conn.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:insert", []any{[]any{1, 0, 1}})
	require.NoError(t, err)
	_, err = conn.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:insert", []any{[]any{1, 0, 1}})
	assert.Error(t, err)

	_, err = conn.Call(ctx, store.CallRO, 1, "box.space.ttbench_accounts:replace", []any{[]any{2, 0, 1}})
	assert.Error(t, err)

	_, err = conn.Call(ctx, "box.space.ttbench_accounts:get", 1)
	assert.EqualError(t, err, "Procedure 'box.space.ttbench_accounts:get' is not defined")

	_, err = conn.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:update", []any{1, []any{[]any{"+", "missing", 1}}})
	assert.Error(t, err)

	_, err = conn.Eval(ctx, `return box.info`)
	assert.Error(t, err)
}

func TestTransaction(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	_, err := conn.Eval(ctx, createAccounts)
	require.NoError(t, err)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:replace", []any{[]any{1, 0, 1}})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
	assert.Error(t, tx.Commit(ctx))

	tuple, err := s.Get("ttbench_accounts", 1)
	require.NoError(t, err)
	assert.Nil(t, tuple)

	tx, err = conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:replace", []any{[]any{1, 0, 1}})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	tuple, err = s.Get("ttbench_accounts", 1)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 0, 1}, tuple)
}

func TestConcurrentUpdates(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()
	_, err := conn.Eval(ctx, createAccounts)
	require.NoError(t, err)
	_, err = conn.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:replace", []any{[]any{uint64(1), uint64(0), uint64(1)}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tx, err := conn.Begin(ctx)
				if !assert.NoError(t, err) {
					return
				}
				_, err = tx.Call(ctx, store.CallRW, 1, "box.space.ttbench_accounts:update", []any{uint64(1), []any{[]any{"+", "abalance", uint64(1)}}})
				assert.NoError(t, err)
				assert.NoError(t, tx.Commit(ctx))
			}
		}()
	}
	wg.Wait()

	tuple, err := s.Get("ttbench_accounts", uint64(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), tuple[1])
}

func TestClose(t *testing.T) {
	_, conn := newTestStore(t)
	require.NoError(t, conn.Close())
	assert.Error(t, conn.Close())
	_, err := conn.Eval(context.Background(), createAccounts)
	assert.Error(t, err)
}

func newTestStore(t *testing.T) (*Store, store.Conn) {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	conn, err := s.Dial(context.Background(), configuration.InstanceConfig{Address: "memory"})
	require.NoError(t, err)
	return s, conn
}
