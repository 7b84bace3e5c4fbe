package workload

import (
	"context"

	"github.com/pkg/errors"

	"github.com/armadaproject/ttbench/internal/common/benchcontext"
	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/job"
	"github.com/armadaproject/ttbench/internal/ttbench/store"
	"github.com/armadaproject/ttbench/internal/ttbench/target"
)

// Create initialises vshard on the router and creates every space on every shard.
// Indexes are created according to the p and f init steps.
func Create(ctx *benchcontext.Context, env *job.Environment, _ uint64) error {
	conn := env.Pool.Get()
	resp, err := conn.Eval(ctx, bootstrapScript)
	if err != nil {
		return errors.Wrap(err, "failed to initialise vshard on the router")
	}
	if len(resp) == 0 || resp[0] != true {
		return errors.New("vshard router is not configured on the instance")
	}
	ctx.Log.Info("_G.vshard initialised")

	primary := env.Config.InitSteps.Contains(configuration.StepPrimary)
	secondary := env.Config.InitSteps.Contains(configuration.StepForeign)
	for _, space := range Spaces() {
		script, err := createScript(space, primary, secondary)
		if err != nil {
			return err
		}
		if _, err := conn.Eval(ctx, script); err != nil {
			return errors.Wrapf(err, "failed to create space %s", space.Name)
		}
		ctx.Log.
			WithField("space", space.Name).
			WithField("primary", primary).
			WithField("secondary", secondary).
			Info("space created")
	}
	return nil
}

// Drop drops every space on every shard. The history space is kept if KeepHistory is set.
func Drop(ctx *benchcontext.Context, env *job.Environment, _ uint64) error {
	conn := env.Pool.Get()
	for _, space := range Spaces() {
		if space.Name == HistorySpace.Name && env.Config.KeepHistory {
			ctx.Log.WithField("space", space.Name).Info("keeping history")
			continue
		}
		script, err := dropScript(space)
		if err != nil {
			return err
		}
		if _, err := conn.Eval(ctx, script); err != nil {
			return errors.Wrapf(err, "failed to drop space %s", space.Name)
		}
		ctx.Log.WithField("space", space.Name).Info("space dropped")
	}
	return nil
}

// Vacuum exists so the v init step can be requested. Tarantool has nothing equivalent to run.
func Vacuum(ctx *benchcontext.Context, _ *job.Environment, _ uint64) error {
	ctx.Log.Info("vacuum is not applicable to tarantool, skipping")
	return nil
}

func Accounts(ctx *benchcontext.Context, env *job.Environment, id uint64) error {
	return seed(ctx, env, AccountsSpace, id)
}

func Tellers(ctx *benchcontext.Context, env *job.Environment, id uint64) error {
	return seed(ctx, env, TellersSpace, id)
}

func Branches(ctx *benchcontext.Context, env *job.Environment, id uint64) error {
	return seed(ctx, env, BranchesSpace, id)
}

// seed writes a zero balance record with the given id.
func seed(ctx *benchcontext.Context, env *job.Environment, space Space, id uint64) error {
	bucket := env.Router.BucketOf(id)
	resp, err := env.Pool.Get().Call(ctx, store.CallRW, bucket, space.method("replace"), []any{[]any{id, uint64(0), bucket}})
	if err != nil {
		return errors.Wrapf(err, "failed to seed %s %d", space.Name, id)
	}
	if firstTuple(resp) == nil {
		return errors.Errorf("failed to seed %s %d: no tuple returned", space.Name, id)
	}
	return nil
}

// TPCB applies a transaction: the delta is added to the account, teller and branch balances and a history record
// is written. All writes happen in one interactive transaction, which is rolled back on any failure.
func TPCB(ctx *benchcontext.Context, env *job.Environment, tx target.Transaction) (err error) {
	txn, err := env.Pool.Get().Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err == nil {
			return
		}
		if rollbackErr := txn.Rollback(benchcontext.WithoutCancel(ctx)); rollbackErr != nil {
			ctx.Log.WithError(rollbackErr).Warnf("failed to roll back transaction %s", tx.UUID)
		}
	}()

	accountBucket := env.Router.BucketOf(tx.AccountID)
	if err = addToBalance(ctx, txn, AccountsSpace, accountBucket, tx.AccountID, tx.Delta); err != nil {
		return err
	}
	resp, err := txn.Call(ctx, store.CallBRO, accountBucket, AccountsSpace.method("get"), []any{tx.AccountID})
	if err != nil {
		return errors.Wrapf(err, "failed to read account %d", tx.AccountID)
	}
	if firstTuple(resp) == nil {
		return errors.Errorf("account %d not found", tx.AccountID)
	}
	if err = addToBalance(ctx, txn, TellersSpace, env.Router.BucketOf(tx.TellerID), tx.TellerID, tx.Delta); err != nil {
		return err
	}
	if err = addToBalance(ctx, txn, BranchesSpace, env.Router.BucketOf(tx.BranchID), tx.BranchID, tx.Delta); err != nil {
		return err
	}

	tx.BucketID = env.Router.Bucket(tx.UUID)
	history := []any{tx.UUID, tx.TellerID, tx.BranchID, tx.AccountID, tx.Delta, tx.Time, tx.BucketID}
	if _, err = txn.Call(ctx, store.CallRW, tx.BucketID, HistorySpace.method("insert"), []any{history}); err != nil {
		return errors.Wrapf(err, "failed to record history of transaction %s", tx.UUID)
	}

	if err = txn.Commit(ctx); err != nil {
		return errors.Wrapf(err, "failed to commit transaction %s", tx.UUID)
	}
	return nil
}

func addToBalance(ctx context.Context, txn store.Tx, space Space, bucket uint64, id uint64, delta uint64) error {
	ops := []any{[]any{"+", space.balanceField(), delta}}
	resp, err := txn.Call(ctx, store.CallRW, bucket, space.method("update"), []any{id, ops})
	if err != nil {
		return errors.Wrapf(err, "failed to update %s %d", space.Name, id)
	}
	if firstTuple(resp) == nil {
		return errors.Errorf("%s %d not found", space.Name, id)
	}
	return nil
}

// firstTuple returns the tuple returned by a box.space function, or nil if it returned nothing.
func firstTuple(resp []any) []any {
	if len(resp) == 0 {
		return nil
	}
	tuple, _ := resp[0].([]any)
	return tuple
}
