package store

import (
	"context"

	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
)

// Caller executes stored procedures and Lua expressions on a router.
// Both methods return the values the remote side returned, in order.
type Caller interface {
	Call(ctx context.Context, fn string, args ...any) ([]any, error)
	Eval(ctx context.Context, expr string, args ...any) ([]any, error)
}

// Conn is a single connection to a router instance.
type Conn interface {
	Caller
	// Begin starts an interactive transaction. Requests made through the returned Tx are executed in it.
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is an interactive transaction. Exactly one of Commit and Rollback should be called.
type Tx interface {
	Caller
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Dialer opens a connection to the given instance.
type Dialer func(ctx context.Context, instance configuration.InstanceConfig) (Conn, error)

// vshard router entry points.
const (
	CallRW  = "vshard.router.callrw"
	CallRO  = "vshard.router.callro"
	CallBRO = "vshard.router.callbro"
)
