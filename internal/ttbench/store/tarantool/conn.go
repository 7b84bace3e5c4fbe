package tarantool

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/tarantool/go-tarantool/v2"

	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/store"
)

// Conn implements store.Conn on top of a go-tarantool connection.
type Conn struct {
	address string
	conn    *tarantool.Connection
}

// Dial connects and authenticates against a single router instance.
func Dial(ctx context.Context, instance configuration.InstanceConfig) (store.Conn, error) {
	dialer := tarantool.NetDialer{
		Address: instance.Address,
		User:    instance.User,
	}
	if instance.Password != nil {
		dialer.Password = *instance.Password
	}
	conn, err := tarantool.Connect(ctx, dialer, tarantool.Opts{Timeout: instance.Timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", instance.Address)
	}
	return &Conn{address: instance.Address, conn: conn}, nil
}

func (c *Conn) Call(ctx context.Context, fn string, args ...any) ([]any, error) {
	return call(ctx, c.conn, fn, args)
}

func (c *Conn) Eval(ctx context.Context, expr string, args ...any) ([]any, error) {
	return eval(ctx, c.conn, expr, args)
}

// Begin opens a stream and starts a transaction on it.
func (c *Conn) Begin(ctx context.Context) (store.Tx, error) {
	stream, err := c.conn.NewStream()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open stream to %s", c.address)
	}
	if _, err := stream.Do(tarantool.NewBeginRequest().Context(ctx)).Get(); err != nil {
		return nil, errors.Wrapf(err, "failed to begin transaction on %s", c.address)
	}
	return &Tx{stream: stream}, nil
}

func (c *Conn) Close() error {
	return errors.Wrapf(c.conn.Close(), "failed to close connection to %s", c.address)
}

func (c *Conn) String() string {
	return c.address
}

// Tx is a transaction bound to a go-tarantool stream.
type Tx struct {
	stream *tarantool.Stream
}

func (t *Tx) Call(ctx context.Context, fn string, args ...any) ([]any, error) {
	return call(ctx, t.stream, fn, args)
}

func (t *Tx) Eval(ctx context.Context, expr string, args ...any) ([]any, error) {
	return eval(ctx, t.stream, expr, args)
}

func (t *Tx) Commit(ctx context.Context) error {
	_, err := t.stream.Do(tarantool.NewCommitRequest().Context(ctx)).Get()
	return errors.Wrap(err, "commit failed")
}

func (t *Tx) Rollback(ctx context.Context) error {
	_, err := t.stream.Do(tarantool.NewRollbackRequest().Context(ctx)).Get()
	return errors.Wrap(err, "rollback failed")
}

// doer is satisfied by both *tarantool.Connection and *tarantool.Stream.
type doer interface {
	Do(req tarantool.Request) *tarantool.Future
}

func call(ctx context.Context, d doer, fn string, args []any) ([]any, error) {
	resp, err := d.Do(tarantool.NewCallRequest(fn).Args(normaliseArgs(args)).Context(ctx)).Get()
	if err != nil {
		return nil, errors.Wrapf(err, "call %s failed", fn)
	}
	return unpackResult(resp)
}

func eval(ctx context.Context, d doer, expr string, args []any) ([]any, error) {
	resp, err := d.Do(tarantool.NewEvalRequest(expr).Args(normaliseArgs(args)).Context(ctx)).Get()
	if err != nil {
		return nil, errors.Wrap(err, "eval failed")
	}
	return unpackResult(resp)
}

func normaliseArgs(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

// unpackResult turns the Lua convention of returning `nil, err` into a Go error.
func unpackResult(resp []any) ([]any, error) {
	if len(resp) >= 2 && resp[0] == nil && resp[1] != nil {
		return nil, errors.Errorf("remote error: %s", describeRemoteError(resp[1]))
	}
	return resp, nil
}

func describeRemoteError(v any) string {
	if m, ok := v.(map[any]any); ok {
		if msg, ok := m["message"]; ok {
			return fmt.Sprint(msg)
		}
	}
	return fmt.Sprint(v)
}
