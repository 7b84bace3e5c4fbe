package memory

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"github.com/armadaproject/ttbench/internal/ttbench/configuration"
	"github.com/armadaproject/ttbench/internal/ttbench/store"
)

const (
	spacesTable = "spaces"
	tuplesTable = "tuples"

	idIndex    = "id"
	spaceIndex = "space"
)

var (
	createSpacePattern = regexp.MustCompile(`box\.schema\.create_space\("(\w+)"`)
	fieldPattern       = regexp.MustCompile(`name\s*=\s*"(\w+)"`)
	primaryPattern     = regexp.MustCompile(`create_index\("primary"`)
	dropPattern        = regexp.MustCompile(`box\.space\.(\w+):drop`)
	bootstrapPattern   = regexp.MustCompile(`require\("vshard"\)`)
	methodPattern      = regexp.MustCompile(`^box\.space\.(\w+):(\w+)$`)
)

// space is a created space. Fields holds the field names from the space format.
type space struct {
	Name    string
	Fields  []string
	Primary bool
}

// tuple is a stored record. Key is the primary key rendered as a string.
type tuple struct {
	Space  string
	Key    string
	Bucket uint64
	Values []any
}

// Store emulates a vshard router backed by https://github.com/hashicorp/go-memdb. It understands the router calls
// and schema scripts sent by the workload, which makes it usable for dry runs and tests.
// Every write is executed in a memdb write transaction, so the store is safe for concurrent use.
type Store struct {
	db *memdb.MemDB
}

func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Store{db: db}, nil
}

// Dial returns a new connection to the store. It has the signature of a store.Dialer.
func (s *Store) Dial(_ context.Context, instance configuration.InstanceConfig) (store.Conn, error) {
	return &Conn{store: s, address: instance.Address}, nil
}

// Tuples returns every tuple in the named space.
func (s *Store) Tuples(spaceName string) ([][]any, error) {
	txn := s.db.Txn(false)
	iter, err := txn.Get(tuplesTable, spaceIndex, spaceName)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	result := make([][]any, 0)
	for obj := iter.Next(); obj != nil; obj = iter.Next() {
		result = append(result, obj.(*tuple).Values)
	}
	return result, nil
}

// Get returns the tuple with the given primary key or nil if no such tuple exists.
func (s *Store) Get(spaceName string, key any) ([]any, error) {
	t, err := getTuple(s.db.Txn(false), spaceName, keyOf(key))
	if err != nil || t == nil {
		return nil, err
	}
	return t.Values, nil
}

// Spaces returns the names of all created spaces.
func (s *Store) Spaces() ([]string, error) {
	iter, err := s.db.Txn(false).Get(spacesTable, idIndex)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	result := make([]string, 0)
	for obj := iter.Next(); obj != nil; obj = iter.Next() {
		result = append(result, obj.(*space).Name)
	}
	return result, nil
}

// Conn is a connection to a Store.
type Conn struct {
	store   *Store
	address string
	closed  atomic.Bool
}

func (c *Conn) Call(_ context.Context, fn string, args ...any) ([]any, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	txn := c.store.db.Txn(true)
	defer txn.Abort()
	result, err := call(txn, fn, args)
	if err != nil {
		return nil, err
	}
	txn.Commit()
	return result, nil
}

func (c *Conn) Eval(_ context.Context, expr string, args ...any) ([]any, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	txn := c.store.db.Txn(true)
	defer txn.Abort()
	result, err := eval(txn, expr)
	if err != nil {
		return nil, err
	}
	txn.Commit()
	return result, nil
}

// Begin starts a transaction. Only a single transaction may be open against a Store at any given time; others
// block in Begin until it is committed or rolled back.
func (c *Conn) Begin(_ context.Context) (store.Tx, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return &Tx{txn: c.store.db.Txn(true)}, nil
}

func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return errors.Errorf("connection to %s already closed", c.address)
	}
	return nil
}

func (c *Conn) checkOpen() error {
	if c.closed.Load() {
		return errors.Errorf("connection to %s is closed", c.address)
	}
	return nil
}

// Tx wraps a memdb write transaction.
type Tx struct {
	txn  *memdb.Txn
	done bool
}

func (t *Tx) Call(_ context.Context, fn string, args ...any) ([]any, error) {
	if t.done {
		return nil, errors.New("transaction already finished")
	}
	return call(t.txn, fn, args)
}

func (t *Tx) Eval(_ context.Context, expr string, _ ...any) ([]any, error) {
	if t.done {
		return nil, errors.New("transaction already finished")
	}
	return eval(t.txn, expr)
}

func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	t.txn.Commit()
	return nil
}

func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	t.txn.Abort()
	return nil
}

func eval(txn *memdb.Txn, expr string) ([]any, error) {
	switch {
	case createSpacePattern.MatchString(expr):
		name := createSpacePattern.FindStringSubmatch(expr)[1]
		existing, err := getSpace(txn, name)
		if err != nil {
			return nil, err
		}
		s := &space{Name: name, Primary: primaryPattern.MatchString(expr)}
		if existing != nil {
			// if_not_exists keeps the existing format; indexes may still be added
			s.Fields = existing.Fields
			s.Primary = s.Primary || existing.Primary
		} else {
			for _, match := range fieldPattern.FindAllStringSubmatch(expr, -1) {
				s.Fields = append(s.Fields, match[1])
			}
		}
		if err := txn.Insert(spacesTable, s); err != nil {
			return nil, errors.WithStack(err)
		}
		return []any{true}, nil
	case dropPattern.MatchString(expr):
		for _, match := range dropPattern.FindAllStringSubmatch(expr, -1) {
			if err := dropSpace(txn, match[1]); err != nil {
				return nil, err
			}
		}
		return []any{true}, nil
	case bootstrapPattern.MatchString(expr):
		return []any{true}, nil
	default:
		return nil, errors.Errorf("unsupported expression: %s", abbreviate(expr))
	}
}

func call(txn *memdb.Txn, fn string, args []any) ([]any, error) {
	switch fn {
	case store.CallRW, store.CallRO, store.CallBRO:
	default:
		return nil, errors.Errorf("Procedure '%s' is not defined", fn)
	}
	if len(args) != 3 {
		return nil, errors.Errorf("%s expects bucket id, function and arguments but got %d arguments", fn, len(args))
	}
	bucket, err := toUint64(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "invalid bucket id")
	}
	method, ok := args[1].(string)
	if !ok {
		return nil, errors.Errorf("function name must be a string but got %T", args[1])
	}
	opArgs, ok := args[2].([]any)
	if !ok {
		return nil, errors.Errorf("function arguments must be an array but got %T", args[2])
	}
	match := methodPattern.FindStringSubmatch(method)
	if match == nil {
		return nil, errors.Errorf("unsupported function %s", method)
	}
	spaceName, op := match[1], match[2]
	s, err := getSpace(txn, spaceName)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.Errorf("Space '%s' does not exist", spaceName)
	}
	if !s.Primary {
		return nil, errors.Errorf("No index #0 is defined in space '%s'", spaceName)
	}
	if fn != store.CallRW && op != "get" {
		return nil, errors.Errorf("%s can't execute %s on a read only replica", fn, op)
	}
	if len(opArgs) == 0 {
		return nil, errors.Errorf("%s expects at least one argument", method)
	}

	switch op {
	case "get":
		t, err := getTuple(txn, spaceName, keyOf(opArgs[0]))
		if err != nil {
			return nil, err
		}
		return singleResult(t), nil
	case "replace", "insert":
		values, ok := opArgs[0].([]any)
		if !ok || len(values) == 0 {
			return nil, errors.Errorf("%s expects a non empty tuple", method)
		}
		key := keyOf(values[0])
		if op == "insert" {
			existing, err := getTuple(txn, spaceName, key)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, errors.Errorf("Duplicate key exists in unique index \"primary\" in space \"%s\"", spaceName)
			}
		}
		t := &tuple{Space: spaceName, Key: key, Bucket: bucket, Values: append([]any{}, values...)}
		if err := txn.Insert(tuplesTable, t); err != nil {
			return nil, errors.WithStack(err)
		}
		return singleResult(t), nil
	case "update":
		if len(opArgs) != 2 {
			return nil, errors.Errorf("%s expects a key and a list of operations", method)
		}
		existing, err := getTuple(txn, spaceName, keyOf(opArgs[0]))
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return singleResult(nil), nil
		}
		ops, ok := opArgs[1].([]any)
		if !ok {
			return nil, errors.Errorf("update operations must be an array but got %T", opArgs[1])
		}
		// Stored tuples must not be modified, so updates work on a copy.
		updated := &tuple{Space: existing.Space, Key: existing.Key, Bucket: existing.Bucket, Values: append([]any{}, existing.Values...)}
		for _, rawOp := range ops {
			if err := applyUpdate(s, updated.Values, rawOp); err != nil {
				return nil, err
			}
		}
		if err := txn.Insert(tuplesTable, updated); err != nil {
			return nil, errors.WithStack(err)
		}
		return singleResult(updated), nil
	case "delete":
		existing, err := getTuple(txn, spaceName, keyOf(opArgs[0]))
		if err != nil || existing == nil {
			return singleResult(nil), err
		}
		if err := txn.Delete(tuplesTable, existing); err != nil {
			return nil, errors.WithStack(err)
		}
		return singleResult(existing), nil
	default:
		return nil, errors.Errorf("unsupported operation %s", op)
	}
}

// applyUpdate applies a single update operation of the form {"+", field, value}.
func applyUpdate(s *space, values []any, rawOp any) error {
	op, ok := rawOp.([]any)
	if !ok || len(op) != 3 {
		return errors.Errorf("malformed update operation %v", rawOp)
	}
	operator, ok := op[0].(string)
	if !ok {
		return errors.Errorf("malformed update operator %v", op[0])
	}
	field, err := fieldNumber(s, op[1])
	if err != nil {
		return err
	}
	if field >= len(values) {
		return errors.Errorf("Field %d was not found in the tuple", field+1)
	}
	switch operator {
	case "=":
		values[field] = op[2]
	case "+", "-":
		current, err := toUint64(values[field])
		if err != nil {
			return errors.Wrapf(err, "field %d is not numeric", field+1)
		}
		delta, err := toUint64(op[2])
		if err != nil {
			return errors.Wrap(err, "update argument is not numeric")
		}
		if operator == "+" {
			values[field] = current + delta
		} else {
			values[field] = current - delta
		}
	default:
		return errors.Errorf("Unknown UPDATE operation #1: '%s'", operator)
	}
	return nil
}

// fieldNumber resolves a field name or a one based field number to a zero based index.
func fieldNumber(s *space, field any) (int, error) {
	if name, ok := field.(string); ok {
		for i, f := range s.Fields {
			if f == name {
				return i, nil
			}
		}
		return 0, errors.Errorf("Field '%s' was not found in space '%s'", name, s.Name)
	}
	n, err := toUint64(field)
	if err != nil || n == 0 {
		return 0, errors.Errorf("invalid field %v", field)
	}
	return int(n - 1), nil
}

func dropSpace(txn *memdb.Txn, name string) error {
	existing, err := getSpace(txn, name)
	if err != nil || existing == nil {
		return err
	}
	if _, err := txn.DeleteAll(tuplesTable, spaceIndex, name); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(txn.Delete(spacesTable, existing))
}

func getSpace(txn *memdb.Txn, name string) (*space, error) {
	obj, err := txn.First(spacesTable, idIndex, name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*space), nil
}

func getTuple(txn *memdb.Txn, spaceName string, key string) (*tuple, error) {
	obj, err := txn.First(tuplesTable, idIndex, spaceName, key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*tuple), nil
}

// singleResult mimics the single return value of a box.space function called through the router.
func singleResult(t *tuple) []any {
	if t == nil {
		return []any{nil}
	}
	return []any{append([]any{}, t.Values...)}
}

func keyOf(v any) string {
	return fmt.Sprint(v)
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint32:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint:
		return uint64(n), nil
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case int64:
		if n >= 0 {
			return uint64(n), nil
		}
	case int32:
		if n >= 0 {
			return uint64(n), nil
		}
	case int16:
		if n >= 0 {
			return uint64(n), nil
		}
	case int8:
		if n >= 0 {
			return uint64(n), nil
		}
	}
	return 0, errors.Errorf("%v (%T) is not an unsigned integer", v, v)
}

func abbreviate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}

// schema creates the database schema: one table of spaces and one table holding the tuples of every space,
// keyed by space name and primary key.
func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			spacesTable: {
				Name: spacesTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			tuplesTable: {
				Name: tuplesTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:   idIndex,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Space"},
								&memdb.StringFieldIndex{Field: "Key"},
							},
						},
					},
					spaceIndex: {
						Name:    spaceIndex,
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "Space"},
					},
				},
			},
		},
	}
}
