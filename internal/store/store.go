// Package store is the generic persistence layer of the desk. Operations are
// described as data (entity, verb, filter, payload) so that an interceptor can
// classify and audit them without knowing the entity.
//
// Two capabilities are exposed on purpose: Executor is the entry point domain
// services use, and it may be wrapped (see package audit); RawExecutor is the
// unwrapped path offered by backends. Code that must never be intercepted, such
// as the audit writer itself, depends on RawExecutor/RawOpener only.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that a single-record operation matched nothing.
	ErrNotFound = errors.New("store: record not found")
	// ErrUnsupportedVerb indicates a verb outside the closed verb set.
	ErrUnsupportedVerb = errors.New("store: unsupported verb")
	// ErrUnknownEntity indicates an entity without a registered schema.
	ErrUnknownEntity = errors.New("store: unknown entity")
	// ErrUnknownColumn indicates a field not declared in the entity schema.
	ErrUnknownColumn = errors.New("store: unknown column")
	// ErrInvalidOperation indicates a malformed operation, e.g. a single-record
	// write without an id filter.
	ErrInvalidOperation = errors.New("store: invalid operation")
	// ErrConflict indicates a duplicate id on create.
	ErrConflict = errors.New("store: conflict")
)

// IDField is the identifier column every entity carries.
const IDField = "id"

// Row is a single record keyed by column name.
type Row map[string]any

// ID returns the record identifier if present and non-empty.
func (r Row) ID() (string, bool) {
	return identifierOf(r)
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the field as a string, "" when absent or not a string.
func (r Row) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Filter selects records by field equality; a nil value matches NULL.
type Filter map[string]any

// ID returns the identifier carried by the filter, if any.
func (f Filter) ID() (string, bool) {
	return identifierOf(f)
}

// Order sorts results by Field.
type Order struct {
	Field string
	Desc  bool
}

// Operation is one invocation of the persistence layer.
type Operation struct {
	Entity  string
	Verb    Verb
	Where   Filter
	Data    Row
	Rows    []Row
	OrderBy []Order
	Take    int
	Skip    int
}

// Result is what an operation produced. Single-record verbs fill Row (nil when
// a find matched nothing), findMany fills Rows and bulk writes and count fill
// Count.
type Result struct {
	Row   Row
	Rows  []Row
	Count int64
}

// Executor is the audited entry point into the persistence layer.
type Executor interface {
	Exec(ctx context.Context, op Operation) (Result, error)
}

// RawExecutor runs operations directly against the backing store, bypassing
// any interception.
type RawExecutor interface {
	ExecRaw(ctx context.Context, op Operation) (Result, error)
}

// RawHandle is a separate raw access path that must be closed after use.
type RawHandle interface {
	RawExecutor
	Close()
}

// RawOpener hands out raw handles to the same underlying store.
type RawOpener interface {
	OpenRaw(ctx context.Context) (RawHandle, error)
}

// Backend is a concrete store offering both raw capabilities.
type Backend interface {
	RawExecutor
	RawOpener
}

// Validate checks the structural rules shared by all backends.
func (op Operation) Validate() error {
	if op.Entity == "" {
		return fmt.Errorf("%w: entity required", ErrInvalidOperation)
	}
	if !op.Verb.Known() {
		return fmt.Errorf("%w: %q", ErrUnsupportedVerb, op.Verb)
	}
	if op.Verb.RequiresID() {
		if _, ok := op.Where.ID(); !ok {
			return fmt.Errorf("%w: %s requires an id filter", ErrInvalidOperation, op.Verb)
		}
	}
	if op.Verb == VerbCreate && op.Data == nil {
		return fmt.Errorf("%w: create requires data", ErrInvalidOperation)
	}
	if op.Take < 0 || op.Skip < 0 {
		return fmt.Errorf("%w: negative paging", ErrInvalidOperation)
	}
	return nil
}

func identifierOf(m map[string]any) (string, bool) {
	v, ok := m[IDField]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch id := v.(type) {
	case string:
		s = id
	case fmt.Stringer:
		s = id.String()
	default:
		s = fmt.Sprint(id)
	}
	if s == "" {
		return "", false
	}
	return s, true
}
