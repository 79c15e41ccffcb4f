package testutil

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/roach88/sproc/internal/driver"
	"github.com/roach88/sproc/internal/params"
)

// ResultSet is one table of rows returned by the fake driver. Values are
// addressed by ordinal.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Rows builds a single-column result set from values.
func Rows(values ...any) ResultSet {
	rs := ResultSet{Columns: []string{"value"}}
	for _, v := range values {
		rs.Rows = append(rs.Rows, []any{v})
	}
	return rs
}

// Call records one Conn.Call made against a FakeConnector.
type Call struct {
	Schema    string
	Procedure string
	Params    []params.Param
}

// FakeConnector is an in-memory driver.Connector for tests.
//
// Every call returns the configured result sets. Counters record how many
// connections and cursors were opened and closed, so tests can assert that
// every acquisition was released exactly once.
//
// Thread-safety: FakeConnector is safe for concurrent use.
type FakeConnector struct {
	Sets []ResultSet

	// ConnectErr, if set, fails Connect.
	ConnectErr error

	// CallErr, if set, fails Conn.Call.
	CallErr error

	// RowErr, if set, is reported by Err after the row at RowErrAt of the
	// first set is reached, ending iteration.
	RowErr   error
	RowErrAt int

	// OnRow, if set, runs each time the cursor advances onto a row.
	OnRow func(set, row int)

	connects      atomic.Int64
	closes        atomic.Int64
	cursorOpens   atomic.Int64
	cursorCloses  atomic.Int64
	mu            sync.Mutex
	calls         []Call
	closesPerConn []int
}

var _ driver.Connector = (*FakeConnector)(nil)

// NewFakeConnector returns a connector serving sets on every call.
func NewFakeConnector(sets ...ResultSet) *FakeConnector {
	return &FakeConnector{Sets: sets}
}

// Connect implements driver.Connector.
func (f *FakeConnector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ConnectErr != nil {
		return nil, f.ConnectErr
	}
	f.connects.Add(1)

	f.mu.Lock()
	id := len(f.closesPerConn)
	f.closesPerConn = append(f.closesPerConn, 0)
	f.mu.Unlock()

	return &fakeConn{f: f, id: id}, nil
}

// Connects returns how many connections were opened.
func (f *FakeConnector) Connects() int { return int(f.connects.Load()) }

// Closes returns how many connection Close calls were made.
func (f *FakeConnector) Closes() int { return int(f.closes.Load()) }

// OpenConns returns connections opened but not yet closed.
func (f *FakeConnector) OpenConns() int { return f.Connects() - f.Closes() }

// OpenCursors returns cursors opened but not yet closed.
func (f *FakeConnector) OpenCursors() int {
	return int(f.cursorOpens.Load() - f.cursorCloses.Load())
}

// ClosedExactlyOnce reports whether every opened connection was closed once.
func (f *FakeConnector) ClosedExactlyOnce() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.closesPerConn {
		if n != 1 {
			return false
		}
	}
	return true
}

// Calls returns the calls made so far.
func (f *FakeConnector) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

type fakeConn struct {
	f  *FakeConnector
	id int
}

func (c *fakeConn) Call(ctx context.Context, schema, procedure string, ps []params.Param) (driver.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.f.mu.Lock()
	c.f.calls = append(c.f.calls, Call{Schema: schema, Procedure: procedure, Params: ps})
	c.f.mu.Unlock()

	if c.f.CallErr != nil {
		return nil, c.f.CallErr
	}
	c.f.cursorOpens.Add(1)
	return &fakeCursor{f: c.f, row: -1}, nil
}

func (c *fakeConn) Close() error {
	c.f.closes.Add(1)
	c.f.mu.Lock()
	c.f.closesPerConn[c.id]++
	c.f.mu.Unlock()
	return nil
}

type fakeCursor struct {
	f      *FakeConnector
	set    int
	row    int
	err    error
	closed bool
}

func (c *fakeCursor) current() (ResultSet, bool) {
	if c.closed || c.set >= len(c.f.Sets) {
		return ResultSet{}, false
	}
	return c.f.Sets[c.set], true
}

func (c *fakeCursor) Next() bool {
	rs, ok := c.current()
	if !ok || c.err != nil {
		return false
	}
	if c.set == 0 && c.f.RowErr != nil && c.row+1 == c.f.RowErrAt {
		c.err = c.f.RowErr
		return false
	}
	if c.row+1 >= len(rs.Rows) {
		c.row = len(rs.Rows)
		return false
	}
	c.row++
	if c.f.OnRow != nil {
		c.f.OnRow(c.set, c.row)
	}
	return true
}

func (c *fakeCursor) Scan(dest ...any) error {
	rs, ok := c.current()
	if !ok {
		return errors.New("scan: cursor is closed")
	}
	if c.row < 0 || c.row >= len(rs.Rows) {
		return errors.New("scan: not positioned on a row")
	}
	row := rs.Rows[c.row]
	if len(dest) > len(row) {
		return fmt.Errorf("scan: ordinal %d out of range (%d columns)", len(dest)-1, len(row))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("scan: column %d: %w", i, err)
		}
	}
	return nil
}

func (c *fakeCursor) Columns() ([]string, error) {
	rs, ok := c.current()
	if !ok {
		return nil, errors.New("columns: no result set")
	}
	return append([]string(nil), rs.Columns...), nil
}

func (c *fakeCursor) NextResultSet() bool {
	if c.closed || c.err != nil || c.set+1 >= len(c.f.Sets) {
		return false
	}
	c.set++
	c.row = -1
	return true
}

func (c *fakeCursor) Err() error { return c.err }

func (c *fakeCursor) Close() error {
	if !c.closed {
		c.closed = true
		c.f.cursorCloses.Add(1)
	}
	return nil
}

// assign stores src into the pointer dest, converting between compatible
// kinds the way database/sql does for common cases.
func assign(dest, src any) error {
	if p, ok := dest.(*any); ok {
		*p = src
		return nil
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination %T is not a non-nil pointer", dest)
	}
	elem := dv.Elem()
	if src == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	switch {
	case sv.Type().AssignableTo(elem.Type()):
		elem.Set(sv)
	case isNumeric(sv.Kind()) && isNumeric(elem.Kind()):
		elem.Set(sv.Convert(elem.Type()))
	case sv.Kind() == reflect.String && elem.Kind() == reflect.String:
		elem.Set(sv.Convert(elem.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", src, elem.Type())
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
