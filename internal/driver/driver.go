// Package driver defines the database collaborator consumed by sproc and
// adapts database/sql to it.
//
// The contract is deliberately small:
//
//	Connector.Connect(ctx)            -> Conn       (one per logical call)
//	Conn.Call(ctx, schema, proc, ps)  -> Cursor     (stored-procedure mode)
//	Cursor.Next / Scan / NextResultSet / Err / Close
//
// A Conn is never shared between concurrent calls. A Cursor is forward-only,
// single-pass, and must be closed before its Conn.
package driver

import (
	"context"

	"github.com/roach88/sproc/internal/params"
)

// Row is the positioned, forward-only row accessor handed to row mappers.
// Columns are read strictly by zero-based ordinal: Scan assigns dest[i] from
// column i.
type Row interface {
	Scan(dest ...any) error
}

// Cursor iterates the rows of every result set produced by one execution.
//
// Next must be called before the first Scan of each result set.
// NextResultSet reports false both at the end of the sets and on error;
// consult Err to tell the two apart.
type Cursor interface {
	Row
	Next() bool
	Columns() ([]string, error)
	NextResultSet() bool
	Err() error
	Close() error
}

// Conn is one dedicated database connection.
type Conn interface {
	// Call executes schema.procedure in stored-procedure mode with ps bound by
	// name in declared order. The returned Cursor is positioned before the
	// first row of the first result set.
	Call(ctx context.Context, schema, procedure string, ps []params.Param) (Cursor, error)

	// Close releases the connection.
	Close() error
}

// Connector acquires connections.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}
