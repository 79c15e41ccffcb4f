package driver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/sproc/internal/params"
	"github.com/roach88/sproc/internal/procsql"
)

// SQLConnector adapts a *sql.DB and a dialect to Connector.
//
// Each Connect checks out a dedicated *sql.Conn from the pool; closing the
// Conn returns it. Any database/sql driver works as long as the dialect
// matches the engine behind it.
type SQLConnector struct {
	db      *sql.DB
	dialect procsql.Dialect
}

// NewSQLConnector returns a Connector over db rendering calls with dialect.
func NewSQLConnector(db *sql.DB, dialect procsql.Dialect) *SQLConnector {
	return &SQLConnector{db: db, dialect: dialect}
}

// Dialect returns the dialect calls are rendered with.
func (c *SQLConnector) Dialect() procsql.Dialect { return c.dialect }

// Connect checks out a dedicated connection.
func (c *SQLConnector) Connect(ctx context.Context) (Conn, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &sqlConn{conn: conn, dialect: c.dialect}, nil
}

type sqlConn struct {
	conn    *sql.Conn
	dialect procsql.Dialect
}

func (c *sqlConn) Call(ctx context.Context, schema, procedure string, ps []params.Param) (Cursor, error) {
	stmts, err := c.dialect.Compile(ctx, c.conn, schema, procedure, ps)
	if err != nil {
		return nil, fmt.Errorf("compile call: %w", err)
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("compile call: dialect %s produced no statements", c.dialect.Name())
	}

	rows, err := c.conn.QueryContext(ctx, stmts[0].Query, stmts[0].Args...)
	if err != nil {
		return nil, err
	}
	return &sqlCursor{ctx: ctx, conn: c.conn, stmts: stmts, rows: rows}, nil
}

func (c *sqlConn) Close() error {
	return c.conn.Close()
}

// sqlCursor sequences the native result sets of each statement, then moves
// on to the next statement of the procedure.
type sqlCursor struct {
	ctx    context.Context
	conn   *sql.Conn
	stmts  []procsql.Statement
	idx    int
	rows   *sql.Rows
	err    error
	closed bool
}

func (c *sqlCursor) Next() bool {
	if c.rows == nil {
		return false
	}
	return c.rows.Next()
}

func (c *sqlCursor) Scan(dest ...any) error {
	if c.rows == nil {
		return fmt.Errorf("scan: cursor is closed")
	}
	return c.rows.Scan(dest...)
}

func (c *sqlCursor) Columns() ([]string, error) {
	if c.rows == nil {
		return nil, fmt.Errorf("columns: cursor is closed")
	}
	return c.rows.Columns()
}

func (c *sqlCursor) NextResultSet() bool {
	if c.rows == nil || c.err != nil {
		return false
	}
	if c.rows.NextResultSet() {
		return true
	}
	if err := c.rows.Err(); err != nil {
		c.err = err
		return false
	}
	if c.idx+1 >= len(c.stmts) {
		return false
	}

	if err := c.rows.Close(); err != nil {
		c.err = err
		return false
	}
	c.idx++
	stmt := c.stmts[c.idx]
	rows, err := c.conn.QueryContext(c.ctx, stmt.Query, stmt.Args...)
	if err != nil {
		c.rows, c.err = nil, fmt.Errorf("statement %d: %w", c.idx, err)
		return false
	}
	c.rows = rows
	return true
}

func (c *sqlCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if c.rows == nil {
		return nil
	}
	return c.rows.Err()
}

// Close releases the current rows, then runs every statement the caller did
// not advance to, discarding its rows, so the whole procedure takes effect as
// it would on a server. A failing trailing statement is reported by Close.
// Nothing further runs once the cursor has failed or its context is done.
func (c *sqlCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.rows != nil {
		if err := c.rows.Err(); err != nil && c.err == nil {
			c.err = err
		}
		err := c.rows.Close()
		c.rows = nil
		if err != nil {
			return err
		}
	}
	if c.err != nil || c.ctx.Err() != nil {
		return nil
	}
	return c.runRemaining()
}

func (c *sqlCursor) runRemaining() error {
	for c.idx+1 < len(c.stmts) {
		c.idx++
		stmt := c.stmts[c.idx]
		if _, err := c.conn.ExecContext(c.ctx, stmt.Query, stmt.Args...); err != nil {
			return fmt.Errorf("statement %d: %w", c.idx, err)
		}
	}
	return nil
}
