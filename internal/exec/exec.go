// Package exec runs procedure calls against a driver.Connector.
//
// Execute validates the Set, acquires a dedicated connection, invokes the
// procedure in stored-procedure mode and hands back an Execution that owns
// both the cursor and the connection. Callers must Close the Execution on
// every path; Close releases the cursor, then the connection, exactly once.
//
// Failures are never retried.
package exec

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/sproc/internal/driver"
	"github.com/roach88/sproc/internal/params"
)

// Executor executes procedure calls. It holds no per-call state and is safe
// for concurrent use.
type Executor struct {
	connector driver.Connector
	logger    log.FieldLogger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for execution events.
func WithLogger(l log.FieldLogger) Option {
	return func(e *Executor) { e.logger = l }
}

// New returns an Executor acquiring connections from connector.
func New(connector driver.Connector, opts ...Option) *Executor {
	e := &Executor{connector: connector, logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs set and returns an Execution positioned before the first row
// of the first result set.
//
// An invalid set yields a *params.ArgumentError before any I/O. Connection
// and driver failures yield an *ExecutionError carrying the qualified
// procedure name. If the call fails after a connection was acquired, the
// connection is released before Execute returns.
func (e *Executor) Execute(ctx context.Context, set params.Set) (*Execution, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	name := set.QualifiedName()

	if err := ctx.Err(); err != nil {
		return nil, newError(ErrCodeCancelled, name, err)
	}

	conn, err := e.connector.Connect(ctx)
	if err != nil {
		return nil, classify(ctx, ErrCodeConnectFailed, name, err)
	}

	if err := ctx.Err(); err != nil {
		closeQuietly(e.logger, name, conn)
		return nil, newError(ErrCodeCancelled, name, err)
	}

	cur, err := conn.Call(ctx, set.Schema(), set.Procedure(), set.Params())
	if err != nil {
		closeQuietly(e.logger, name, conn)
		return nil, classify(ctx, ErrCodeExecutionFailed, name, err)
	}

	e.logger.WithFields(log.Fields{
		"procedure": name,
		"params":    len(set.Params()),
	}).Debug("executed procedure")

	return &Execution{Cursor: cur, procedure: name, conn: conn}, nil
}

// classify reports cancellation ahead of the driver's own description of it.
func classify(ctx context.Context, code ErrorCode, name string, err error) error {
	if ctx.Err() != nil {
		code = ErrCodeCancelled
	}
	return Attribute(code, name, err)
}

func closeQuietly(logger log.FieldLogger, name string, conn driver.Conn) {
	if err := conn.Close(); err != nil {
		logger.WithFields(log.Fields{"procedure": name, "err": err}).Warn("failed to release connection")
	}
}

// Execution is one running procedure call. It embeds the cursor over the
// call's result sets and owns the connection the call runs on.
type Execution struct {
	driver.Cursor

	procedure string
	conn      driver.Conn

	once     sync.Once
	closeErr error
}

// Procedure returns the qualified name of the executing procedure.
func (x *Execution) Procedure() string { return x.procedure }

// Close releases the cursor and then the connection. It is idempotent; later
// calls return the first call's result.
func (x *Execution) Close() error {
	x.once.Do(func() {
		curErr := x.Cursor.Close()
		connErr := x.conn.Close()
		x.closeErr = errors.Join(curErr, connErr)
	})
	return x.closeErr
}
