// Package access is the query pipeline: cache lookup, execution,
// materialization, release and cache store, strictly in that order.
//
// Every entry point validates its Set before touching the cache or the
// database. Cached results are returned without I/O. On a miss the procedure
// runs on a dedicated connection that is released on every path; partial
// results are discarded on error and cancellation. A cache failure only ever
// costs a miss.
package access

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/sproc/internal/cache"
	"github.com/roach88/sproc/internal/driver"
	"github.com/roach88/sproc/internal/exec"
	"github.com/roach88/sproc/internal/materialize"
	"github.com/roach88/sproc/internal/metrics"
	"github.com/roach88/sproc/internal/params"
)

// ErrNoRows is returned by QueryFirst when the first result set is empty.
var ErrNoRows = errors.New("access: no rows in result set")

// Client runs procedure calls through the cache tiers. It is safe for
// concurrent use; cache stores are shared by every call made through it.
type Client struct {
	executor *exec.Executor
	cache    *cache.Facade
	logger   log.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the cache facade. Without one, a Client gets a facade with
// only the in-memory tiers.
func WithCache(f *cache.Facade) Option { return func(c *Client) { c.cache = f } }

// WithLogger sets the logger passed to the executor and used for pipeline
// events.
func WithLogger(l log.FieldLogger) Option { return func(c *Client) { c.logger = l } }

// New returns a Client acquiring connections from connector.
func New(connector driver.Connector, opts ...Option) *Client {
	c := &Client{logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewFacade(cache.WithLogger(c.logger))
	}
	c.executor = exec.New(connector, exec.WithLogger(c.logger))
	return c
}

// Cache returns the client's cache facade.
func (c *Client) Cache() *cache.Facade { return c.cache }

// run executes set and hands the open Execution to read. The execution is
// closed before run returns; a close failure is reported only if nothing
// else failed.
func (c *Client) run(ctx context.Context, set params.Set, read func(*exec.Execution) error) (err error) {
	start := time.Now()
	defer func() { c.observe(set, start, err) }()

	x, err := c.executor.Execute(ctx, set)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := x.Close(); cerr != nil && err == nil {
			err = exec.Attribute(exec.ErrCodeExecutionFailed, set.QualifiedName(), cerr)
		}
	}()

	if err := read(x); err != nil {
		return attribute(set, err)
	}
	return nil
}

func (c *Client) observe(set params.Set, start time.Time, err error) {
	result := metrics.Ok
	if err != nil {
		result = metrics.Fail
	}
	elapsed := time.Since(start)
	metrics.ProcedureDurationSeconds.WithLabelValues(set.QualifiedName(), result).Observe(elapsed.Seconds())

	entry := c.logger.WithFields(log.Fields{"procedure": set.QualifiedName(), "elapsed": elapsed})
	if err != nil {
		entry.WithField("err", err).Debug("procedure failed")
	} else {
		entry.Debug("procedure completed")
	}
}

func attribute(set params.Set, err error) error {
	code := exec.ErrCodeExecutionFailed
	var me *materialize.MappingError
	if errors.As(err, &me) {
		code = exec.ErrCodeMappingFailed
	}
	return exec.Attribute(code, set.QualifiedName(), err)
}
