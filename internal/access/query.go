package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/sproc/internal/cache"
	"github.com/roach88/sproc/internal/exec"
	"github.com/roach88/sproc/internal/materialize"
	"github.com/roach88/sproc/internal/params"
)

// Query runs set and maps every row of its first result set.
//
// With a cache directive, a cached []T is returned as is. Values held by the
// Frozen and Timed tiers are shared with every later hit and must not be
// modified.
func Query[T any](ctx context.Context, c *Client, set params.Set, mapper materialize.Mapper[T]) ([]T, error) {
	return cached(ctx, c, set, func(x *exec.Execution) ([]T, error) {
		return materialize.ToSlice(ctx, x, mapper, set.CapacityHint())
	})
}

// QuerySnapshot is Query returning a sealed Snapshot.
func QuerySnapshot[T any](ctx context.Context, c *Client, set params.Set, mapper materialize.Mapper[T]) (*materialize.Snapshot[T], error) {
	return cached(ctx, c, set, func(x *exec.Execution) (*materialize.Snapshot[T], error) {
		return materialize.ToSnapshot(ctx, x, mapper, set.CapacityHint())
	})
}

// QueryFirst runs set and maps the first row of its first result set. It
// returns ErrNoRows if that set is empty; an empty result is never cached.
func QueryFirst[T any](ctx context.Context, c *Client, set params.Set, mapper materialize.Mapper[T]) (T, error) {
	return cached(ctx, c, set, func(x *exec.Execution) (T, error) {
		v, ok, err := materialize.First(ctx, x, mapper)
		if err != nil {
			return v, err
		}
		if !ok {
			return v, ErrNoRows
		}
		return v, nil
	})
}

// QueryTables runs set and reads every result set as untyped rows. Values
// served from the Distributed tier come back as decoded JSON (numbers as
// float64, blobs as base64 strings).
func QueryTables(ctx context.Context, c *Client, set params.Set) ([]materialize.Table, error) {
	return cached(ctx, c, set, func(x *exec.Execution) ([]materialize.Table, error) {
		return materialize.ReadTables(ctx, x, set.CapacityHint())
	})
}

// cached wraps read with the cache fast path and the cache store.
func cached[R any](ctx context.Context, c *Client, set params.Set, read func(*exec.Execution) (R, error)) (R, error) {
	var out R
	if err := set.Validate(); err != nil {
		return out, err
	}

	d, hasCache := set.Cache()
	if hasCache {
		if v, ok := cache.Get[R](ctx, c.cache, d); ok {
			return v, nil
		}
	}

	err := c.run(ctx, set, func(x *exec.Execution) error {
		v, err := read(x)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if errors.Is(err, ErrNoRows) {
		var zero R
		return zero, ErrNoRows
	}
	if err != nil {
		var zero R
		return zero, err
	}

	if hasCache {
		cache.Put(ctx, c.cache, d, out)
	}
	return out, nil
}

// multiEntry is the cached form of a QueryMultiple result.
type multiEntry struct {
	Tags []string          `json:"tags"`
	Sets []json.RawMessage `json:"sets"`
}

// QueryMultiple runs set and reads one result set into each target, in
// order. A procedure returning fewer sets leaves the remaining targets
// empty.
//
// With a cache directive the targets' rows are cached together, encoded as
// JSON, so every hit decodes a fresh copy. A cached entry read by targets of
// different row types is a miss.
func QueryMultiple(ctx context.Context, c *Client, set params.Set, targets ...materialize.ResultSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	d, hasCache := set.Cache()
	if hasCache {
		if e, ok := cache.Get[multiEntry](ctx, c.cache, d); ok && restore(e, targets) {
			return nil
		}
	}

	if err := c.run(ctx, set, func(x *exec.Execution) error {
		return materialize.ReadAll(ctx, x, set.CapacityHint(), targets...)
	}); err != nil {
		return err
	}

	if hasCache {
		if e, err := capture(targets); err != nil {
			c.logger.WithField("err", err).Warn("result sets do not encode; not caching")
		} else {
			cache.Put(ctx, c.cache, d, e)
		}
	}
	return nil
}

func capture(targets []materialize.ResultSet) (multiEntry, error) {
	e := multiEntry{Tags: make([]string, len(targets)), Sets: make([]json.RawMessage, len(targets))}
	for i, t := range targets {
		data, err := t.MarshalRows()
		if err != nil {
			return multiEntry{}, fmt.Errorf("result set %d: %w", i, err)
		}
		e.Tags[i] = t.Tag()
		e.Sets[i] = data
	}
	return e, nil
}

// restore decodes e into targets. It decodes nothing unless every tag
// matches, and reports whether all targets were filled.
func restore(e multiEntry, targets []materialize.ResultSet) bool {
	if len(e.Tags) != len(targets) || len(e.Sets) != len(targets) {
		return false
	}
	for i, t := range targets {
		if e.Tags[i] != t.Tag() {
			return false
		}
	}
	for i, t := range targets {
		if err := t.UnmarshalRows(e.Sets[i]); err != nil {
			return false
		}
	}
	return true
}

// Stream runs set and returns a lazy stream over its first result set. The
// stream owns the connection and releases it when exhausted, failed or
// closed. Errors that end the stream are attributed to the procedure like
// any other call, and the call is timed until the stream ends. Streams
// bypass the cache.
func Stream[T any](ctx context.Context, c *Client, set params.Set, mapper materialize.Mapper[T]) (*materialize.Stream[T], error) {
	start := time.Now()
	x, err := c.executor.Execute(ctx, set)
	if err != nil {
		c.observe(set, start, err)
		return nil, err
	}
	return materialize.NewStream(x, mapper, x,
		materialize.WithErrorWrap(func(err error) error { return attribute(set, err) }),
		materialize.OnEnd(func(err error) { c.observe(set, start, err) }),
	), nil
}

// Exec runs set for its side effects, draining every result set so errors
// raised late in the procedure surface. Exec never consults the cache.
func Exec(ctx context.Context, c *Client, set params.Set) error {
	return c.run(ctx, set, func(x *exec.Execution) error {
		return materialize.Drain(ctx, x)
	})
}
