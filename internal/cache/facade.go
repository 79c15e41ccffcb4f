package cache

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/sproc/internal/metrics"
	"github.com/roach88/sproc/internal/params"
)

// Facade routes lookups and stores to the tier a CacheDirective names.
//
// A Facade without a distributed store treats the Distributed tier as
// unavailable: lookups miss and stores are skipped.
type Facade struct {
	frozen      *Frozen
	timed       *Timed
	distributed *Distributed
	logger      log.FieldLogger
}

// Option configures a Facade.
type Option func(*Facade)

// WithFrozen sets the Frozen store.
func WithFrozen(f *Frozen) Option { return func(c *Facade) { c.frozen = f } }

// WithTimed sets the Timed store.
func WithTimed(t *Timed) Option { return func(c *Facade) { c.timed = t } }

// WithDistributed sets the Distributed store.
func WithDistributed(d *Distributed) Option { return func(c *Facade) { c.distributed = d } }

// WithLogger sets the logger for cache events.
func WithLogger(l log.FieldLogger) Option { return func(c *Facade) { c.logger = l } }

// NewFacade returns a Facade with a fresh Frozen store and a Timed store of
// DefaultTimedCapacity, unless overridden by opts.
func NewFacade(opts ...Option) *Facade {
	c := &Facade{logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	if c.frozen == nil {
		c.frozen = NewFrozen()
	}
	if c.timed == nil {
		// Only fails for a non-positive size.
		c.timed, _ = NewTimed(DefaultTimedCapacity)
	}
	return c
}

// Frozen returns the Frozen store.
func (c *Facade) Frozen() *Frozen { return c.frozen }

// Timed returns the Timed store.
func (c *Facade) Timed() *Timed { return c.timed }

// Get returns the value cached under d if present with type T. Absent keys,
// type mismatches, invalid directives and unavailable tiers are all misses.
func Get[T any](ctx context.Context, c *Facade, d params.CacheDirective) (T, bool) {
	v, ok := get[T](ctx, c, d)

	result := metrics.Miss
	if ok {
		result = metrics.Hit
	}
	metrics.CacheRequestsTotal.WithLabelValues(string(d.Tier()), result).Inc()
	c.logger.WithFields(log.Fields{"tier": d.Tier(), "key": d.Key(), "result": result}).Debug("cache lookup")
	return v, ok
}

func get[T any](ctx context.Context, c *Facade, d params.CacheDirective) (v T, ok bool) {
	if d.Validate() != nil {
		return v, false
	}
	tag := TypeTag[T]()

	var e Entry
	switch d.Tier() {
	case params.TierFrozen:
		e, ok = c.frozen.Get(d.Key())
	case params.TierTimed:
		e, ok = c.timed.Get(d.Key())
	case params.TierDistributed:
		if c.distributed == nil {
			return v, false
		}
		ok = c.distributed.Load(ctx, d.Key(), tag, &v)
		return v, ok
	}
	if !ok || e.Tag != tag {
		return v, false
	}
	v, ok = e.Value.(T)
	return v, ok
}

// Put stores v under d. It reports whether the value was stored: false for
// an invalid directive, an unavailable or failing tier, or a Frozen key that
// already holds a value. Put never fails the caller.
func Put[T any](ctx context.Context, c *Facade, d params.CacheDirective, v T) bool {
	ok := put(ctx, c, d, v)

	result := metrics.Skipped
	if ok {
		result = metrics.Ok
	}
	metrics.CacheStoresTotal.WithLabelValues(string(d.Tier()), result).Inc()
	c.logger.WithFields(log.Fields{"tier": d.Tier(), "key": d.Key(), "result": result}).Debug("cache store")
	return ok
}

func put[T any](ctx context.Context, c *Facade, d params.CacheDirective, v T) bool {
	if d.Validate() != nil {
		return false
	}
	e := Entry{Tag: TypeTag[T](), Value: v}
	ttl, _ := d.Expiration()

	switch d.Tier() {
	case params.TierFrozen:
		return c.frozen.Store(d.Key(), e)
	case params.TierTimed:
		c.timed.Store(d.Key(), e, ttl)
		return true
	case params.TierDistributed:
		if c.distributed == nil {
			return false
		}
		return c.distributed.Store(ctx, d.Key(), e.Tag, v, ttl)
	}
	return false
}
