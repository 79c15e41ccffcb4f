package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultOpTimeout bounds each distributed cache round trip.
const DefaultOpTimeout = 250 * time.Millisecond

// ErrNotFound is returned by a Backend for a missing key.
var ErrNotFound = errors.New("cache: key not found")

// Backend is a network key/value store. Implementations return ErrNotFound
// for a missing key. A zero ttl stores without expiration.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// envelope is the serialized form of a distributed entry.
type envelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Distributed adapts a Backend to tagged JSON entries.
//
// Load and Store never fail: backend, timeout and serialization errors are
// logged at warn and reported as a miss or a skipped store.
type Distributed struct {
	backend Backend
	timeout time.Duration
	logger  log.FieldLogger
}

// DistributedOption configures a Distributed store.
type DistributedOption func(*Distributed)

// WithOpTimeout bounds each backend call. Non-positive values keep the
// default.
func WithOpTimeout(d time.Duration) DistributedOption {
	return func(s *Distributed) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDistributedLogger sets the logger for downgraded failures.
func WithDistributedLogger(l log.FieldLogger) DistributedOption {
	return func(s *Distributed) { s.logger = l }
}

// NewDistributed returns a Distributed store over backend.
func NewDistributed(backend Backend, opts ...DistributedOption) *Distributed {
	d := &Distributed{
		backend: backend,
		timeout: DefaultOpTimeout,
		logger:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load decodes the entry under key into dst, which must be a pointer. It
// reports a miss if the key is absent, was stored under a different tag, or
// cannot be read.
func (d *Distributed) Load(ctx context.Context, key, tag string, dst any) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	raw, err := d.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	} else if err != nil {
		d.warn(key, "distributed cache get failed", err)
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.warn(key, "distributed cache entry is malformed", err)
		return false
	}
	if env.Type != tag {
		return false
	}
	if err := json.Unmarshal(env.Value, dst); err != nil {
		d.warn(key, "distributed cache value does not decode", err)
		return false
	}
	return true
}

// Store encodes value under key with tag, expiring after ttl (zero for none).
// It reports whether the backend accepted the write.
func (d *Distributed) Store(ctx context.Context, key, tag string, value any, ttl time.Duration) bool {
	raw, err := encode(tag, value)
	if err != nil {
		d.warn(key, "distributed cache value does not encode", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.backend.Set(ctx, key, raw, ttl); err != nil {
		d.warn(key, "distributed cache set failed", err)
		return false
	}
	return true
}

func encode(tag string, value any) ([]byte, error) {
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(envelope{Type: tag, Value: v})
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	return raw, nil
}

func (d *Distributed) warn(key, msg string, err error) {
	d.logger.WithFields(log.Fields{"tier": "distributed", "key": key, "err": err}).Warn(msg)
}
