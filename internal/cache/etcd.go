package cache

import (
	"context"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdBackend stores entries in etcd under "<prefix>/<key>". Expiring
// entries are attached to a lease granted for the TTL.
//
// The client is created on first use. If creation fails the error is
// returned and creation is retried on the next call.
type EtcdBackend struct {
	cfg    clientv3.Config
	prefix string
	dial   func(clientv3.Config) (*clientv3.Client, error)

	mu     sync.Mutex
	client *clientv3.Client
}

var _ Backend = (*EtcdBackend)(nil)

// NewEtcdBackend returns a Backend dialing cfg lazily.
func NewEtcdBackend(cfg clientv3.Config, prefix string) *EtcdBackend {
	return &EtcdBackend{cfg: cfg, prefix: prefix, dial: clientv3.New}
}

func (e *EtcdBackend) key(k string) string {
	if e.prefix == "" {
		return k
	}
	return e.prefix + "/" + k
}

func (e *EtcdBackend) conn() (*clientv3.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}
	c, err := e.dial(e.cfg)
	if err != nil {
		return nil, err
	}
	e.client = c
	return c, nil
}

// Get implements Backend.
func (e *EtcdBackend) Get(ctx context.Context, key string) ([]byte, error) {
	c, err := e.conn()
	if err != nil {
		return nil, err
	}
	resp, err := c.Get(ctx, e.key(key))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}
	return resp.Kvs[0].Value, nil
}

// Set implements Backend.
func (e *EtcdBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c, err := e.conn()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		_, err = c.Put(ctx, e.key(key), string(value))
		return err
	}
	grant, err := c.Grant(ctx, leaseSeconds(ttl))
	if err != nil {
		return err
	}
	_, err = c.Put(ctx, e.key(key), string(value), clientv3.WithLease(grant.ID))
	return err
}

// Close closes the client, if one was created.
func (e *EtcdBackend) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// leaseSeconds rounds ttl up to whole seconds, the lease granularity.
func leaseSeconds(ttl time.Duration) int64 {
	s := int64((ttl + time.Second - 1) / time.Second)
	return max(s, 1)
}
