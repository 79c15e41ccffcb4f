package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/roach88/sproc/internal/access"
	"github.com/roach88/sproc/internal/cache"
	"github.com/roach88/sproc/internal/catalog"
	"github.com/roach88/sproc/internal/config"
	"github.com/roach88/sproc/internal/driver"
	"github.com/roach88/sproc/internal/procsql"
)

// runtime is the wired pipeline behind one CLI invocation.
type runtime struct {
	client  *access.Client
	catalog *catalog.Store // nil unless the dialect is sqlite
	closers []io.Closer
}

// openRuntime opens the database and cache backends described by cfg.
func openRuntime(cfg config.Config) (*runtime, error) {
	dialect, err := procsql.ByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	rt := &runtime{}
	var db *sql.DB
	if dialect.Name() == "sqlite" {
		store, err := catalog.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		rt.catalog = store
		rt.closers = append(rt.closers, store)
		db = store.DB()
	} else {
		if db, err = sql.Open(cfg.Driver, cfg.DSN); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		rt.closers = append(rt.closers, db)
	}

	facade, err := openCache(cfg.Cache, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.client = access.New(driver.NewSQLConnector(db, dialect), access.WithCache(facade))
	log.WithFields(log.Fields{
		"driver":  cfg.Driver,
		"dialect": dialect.Name(),
		"backend": cfg.Cache.Distributed.Backend,
	}).Debug("runtime ready")
	return rt, nil
}

func openCache(cfg config.CacheConfig, rt *runtime) (*cache.Facade, error) {
	timed, err := cache.NewTimed(cfg.Timed.Capacity)
	if err != nil {
		return nil, err
	}
	opts := []cache.Option{cache.WithTimed(timed)}

	d := cfg.Distributed
	var backend cache.Backend
	switch d.Backend {
	case config.BackendRedis:
		rb := cache.NewRedisBackendAddrs(d.Addrs, d.Prefix)
		rt.closers = append(rt.closers, rb)
		backend = rb
	case config.BackendEtcd:
		eb := cache.NewEtcdBackend(clientv3.Config{Endpoints: d.Addrs, DialTimeout: d.Timeout}, "/"+d.Prefix)
		rt.closers = append(rt.closers, eb)
		backend = eb
	}
	if backend != nil {
		opts = append(opts, cache.WithDistributed(cache.NewDistributed(backend, cache.WithOpTimeout(d.Timeout))))
	}
	return cache.NewFacade(opts...), nil
}

// requireCatalog returns the SQLite catalog or a command error.
func (rt *runtime) requireCatalog() (*catalog.Store, error) {
	if rt.catalog == nil {
		return nil, NewExitError(ExitCommandError, "the procedure catalog requires the sqlite dialect")
	}
	return rt.catalog, nil
}

// Close releases everything openRuntime acquired, in reverse order.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i].Close())
	}
	return errors.Join(errs...)
}
