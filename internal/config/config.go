// Package config loads sproc configuration from YAML files.
//
// A file is first checked against an embedded CUE schema, then decoded over
// Default with unknown fields rejected, then validated as a whole.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sproc/internal/cache"
	"github.com/roach88/sproc/internal/procsql"
)

//go:embed schema.cue
var schemaCUE string

// Distributed cache backends.
const (
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendEtcd  = "etcd"
)

// Config is the complete sproc configuration.
type Config struct {
	// Driver is the database/sql driver name ("sqlite3", "postgres").
	Driver string `yaml:"driver"`

	// DSN is the data source name passed to sql.Open.
	DSN string `yaml:"dsn"`

	// Dialect renders procedure calls; see procsql.ByName.
	Dialect string `yaml:"dialect"`

	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// CacheConfig configures the cache tiers.
type CacheConfig struct {
	Timed       TimedConfig       `yaml:"timed"`
	Distributed DistributedConfig `yaml:"distributed"`
}

// TimedConfig configures the in-memory timed tier.
type TimedConfig struct {
	Capacity int `yaml:"capacity"`
}

// DistributedConfig configures the network tier.
type DistributedConfig struct {
	Backend string        `yaml:"backend"`
	Addrs   []string      `yaml:"addrs"`
	Prefix  string        `yaml:"prefix"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Driver:  "sqlite3",
		DSN:     "sproc.db",
		Dialect: "sqlite",
		Cache: CacheConfig{
			Timed: TimedConfig{Capacity: cache.DefaultTimedCapacity},
			Distributed: DistributedConfig{
				Backend: BackendNone,
				Prefix:  "sproc",
				Timeout: cache.DefaultOpTimeout,
			},
		},
		Log: LogConfig{Level: "warn", Format: "text"},
	}
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses YAML config data over Default. Empty data yields Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	if err := checkSchema(data); err != nil {
		return Config{}, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// checkSchema unifies the YAML document with #Config.
func checkSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	v := schema.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints. Flag overrides are applied to a
// loaded Config before calling it again.
func (c Config) Validate() error {
	if c.Driver == "" {
		return errors.New("driver is required")
	}
	if _, err := procsql.ByName(c.Dialect); err != nil {
		return err
	}
	if c.Cache.Timed.Capacity < 1 {
		return fmt.Errorf("cache.timed.capacity must be positive, got %d", c.Cache.Timed.Capacity)
	}

	d := c.Cache.Distributed
	switch d.Backend {
	case BackendNone:
	case BackendRedis, BackendEtcd:
		if len(d.Addrs) == 0 {
			return fmt.Errorf("cache.distributed.addrs is required for backend %q", d.Backend)
		}
	default:
		return fmt.Errorf("unknown cache.distributed.backend %q", d.Backend)
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("cache.distributed.timeout must be positive, got %s", d.Timeout)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json", "color":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
