package kv

import (
	"context"
	"fmt"
	"time"
)

// Backend represents the storage backend type
type Backend string

const (
	// BackendMemory uses the in-memory store
	BackendMemory Backend = "memory"
	// BackendRedis uses Redis as the backend
	BackendRedis Backend = "redis"
)

// Config holds configuration for creating a Store instance
type Config struct {
	Backend Backend

	// RedisURL is required for the redis backend, e.g. redis://localhost:6379/0.
	RedisURL string

	// JanitorInterval controls how often the in-memory store evicts expired
	// keys. Default: 30 seconds.
	JanitorInterval time.Duration

	// DisableFailover makes an unreachable Redis a startup error instead of
	// silently serving from memory.
	DisableFailover bool

	// RetryInterval controls how often Redis is pinged after a failover.
	// Default: 5 seconds.
	RetryInterval time.Duration

	// StartupPingTimeout bounds the first Redis ping. Default: 1 second.
	StartupPingTimeout time.Duration

	// Logger receives failover events. If nil, nothing is logged.
	Logger LogFunc
}

// StoreFactory defines a function that creates a Store instance
type StoreFactory func(cfg Config) (Store, error)

var factories = make(map[Backend]StoreFactory)

// RegisterBackend registers a store factory for a given backend
func RegisterBackend(backend Backend, factory StoreFactory) {
	factories[backend] = factory
}

func (cfg *Config) applyDefaults() {
	if cfg.JanitorInterval == 0 {
		cfg.JanitorInterval = 30 * time.Second
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.StartupPingTimeout == 0 {
		cfg.StartupPingTimeout = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = func(string, ...any) {}
	}
}

func build(backend Backend, cfg Config) (Store, error) {
	factory, ok := factories[backend]
	if !ok {
		return nil, fmt.Errorf("%s backend not registered", backend)
	}
	return factory(cfg)
}

// NewStoreFromConfig creates a new Store instance based on the provided configuration
func NewStoreFromConfig(cfg Config) (Store, error) {
	cfg.applyDefaults()

	switch cfg.Backend {
	case BackendMemory:
		return build(BackendMemory, cfg)
	case BackendRedis:
		return newRedisWithFailover(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: %s, %s)",
			cfg.Backend, BackendMemory, BackendRedis)
	}
}

func newRedisWithFailover(cfg Config) (Store, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required when backend is 'redis'")
	}

	primary, err := build(BackendRedis, cfg)
	if err != nil {
		if cfg.DisableFailover {
			return nil, err
		}
		cfg.Logger("Redis unavailable at startup; using in-memory store", "error", err.Error())
		return build(BackendMemory, cfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StartupPingTimeout)
	defer cancel()
	pingErr := primary.Ping(ctx)

	if cfg.DisableFailover {
		if pingErr != nil {
			primary.Close()
			return nil, fmt.Errorf("redis ping: %w", pingErr)
		}
		return primary, nil
	}

	fallback, err := build(BackendMemory, cfg)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("failed to create memory store for failover: %w", err)
	}

	fs := NewFailoverStore(primary, fallback, cfg.RetryInterval, cfg.Logger)
	if pingErr != nil {
		cfg.Logger("Redis unhealthy at startup; using in-memory store (will retry in background)",
			"error", pingErr.Error())
		fs.demote()
	} else {
		cfg.Logger("Redis healthy at startup; using Redis with in-memory failover")
	}
	return fs, nil
}
