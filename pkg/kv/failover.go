package kv

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// LogFunc is a function type for structured logging
type LogFunc func(msg string, fields ...any)

// FailoverStore serves from primary until it reports ErrBackendUnavailable,
// then from fallback while a background ping loop waits for primary to answer
// Ping again.
type FailoverStore struct {
	primary       Store
	fallback      Store
	onFallback    atomic.Bool
	retryInterval time.Duration
	logger        LogFunc

	mu       sync.Mutex
	watching bool
	closed   chan struct{}
	wg       sync.WaitGroup
}

// NewFailoverStore creates a failover store that starts on primary.
func NewFailoverStore(primary, fallback Store, retryInterval time.Duration, logger LogFunc) *FailoverStore {
	if logger == nil {
		logger = func(string, ...any) {}
	}
	return &FailoverStore{
		primary:       primary,
		fallback:      fallback,
		retryInterval: retryInterval,
		logger:        logger,
		closed:        make(chan struct{}),
	}
}

func (fs *FailoverStore) active() Store {
	if fs.onFallback.Load() {
		return fs.fallback
	}
	return fs.primary
}

// demote switches to the fallback store and starts pinging primary.
func (fs *FailoverStore) demote() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.onFallback.Swap(true) {
		return
	}
	fs.logger("Failing over to in-memory store", "reason", "primary_unavailable")

	select {
	case <-fs.closed:
		return
	default:
	}
	if fs.watching {
		return
	}
	fs.watching = true
	fs.wg.Add(1)
	go fs.watchPrimary()
}

func (fs *FailoverStore) watchPrimary() {
	defer fs.wg.Done()

	ticker := time.NewTicker(fs.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-fs.closed:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), fs.retryInterval/2)
			err := fs.primary.Ping(ctx)
			cancel()
			if err != nil {
				continue
			}

			fs.mu.Lock()
			fs.watching = false
			fs.onFallback.Store(false)
			fs.mu.Unlock()
			fs.logger("Recovered to primary store", "reason", "primary_healthy")
			return
		}
	}
}

// run executes fn on the active store and retries once on fallback when
// primary turns out to be unreachable.
func run[T any](fs *FailoverStore, fn func(Store) (T, error)) (T, error) {
	store := fs.active()
	res, err := fn(store)
	if store == fs.primary && errors.Is(err, ErrBackendUnavailable) {
		fs.demote()
		return fn(fs.fallback)
	}
	return res, err
}

func (fs *FailoverStore) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	_, err := run(fs, func(s Store) (struct{}, error) {
		return struct{}{}, s.Set(ctx, key, value, ttl...)
	})
	return err
}

func (fs *FailoverStore) Get(ctx context.Context, key string) ([]byte, error) {
	return run(fs, func(s Store) ([]byte, error) { return s.Get(ctx, key) })
}

func (fs *FailoverStore) Del(ctx context.Context, keys ...string) (int64, error) {
	return run(fs, func(s Store) (int64, error) { return s.Del(ctx, keys...) })
}

func (fs *FailoverStore) Exists(ctx context.Context, keys ...string) (int64, error) {
	return run(fs, func(s Store) (int64, error) { return s.Exists(ctx, keys...) })
}

func (fs *FailoverStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return run(fs, func(s Store) (bool, error) { return s.Expire(ctx, key, ttl) })
}

func (fs *FailoverStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return run(fs, func(s Store) (time.Duration, error) { return s.TTL(ctx, key) })
}

func (fs *FailoverStore) SAdd(ctx context.Context, key string, members ...[]byte) (int64, error) {
	return run(fs, func(s Store) (int64, error) { return s.SAdd(ctx, key, members...) })
}

func (fs *FailoverStore) SRem(ctx context.Context, key string, members ...[]byte) (int64, error) {
	return run(fs, func(s Store) (int64, error) { return s.SRem(ctx, key, members...) })
}

func (fs *FailoverStore) SMembers(ctx context.Context, key string) ([][]byte, error) {
	return run(fs, func(s Store) ([][]byte, error) { return s.SMembers(ctx, key) })
}

func (fs *FailoverStore) SIsMember(ctx context.Context, key string, member []byte) (bool, error) {
	return run(fs, func(s Store) (bool, error) { return s.SIsMember(ctx, key, member) })
}

// Ping reports the health of the active store.
func (fs *FailoverStore) Ping(ctx context.Context) error {
	return fs.active().Ping(ctx)
}

// ActiveBackend returns "primary" or "fallback".
func (fs *FailoverStore) ActiveBackend() string {
	if fs.onFallback.Load() {
		return "fallback"
	}
	return "primary"
}

// Close stops pinging primary and closes both stores.
func (fs *FailoverStore) Close() error {
	fs.mu.Lock()
	select {
	case <-fs.closed:
		fs.mu.Unlock()
		return nil
	default:
		close(fs.closed)
	}
	fs.mu.Unlock()
	fs.wg.Wait()

	return errors.Join(fs.primary.Close(), fs.fallback.Close())
}
