package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yatube/yatube-backend/pkg/kv"
)

// Store is a Redis-backed implementation of the kv.Store interface
type Store struct {
	client *redis.Client
}

var connectionErrors = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"connection closed",
	"EOF",
}

// IsConnectionError reports whether err means Redis could not be reached,
// as opposed to a missing key or a cancelled caller.
func IsConnectionError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED, syscall.ETIMEDOUT:
			return true
		}
	}

	msg := err.Error()
	for _, s := range connectionErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func wrap(err error) error {
	if IsConnectionError(err) {
		return fmt.Errorf("%w: %v", kv.ErrBackendUnavailable, err)
	}
	return err
}

// New creates a Redis-backed store. A bare host:port is accepted as well as
// a redis:// URL. No connection is made until the first command.
func New(redisURL string) (*Store, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Store{client: redis.NewClient(opt)}, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	var expiration time.Duration
	if len(ttl) > 0 && ttl[0] > 0 {
		expiration = ttl[0]
	}
	return wrap(s.client.Set(ctx, key, value, expiration).Err())
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return result, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Del(ctx, keys...).Result()
	return n, wrap(err)
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Exists(ctx, keys...).Result()
	return n, wrap(err)
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	return ok, wrap(err)
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, wrap(err)
	}
	// go-redis reports -2 (missing) and -1 (no expiry) as raw nanoseconds.
	switch ttl {
	case -2, -2 * time.Second:
		return 0, kv.ErrNotFound
	case -1, -1 * time.Second:
		return -1, nil
	}
	return ttl, nil
}

func toArgs(members [][]byte) []any {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}

func (s *Store) SAdd(ctx context.Context, key string, members ...[]byte) (int64, error) {
	n, err := s.client.SAdd(ctx, key, toArgs(members)...).Result()
	return n, wrap(err)
}

func (s *Store) SRem(ctx context.Context, key string, members ...[]byte) (int64, error) {
	n, err := s.client.SRem(ctx, key, toArgs(members)...).Result()
	return n, wrap(err)
}

// SMembers returns kv.ErrNotFound for a missing key; Redis has no empty sets.
func (s *Store) SMembers(ctx context.Context, key string) ([][]byte, error) {
	result, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrap(err)
	}
	if len(result) == 0 {
		return nil, kv.ErrNotFound
	}

	members := make([][]byte, len(result))
	for i, m := range result {
		members[i] = []byte(m)
	}
	return members, nil
}

func (s *Store) SIsMember(ctx context.Context, key string, member []byte) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	return ok, wrap(err)
}

// Ping checks if Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return wrap(s.client.Ping(ctx).Err())
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
