package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is missing or expired.
var ErrNotFound = errors.New("not found")

// ErrBackendUnavailable is returned when the backend storage is unavailable
var ErrBackendUnavailable = errors.New("backend unavailable")

// Store is the subset of Redis semantics the application relies on: byte
// values with optional TTL for sessions and cached pages, and sets for
// tracking groups of keys.
type Store interface {
	// Set stores value under key. A positive ttl makes the key expire.
	Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)

	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns the remaining lifetime, -1 for a key without expiry and
	// ErrNotFound for a missing key.
	TTL(ctx context.Context, key string) (time.Duration, error)

	SAdd(ctx context.Context, key string, members ...[]byte) (int64, error)
	SRem(ctx context.Context, key string, members ...[]byte) (int64, error)
	// SMembers returns ErrNotFound for a missing set.
	SMembers(ctx context.Context, key string) ([][]byte, error)
	SIsMember(ctx context.Context, key string, member []byte) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}
