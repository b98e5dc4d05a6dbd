package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yatube/yatube-backend/pkg/kv"
)

// KeySessionPrefix prefixes session keys in the kv store.
const KeySessionPrefix = "yatube:session:"

// ErrSessionNotFound is returned for unknown or expired session tokens.
var ErrSessionNotFound = errors.New("session not found")

// Sessions maps opaque tokens to user ids in a kv.Store. Every successful
// lookup pushes the expiry forward by the configured TTL.
type Sessions struct {
	kv  kv.Store
	ttl time.Duration
}

func NewSessions(store kv.Store, ttl time.Duration) *Sessions {
	return &Sessions{kv: store, ttl: ttl}
}

// TTL is the idle lifetime of a session.
func (s *Sessions) TTL() time.Duration { return s.ttl }

func sessionKey(token string) string { return KeySessionPrefix + token }

// Create starts a session for userID and returns its token.
func (s *Sessions) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.kv.Set(ctx, sessionKey(token), []byte(strconv.FormatInt(userID, 10)), s.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Lookup returns the user id behind token.
func (s *Sessions) Lookup(ctx context.Context, token string) (int64, error) {
	if _, err := uuid.Parse(token); err != nil {
		return 0, ErrSessionNotFound
	}

	data, err := s.kv.Get(ctx, sessionKey(token))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}

	userID, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, ErrSessionNotFound
	}

	if _, err := s.kv.Expire(ctx, sessionKey(token), s.ttl); err != nil {
		return 0, fmt.Errorf("refresh session: %w", err)
	}
	return userID, nil
}

// Destroy ends the session. Unknown tokens are ignored.
func (s *Sessions) Destroy(ctx context.Context, token string) error {
	if _, err := s.kv.Del(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
