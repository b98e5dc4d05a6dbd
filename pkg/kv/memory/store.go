package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yatube/yatube-backend/pkg/kv"
)

type entry struct {
	value     []byte
	set       map[string]struct{}
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is an in-memory implementation of the kv.Store interface. A key holds
// either a byte value or a set, never both.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time

	janitorInterval time.Duration
	janitorStop     chan struct{}
	janitorDone     chan struct{}
	closeOnce       sync.Once
}

// New creates a new in-memory store. A positive janitorInterval starts a
// goroutine that evicts expired keys; expired keys are never returned either way.
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		entries:         make(map[string]*entry),
		now:             time.Now,
		janitorInterval: janitorInterval,
		janitorStop:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor()
	} else {
		close(s.janitorDone)
	}
	return s
}

func (s *Store) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.janitorStop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

// lookup returns the live entry for key, dropping it if expired. Lock must be held.
func (s *Store) lookup(key string) (*entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil, false
	}
	return e, true
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{value: append([]byte(nil), value...)}
	if len(ttl) > 0 && ttl[0] > 0 {
		e.expiresAt = s.now().Add(ttl[0])
	}
	s.entries[key] = e
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.set != nil {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, key := range keys {
		if _, ok := s.lookup(key); ok {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, key := range keys {
		if _, ok := s.lookup(key); ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		delete(s.entries, key)
		return true, nil
	}
	e.expiresAt = s.now().Add(ttl)
	return true, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return 0, kv.ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return -1, nil
	}
	return e.expiresAt.Sub(s.now()), nil
}

// Set operations

func (s *Store) SAdd(ctx context.Context, key string, members ...[]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.set == nil {
		e = &entry{set: make(map[string]struct{})}
		s.entries[key] = e
	}

	var added int64
	for _, m := range members {
		if _, exists := e.set[string(m)]; !exists {
			e.set[string(m)] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (s *Store) SRem(ctx context.Context, key string, members ...[]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.set == nil {
		return 0, nil
	}

	var removed int64
	for _, m := range members {
		if _, exists := e.set[string(m)]; exists {
			delete(e.set, string(m))
			removed++
		}
	}
	if len(e.set) == 0 {
		delete(s.entries, key)
	}
	return removed, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.set == nil {
		return nil, kv.ErrNotFound
	}

	members := make([][]byte, 0, len(e.set))
	for m := range e.set {
		members = append(members, []byte(m))
	}
	return members, nil
}

func (s *Store) SIsMember(ctx context.Context, key string, member []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.set == nil {
		return false, nil
	}
	_, isMember := e.set[string(member)]
	return isMember, nil
}

// Ping always returns nil for the in-memory store (always available)
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the background janitor and drops all data.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.janitorInterval > 0 {
			close(s.janitorStop)
			<-s.janitorDone
		}

		s.mu.Lock()
		s.entries = make(map[string]*entry)
		s.mu.Unlock()
	})
	return nil
}
