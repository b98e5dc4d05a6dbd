package kv

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps plain values in a map and can be switched off to simulate
// an unreachable backend.
type fakeStore struct {
	mu     sync.Mutex
	values map[string][]byte
	down   atomic.Bool
	calls  atomic.Int64
	closed atomic.Bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string][]byte)}
}

func (f *fakeStore) check() error {
	f.calls.Add(1)
	if f.down.Load() {
		return ErrBackendUnavailable
	}
	return nil
}

func (f *fakeStore) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	if err := f.check(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Exists(ctx context.Context, keys ...string) (int64, error) {
	return 0, f.check()
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, f.check()
}

func (f *fakeStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return -1, f.check()
}

func (f *fakeStore) SAdd(ctx context.Context, key string, members ...[]byte) (int64, error) {
	return int64(len(members)), f.check()
}

func (f *fakeStore) SRem(ctx context.Context, key string, members ...[]byte) (int64, error) {
	return 0, f.check()
}

func (f *fakeStore) SMembers(ctx context.Context, key string) ([][]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

func (f *fakeStore) SIsMember(ctx context.Context, key string, member []byte) (bool, error) {
	return false, f.check()
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.down.Load() {
		return ErrBackendUnavailable
	}
	return nil
}

func (f *fakeStore) Close() error {
	f.closed.Store(true)
	return nil
}

func TestFailoverStore_BasicFailover(t *testing.T) {
	ctx := context.Background()
	primary, fallback := newFakeStore(), newFakeStore()
	fs := NewFailoverStore(primary, fallback, time.Hour, nil)
	defer fs.Close()

	require.NoError(t, fs.Set(ctx, "k", []byte("primary")))
	assert.Equal(t, "primary", fs.ActiveBackend())

	primary.down.Store(true)
	require.NoError(t, fs.Set(ctx, "k", []byte("fallback")))
	assert.Equal(t, "fallback", fs.ActiveBackend())

	got, err := fs.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "fallback", string(got))

	before := primary.calls.Load()
	_, _ = fs.Get(ctx, "k")
	assert.Equal(t, before, primary.calls.Load(), "primary must not be called while failed over")
}

func TestFailoverStore_Recovery(t *testing.T) {
	ctx := context.Background()
	primary, fallback := newFakeStore(), newFakeStore()
	fs := NewFailoverStore(primary, fallback, 20*time.Millisecond, nil)
	defer fs.Close()

	primary.down.Store(true)
	require.NoError(t, fs.Set(ctx, "k", []byte("v")))
	require.Equal(t, "fallback", fs.ActiveBackend())

	primary.down.Store(false)
	assert.Eventually(t, func() bool { return fs.ActiveBackend() == "primary" },
		time.Second, 10*time.Millisecond)

	_, err := fs.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailoverStore_NoFailoverOnNotFound(t *testing.T) {
	primary, fallback := newFakeStore(), newFakeStore()
	fs := NewFailoverStore(primary, fallback, time.Hour, nil)
	defer fs.Close()

	_, err := fs.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "primary", fs.ActiveBackend())
	assert.Zero(t, fallback.calls.Load())
}

func TestFailoverStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	primary, fallback := newFakeStore(), newFakeStore()
	fs := NewFailoverStore(primary, fallback, 10*time.Millisecond, nil)
	defer fs.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i == 10 {
				primary.down.Store(true)
			}
			assert.NoError(t, fs.Set(ctx, "k", []byte("v")))
		}(i)
	}
	wg.Wait()
}

func TestFailoverStore_CloseClosesBoth(t *testing.T) {
	primary, fallback := newFakeStore(), newFakeStore()
	fs := NewFailoverStore(primary, fallback, 10*time.Millisecond, nil)

	primary.down.Store(true)
	require.NoError(t, fs.Set(context.Background(), "k", []byte("v")))

	require.NoError(t, fs.Close())
	assert.True(t, primary.closed.Load())
	assert.True(t, fallback.closed.Load())
	assert.NoError(t, fs.Close())
}

func TestFailoverStore_LogsTransitions(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	logger := func(msg string, _ ...any) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, msg)
	}

	primary, fallback := newFakeStore(), newFakeStore()
	fs := NewFailoverStore(primary, fallback, 10*time.Millisecond, logger)
	defer fs.Close()

	primary.down.Store(true)
	require.NoError(t, fs.Set(context.Background(), "k", []byte("v")))
	primary.down.Store(false)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(messages) == 2
	}, time.Second, 10*time.Millisecond)
}
