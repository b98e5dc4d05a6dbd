// Package kvtest provides conformance tests for kv.Store implementations
package kvtest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yatube/yatube-backend/pkg/kv"
)

// StoreFactory creates a fresh Store instance for testing
type StoreFactory func(t *testing.T) kv.Store

// RunConformanceTests runs all conformance tests against a Store implementation
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, store kv.Store)
	}{
		{"SetGet", testSetGet},
		{"GetMissing", testGetMissing},
		{"Overwrite", testOverwrite},
		{"Del", testDel},
		{"Exists", testExists},
		{"SetWithTTL", testSetWithTTL},
		{"Expire", testExpire},
		{"TTL", testTTL},
		{"Sets", testSets},
		{"SetMissing", testSetMissing},
		{"DelSet", testDelSet},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			tt.test(t, store)
		})
	}
}

func testSetGet(t *testing.T, store kv.Store) {
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test:string", []byte("hello world")))

	got, err := store.Get(ctx, "test:string")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)
}

func testGetMissing(t *testing.T, store kv.Store) {
	_, err := store.Get(context.Background(), "test:missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testOverwrite(t *testing.T, store kv.Store) {
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test:over", []byte("one"), time.Minute))
	require.NoError(t, store.Set(ctx, "test:over", []byte("two")))

	got, err := store.Get(ctx, "test:over")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	ttl, err := store.TTL(ctx, "test:over")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "plain Set clears a previous TTL")
}

func testDel(t *testing.T, store kv.Store) {
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test:del1", []byte("a")))
	require.NoError(t, store.Set(ctx, "test:del2", []byte("b")))

	n, err := store.Del(ctx, "test:del1", "test:del2", "test:del3")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = store.Get(ctx, "test:del1")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testExists(t *testing.T, store kv.Store) {
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test:exists", []byte("a")))

	n, err := store.Exists(ctx, "test:exists", "test:nope")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func testSetWithTTL(t *testing.T, store kv.Store) {
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test:ttl", []byte("short"), 100*time.Millisecond))

	_, err := store.Get(ctx, "test:ttl")
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)

	_, err = store.Get(ctx, "test:ttl")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	n, err := store.Exists(ctx, "test:ttl")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testExpire(t *testing.T, store kv.Store) {
	ctx := context.Background()

	ok, err := store.Expire(ctx, "test:expire-missing", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "test:expire", []byte("v")))
	ok, err = store.Expire(ctx, "test:expire", 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(250 * time.Millisecond)
	_, err = store.Get(ctx, "test:expire")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testTTL(t *testing.T, store kv.Store) {
	ctx := context.Background()

	_, err := store.TTL(ctx, "test:ttl-missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, store.Set(ctx, "test:ttl-forever", []byte("v")))
	ttl, err := store.TTL(ctx, "test:ttl-forever")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)

	require.NoError(t, store.Set(ctx, "test:ttl-minute", []byte("v"), time.Minute))
	ttl, err = store.TTL(ctx, "test:ttl-minute")
	require.NoError(t, err)
	assert.True(t, ttl > 50*time.Second && ttl <= time.Minute, "ttl=%s", ttl)
}

func sorted(members [][]byte) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = string(m)
	}
	sort.Strings(out)
	return out
}

func testSets(t *testing.T, store kv.Store) {
	ctx := context.Background()

	n, err := store.SAdd(ctx, "test:set", []byte("a"), []byte("b"), []byte("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = store.SAdd(ctx, "test:set", []byte("b"), []byte("c"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	members, err := store.SMembers(ctx, "test:set")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sorted(members))

	ok, err := store.SIsMember(ctx, "test:set", []byte("b"))
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = store.SRem(ctx, "test:set", []byte("b"), []byte("zzz"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ok, err = store.SIsMember(ctx, "test:set", []byte("b"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func testSetMissing(t *testing.T, store kv.Store) {
	ctx := context.Background()

	_, err := store.SMembers(ctx, "test:set-missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	ok, err := store.SIsMember(ctx, "test:set-missing", []byte("x"))
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.SRem(ctx, "test:set-missing", []byte("x"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDelSet(t *testing.T, store kv.Store) {
	ctx := context.Background()

	_, err := store.SAdd(ctx, "test:set-del", []byte("a"))
	require.NoError(t, err)

	n, err := store.Del(ctx, "test:set-del")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.SMembers(ctx, "test:set-del")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testPing(t *testing.T, store kv.Store) {
	assert.NoError(t, store.Ping(context.Background()))
}
