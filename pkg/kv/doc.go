// Package kv provides a small Redis-like key-value store abstraction with
// in-memory and Redis-backed implementations.
//
// Sessions and the whole-page cache are stored here. Backends register
// themselves from their init functions, so callers blank-import the ones
// they want:
//
//	import (
//		_ "github.com/yatube/yatube-backend/pkg/kv/memory"
//		_ "github.com/yatube/yatube-backend/pkg/kv/redis"
//	)
//
//	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
// With the redis backend the store fails over to memory while Redis is
// unreachable and returns to Redis once a ping succeeds.
package kv
