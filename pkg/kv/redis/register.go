package redis

import (
	"errors"

	"github.com/yatube/yatube-backend/pkg/kv"
)

var errNoURL = errors.New("kv: the redis backend needs a RedisURL")

func init() {
	kv.RegisterBackend(kv.BackendRedis, func(cfg kv.Config) (kv.Store, error) {
		if cfg.RedisURL == "" {
			return nil, errNoURL
		}
		return New(cfg.RedisURL)
	})
}
