// Package store holds the whole-page cache. Rendered pages are kept in the
// kv store until their TTL runs out or Clear is called; writes to the
// database never touch them.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yatube/yatube-backend/internal/metrics"
	"github.com/yatube/yatube-backend/internal/util"
	"github.com/yatube/yatube-backend/pkg/kv"
)

// Cache key prefixes
const (
	KeyPagePrefix = "yatube:page:"
	KeyPageIndex  = "yatube:page:keys"
)

// ErrCacheMiss is returned by Get when no page is stored under the key.
var ErrCacheMiss = errors.New("cache miss")

// Page is a rendered response body.
type Page struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Cache stores rendered pages in a kv.Store.
type Cache struct {
	kv      kv.Store
	ttl     time.Duration
	flight  util.Group[*Page]
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewCache(store kv.Store, ttl time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cache{kv: store, ttl: ttl, logger: logger, metrics: m}
}

// Key builds the cache key for a viewer and request. Query parameters are
// sorted so ?a=1&b=2 and ?b=2&a=1 share an entry.
func Key(vary string, u *url.URL) string {
	return KeyPagePrefix + vary + ":" + u.Path + "?" + u.Query().Encode()
}

func (c *Cache) Get(ctx context.Context, key string) (*Page, error) {
	data, err := c.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return &p, nil
}

// Set stores the page and records its key so Clear can find it. The key
// index shares the pages' TTL, refreshed on every add, so it never outlives
// the newest page it names.
func (c *Cache) Set(ctx context.Context, key string, p *Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	if _, err := c.kv.SAdd(ctx, KeyPageIndex, []byte(key)); err != nil {
		return fmt.Errorf("cache index error: %w", err)
	}
	if c.ttl > 0 {
		if _, err := c.kv.Expire(ctx, KeyPageIndex, c.ttl); err != nil {
			return fmt.Errorf("cache index error: %w", err)
		}
	}
	return nil
}

// Clear deletes every cached page and returns how many were still live.
// Only the fetched members leave the index, so a page cached while Clear
// runs stays findable.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	members, err := c.kv.SMembers(ctx, KeyPageIndex)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache clear error: %w", err)
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, string(m))
	}

	n, err := c.kv.Del(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("cache clear error: %w", err)
	}
	if _, err := c.kv.SRem(ctx, KeyPageIndex, members...); err != nil {
		return 0, fmt.Errorf("cache clear error: %w", err)
	}
	c.logger.Infow("Page cache cleared", "pages", n)
	return n, nil
}

// Middleware serves GET requests from the cache. vary names the viewer so
// pages that differ per user are stored separately. Only 200 responses are
// cached; concurrent misses for one key render once.
func (c *Cache) Middleware(vary func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := Key(vary(r), r.URL)

			page, err := c.Get(ctx, key)
			if err == nil {
				c.metrics.RecordCacheHit(ctx, r.URL.Path)
				writePage(w, page)
				return
			}
			if !errors.Is(err, ErrCacheMiss) {
				c.logger.Warnw("Page cache unavailable", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			c.metrics.RecordCacheMiss(ctx, r.URL.Path)

			var rendered *capture
			page, err, _ = c.flight.Do(key, func() (*Page, error) {
				rendered = newCapture()
				next.ServeHTTP(rendered, r)
				if rendered.status != http.StatusOK {
					return nil, nil
				}
				p := &Page{ContentType: rendered.Header().Get("Content-Type"), Body: rendered.body.Bytes()}
				if err := c.Set(ctx, key, p); err != nil {
					c.logger.Warnw("Failed to cache page", "key", key, "error", err)
				}
				return p, nil
			})

			switch {
			case rendered != nil && page == nil:
				rendered.replay(w)
			case page != nil:
				writePage(w, page)
			default:
				// Shared a non-cacheable render from another request; produce our own.
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writePage(w http.ResponseWriter, p *Page) {
	if p.ContentType != "" {
		w.Header().Set("Content-Type", p.ContentType)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(p.Body)
}
