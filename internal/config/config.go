package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	gdb "github.com/yatube/yatube-backend/internal/db"
	"github.com/yatube/yatube-backend/pkg/kv"
)

type Config struct {
	Env      string `mapstructure:"YT_ENV"`
	HTTPAddr string `mapstructure:"YT_HTTP_ADDR"`

	Database DBConfig       `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Site     SiteConfig     `mapstructure:",squash"`
	Media    MediaConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	Type            string        `mapstructure:"YT_DB_TYPE"` // "sqlite", "postgres", "memory"
	DSN             string        `mapstructure:"YT_DB_DSN"`
	MaxOpenConns    int           `mapstructure:"YT_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"YT_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"YT_DB_CONN_MAX_LIFETIME"`
}

type CacheConfig struct {
	Backend         string `mapstructure:"YT_KV_BACKEND"` // "memory", "redis"
	RedisURL        string `mapstructure:"YT_REDIS_URL"`
	DisableFailover bool   `mapstructure:"YT_KV_DISABLE_FAILOVER"`
}

type SiteConfig struct {
	PageSize      int           `mapstructure:"YT_PAGE_SIZE"`
	IndexCacheTTL time.Duration `mapstructure:"YT_INDEX_CACHE_TTL"`
	SessionTTL    time.Duration `mapstructure:"YT_SESSION_TTL"`
	SecureCookies bool          `mapstructure:"YT_SECURE_COOKIES"`
}

type MediaConfig struct {
	Root           string `mapstructure:"YT_MEDIA_ROOT"`
	MaxUploadBytes int64  `mapstructure:"YT_MAX_UPLOAD_BYTES"`
}

type SecurityConfig struct {
	RateLimitRPM       int           `mapstructure:"YT_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string      `mapstructure:"YT_CORS_ALLOWED_ORIGINS"`
	RequestTimeout     time.Duration `mapstructure:"YT_REQUEST_TIMEOUT"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // ignore errors; env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("YT_ENV", "dev")
	v.SetDefault("YT_HTTP_ADDR", ":8000")
	v.SetDefault("YT_DB_TYPE", "sqlite")
	v.SetDefault("YT_DB_DSN", "yatube.sqlite3")
	v.SetDefault("YT_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("YT_DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("YT_DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("YT_KV_BACKEND", "memory")
	v.SetDefault("YT_REDIS_URL", "redis://127.0.0.1:6379/0")
	v.SetDefault("YT_KV_DISABLE_FAILOVER", false)
	v.SetDefault("YT_PAGE_SIZE", 10)
	v.SetDefault("YT_INDEX_CACHE_TTL", "20s")
	v.SetDefault("YT_SESSION_TTL", "336h")
	v.SetDefault("YT_SECURE_COOKIES", false)
	v.SetDefault("YT_MEDIA_ROOT", "media")
	v.SetDefault("YT_MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("YT_RATE_LIMIT_RPM", 600)
	v.SetDefault("YT_CORS_ALLOWED_ORIGINS", "http://localhost:8000")
	v.SetDefault("YT_REQUEST_TIMEOUT", "15s")

	// Handle array parsing for comma-separated values
	if origins := v.GetString("YT_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("YT_CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Database.Type {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("YT_DB_DSN is required for %s", c.Database.Type)
		}
	default:
		return fmt.Errorf("invalid YT_DB_TYPE %q (must be sqlite, postgres, or memory)", c.Database.Type)
	}

	switch kv.Backend(c.Cache.Backend) {
	case kv.BackendMemory:
	case kv.BackendRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("YT_REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid YT_KV_BACKEND %q (must be memory or redis)", c.Cache.Backend)
	}

	if c.Site.PageSize <= 0 {
		return fmt.Errorf("YT_PAGE_SIZE must be positive, got %d", c.Site.PageSize)
	}
	if c.Site.IndexCacheTTL <= 0 {
		return fmt.Errorf("YT_INDEX_CACHE_TTL must be positive")
	}
	if c.Site.SessionTTL <= 0 {
		return fmt.Errorf("YT_SESSION_TTL must be positive")
	}
	if c.Security.RateLimitRPM <= 0 {
		return fmt.Errorf("YT_RATE_LIMIT_RPM must be positive")
	}
	if c.Security.RequestTimeout <= 0 {
		return fmt.Errorf("YT_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// DB returns the settings for gdb.NewDatabase.
func (c *Config) DB() gdb.Config {
	return gdb.Config{
		Type:            c.Database.Type,
		DSN:             c.Database.DSN,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// KV returns the settings for kv.NewStoreFromConfig.
func (c *Config) KV(logger kv.LogFunc) kv.Config {
	return kv.Config{
		Backend:         kv.Backend(c.Cache.Backend),
		RedisURL:        c.Cache.RedisURL,
		DisableFailover: c.Cache.DisableFailover,
		Logger:          logger,
	}
}
