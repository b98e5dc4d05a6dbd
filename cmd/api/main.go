package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yatube/yatube-backend/internal/api"
	"github.com/yatube/yatube-backend/internal/auth"
	"github.com/yatube/yatube-backend/internal/blog"
	"github.com/yatube/yatube-backend/internal/config"
	gdb "github.com/yatube/yatube-backend/internal/db"
	"github.com/yatube/yatube-backend/internal/log"
	"github.com/yatube/yatube-backend/internal/media"
	"github.com/yatube/yatube-backend/internal/metrics"
	"github.com/yatube/yatube-backend/internal/store"
	"github.com/yatube/yatube-backend/internal/web"
	"github.com/yatube/yatube-backend/pkg/kv"
	_ "github.com/yatube/yatube-backend/pkg/kv/memory"
	_ "github.com/yatube/yatube-backend/pkg/kv/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewNamed(cfg.Env, "api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting Yatube server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db", cfg.Database.Type,
		"kv", cfg.Cache.Backend,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("yatube")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Database
	database, err := gdb.NewDatabase(cfg.DB())
	if err != nil {
		logger.Fatalw("Invalid database config", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gdb.ConnectAndMigrate(ctx, database); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	defer database.Disconnect(context.Background())
	logger.Infow("Database initialized")

	// Sessions and the page cache share the kv store
	kvStore, err := kv.NewStoreFromConfig(cfg.KV(logger.Warnw))
	if err != nil {
		logger.Fatalw("Failed to setup kv store", "error", err)
	}
	defer kvStore.Close()
	if err := kvStore.Ping(ctx); err != nil {
		logger.Fatalw("KV ping failed", "error", err)
	}
	logger.Infow("KV store ready", "backend", cfg.Cache.Backend)

	images, err := media.NewOSStore(cfg.Media.Root, cfg.Media.MaxUploadBytes)
	if err != nil {
		logger.Fatalw("Failed to setup media storage", "error", err)
	}

	// Setup services
	sessions := auth.NewSessions(kvStore, cfg.Site.SessionTTL)
	authSvc := auth.NewService(database.Users(), sessions, cfg.Site.SecureCookies, logger.Named("auth"), metricsObj)
	blogSvc := blog.NewService(database, images, cfg.Site.PageSize, logger.Named("blog"), metricsObj)
	cache := store.NewCache(kvStore, cfg.Site.IndexCacheTTL, logger.Named("cache"), metricsObj)
	renderer := web.MustNewRenderer(logger.Named("web"))

	// Setup API handler and middleware
	handler := api.NewHandler(blogSvc, authSvc, cache, images.Handler(), renderer, database, kvStore, cfg.Media.MaxUploadBytes, logger, metricsObj)
	middleware := api.NewMiddleware(logger, metricsObj, renderer)

	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM, cfg.Security.RequestTimeout)
	logger.Infow("CORS configured for media", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Add metrics endpoint
	router.Handle("/metrics", metricsHandler)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Security.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
