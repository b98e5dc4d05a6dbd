// Package main provides the manage CLI for site administration: groups,
// accounts and the page cache.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yatube/yatube-backend/internal/auth"
	"github.com/yatube/yatube-backend/internal/blog"
	"github.com/yatube/yatube-backend/internal/config"
	gdb "github.com/yatube/yatube-backend/internal/db"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/log"
	"github.com/yatube/yatube-backend/internal/store"
	"github.com/yatube/yatube-backend/pkg/kv"
	_ "github.com/yatube/yatube-backend/pkg/kv/memory"
	_ "github.com/yatube/yatube-backend/pkg/kv/redis"
)

// app holds what every subcommand works with. It is set up by
// PersistentPreRunE and torn down afterwards.
type app struct {
	logger   *zap.SugaredLogger
	database interfaces.Database
	kv       kv.Store
	blog     *blog.Service
	auth     *auth.Service
	cache    *store.Cache
}

var (
	timeout time.Duration
	current *app
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "manage",
	Short:         "Administer a Yatube site",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current == nil {
			return nil
		}
		return current.close()
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long")

	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(cacheCmd)
}

func setup(ctx context.Context) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := log.NewNamed(cfg.Env, "manage")
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	database, err := gdb.NewDatabase(cfg.DB())
	if err != nil {
		return nil, err
	}
	if err := gdb.ConnectAndMigrate(ctx, database); err != nil {
		return nil, err
	}

	kvStore, err := kv.NewStoreFromConfig(cfg.KV(logger.Warnw))
	if err != nil {
		database.Disconnect(ctx)
		return nil, fmt.Errorf("open kv store: %w", err)
	}

	sessions := auth.NewSessions(kvStore, cfg.Site.SessionTTL)
	return &app{
		logger:   logger,
		database: database,
		kv:       kvStore,
		// Images are never uploaded from the CLI.
		blog:  blog.NewService(database, nil, cfg.Site.PageSize, logger, nil),
		auth:  auth.NewService(database.Users(), sessions, cfg.Site.SecureCookies, logger, nil),
		cache: store.NewCache(kvStore, cfg.Site.IndexCacheTTL, logger, nil),
	}, nil
}

func (a *app) close() error {
	defer a.logger.Sync()
	kvErr := a.kv.Close()
	if err := a.database.Disconnect(context.Background()); err != nil {
		return err
	}
	return kvErr
}

// withTimeout bounds a subcommand's work by the --timeout flag.
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
