package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yatube/yatube-backend/internal/config"
	gdb "github.com/yatube/yatube-backend/internal/db"
	"github.com/yatube/yatube-backend/internal/db/backends/sqldb"
	"github.com/yatube/yatube-backend/internal/log"
)

var (
	flags   = flag.NewFlagSet("migrate", flag.ExitOnError)
	timeout = flags.Duration("timeout", time.Minute, "give up after this long")
)

const usage = "Usage: migrate [-timeout 1m] COMMAND\n\nCommands:\n  up\n  down\n  status\n  version"

func main() {
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := log.NewNamed(cfg.Env, "migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	database, err := gdb.NewDatabase(cfg.DB())
	if err != nil {
		logger.Fatalw("Invalid database config", "error", err)
	}
	sqlDB, ok := database.(*sqldb.Database)
	if !ok {
		logger.Fatalw("Migrations need a SQL database", "type", cfg.Database.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := sqlDB.Connect(ctx); err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}
	defer sqlDB.Disconnect(context.Background())

	provider, err := sqlDB.MigrationProvider()
	if err != nil {
		logger.Fatalw("Failed to load migrations", "error", err)
	}

	command := args[0]
	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			logger.Fatalw("Migration up failed", "error", err)
		}
		for _, r := range results {
			logger.Infow("Applied migration", "version", r.Source.Version, "file", r.Source.Path, "duration", r.Duration)
		}
		if len(results) == 0 {
			logger.Infow("No pending migrations")
		}
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			logger.Fatalw("Migration down failed", "error", err)
		}
		logger.Infow("Rolled back migration", "version", r.Source.Version, "file", r.Source.Path, "duration", r.Duration)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			logger.Fatalw("Migration status failed", "error", err)
		}
		for _, s := range statuses {
			applied := "pending"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-6d %-10s %-25s %s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
	case "version":
		v, err := provider.GetDBVersion(ctx)
		if err != nil {
			logger.Fatalw("Failed to read version", "error", err)
		}
		fmt.Println(v)
	default:
		logger.Fatalw("Unknown command", "command", command)
	}
}
