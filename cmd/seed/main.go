package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yatube/yatube-backend/internal/auth"
	"github.com/yatube/yatube-backend/internal/config"
	gdb "github.com/yatube/yatube-backend/internal/db"
	"github.com/yatube/yatube-backend/internal/log"
)

var (
	flags    = flag.NewFlagSet("seed", flag.ExitOnError)
	password = flags.String("password", "yatube-demo", "password given to every demo account")
)

func main() {
	flags.Parse(os.Args[1:])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := log.NewNamed(cfg.Env, "seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Database.Type == "memory" {
		logger.Fatalw("Seeding the in-memory database has no lasting effect; set YT_DB_TYPE")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	database, err := gdb.NewDatabase(cfg.DB())
	if err != nil {
		logger.Fatalw("Invalid database config", "error", err)
	}
	if err := gdb.ConnectAndMigrate(ctx, database); err != nil {
		logger.Fatalw("Failed to setup database", "error", err)
	}
	defer database.Disconnect(context.Background())

	hash, err := auth.HashPassword(*password)
	if err != nil {
		logger.Fatalw("Failed to hash password", "error", err)
	}

	res, err := gdb.Seed(ctx, database, hash)
	if err != nil {
		logger.Fatalw("Seeding failed", "error", err)
	}

	logger.Infow("Demo data loaded",
		"users", res.Users,
		"groups", res.Groups,
		"posts", res.Posts,
		"comments", res.Comments,
		"follows", res.Follows,
	)
	for _, u := range gdb.UserFixtures {
		fmt.Printf("  %s / %s\n", u.Username, *password)
	}
}
