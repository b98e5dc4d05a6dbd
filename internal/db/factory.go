package db

import (
	"context"
	"fmt"
	"time"

	"github.com/yatube/yatube-backend/internal/db/backends/memory"
	"github.com/yatube/yatube-backend/internal/db/backends/sqldb"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

// Config holds database configuration
type Config struct {
	Type            string // "memory", "postgres", "sqlite"
	DSN             string // Data Source Name / Connection String
	MaxOpenConns    int    // Maximum open connections (for SQL backends)
	MaxIdleConns    int    // Maximum idle connections (for SQL backends)
	ConnMaxLifetime time.Duration
}

// NewDatabase creates a new database instance based on configuration.
// The returned database is not connected yet.
func NewDatabase(config Config) (interfaces.Database, error) {
	switch config.Type {
	case "", "memory":
		return memory.NewDatabase(), nil
	case "postgres":
		return sqldb.New(sqldb.Postgres, config.DSN, sqlOptions(config))
	case "sqlite":
		return sqldb.New(sqldb.SQLite, config.DSN, sqlOptions(config))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

func sqlOptions(config Config) sqldb.Options {
	return sqldb.Options{
		MaxOpenConns:    config.MaxOpenConns,
		MaxIdleConns:    config.MaxIdleConns,
		ConnMaxLifetime: config.ConnMaxLifetime,
	}
}

// MustNewDatabase creates a new database instance and panics on error
func MustNewDatabase(config Config) interfaces.Database {
	db, err := NewDatabase(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create database: %v", err))
	}
	return db
}

// NewInMemoryDatabase creates a new in-memory database instance
func NewInMemoryDatabase() interfaces.Database {
	return memory.NewDatabase()
}

// ConnectAndMigrate connects to the database and runs migrations
func ConnectAndMigrate(ctx context.Context, db interfaces.Database) error {
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if !db.IsHealthy(ctx) {
		return fmt.Errorf("database health check failed")
	}

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
