// Package sqldb implements the Database interface on database/sql for
// PostgreSQL (pgx stdlib driver) and SQLite (modernc.org/sqlite).
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yatube/yatube-backend/internal/db/interfaces"
	"github.com/yatube/yatube-backend/internal/db/migrations"
)

// Driver selects the SQL engine.
type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

// Options configures connection pooling. Zero values keep driver defaults,
// except SQLite which is always limited to a single connection.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Database implements interfaces.Database over *sql.DB.
type Database struct {
	driver Driver
	dsn    string
	opts   Options
	db     *sql.DB
	now    func() time.Time
}

// New creates an unconnected database; call Connect before use.
func New(driver Driver, dsn string, opts Options) (*Database, error) {
	switch driver {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s: dsn is required", driver)
	}
	return &Database{
		driver: driver,
		dsn:    dsn,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}, nil
}

// sqliteDSN turns a bare path into a modernc DSN with foreign keys enforced.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=foreign_keys") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Connect opens the pool and verifies it with a ping.
func (d *Database) Connect(ctx context.Context) error {
	var (
		db  *sql.DB
		err error
	)
	switch d.driver {
	case Postgres:
		db, err = sql.Open("pgx", d.dsn)
	case SQLite:
		db, err = sql.Open("sqlite", sqliteDSN(d.dsn))
	}
	if err != nil {
		return &interfaces.DatabaseError{Op: "open", Err: err}
	}

	if d.driver == SQLite {
		db.SetMaxOpenConns(1)
	} else if d.opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.opts.MaxOpenConns)
	}
	if d.opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(d.opts.MaxIdleConns)
	}
	if d.opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(d.opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return &interfaces.DatabaseError{Op: "ping", Err: err}
	}
	d.db = db
	return nil
}

// Disconnect closes the pool.
func (d *Database) Disconnect(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// IsHealthy checks if the database connection is healthy
func (d *Database) IsHealthy(ctx context.Context) bool {
	if d.db == nil {
		return false
	}
	return d.db.PingContext(ctx) == nil
}

// DB exposes the underlying pool for tooling such as cmd/migrate.
func (d *Database) DB() *sql.DB {
	return d.db
}

// MigrationProvider returns a goose provider over the embedded migrations
// for this driver.
func (d *Database) MigrationProvider() (*goose.Provider, error) {
	if d.db == nil {
		return nil, interfaces.ErrDatabaseNotConnected
	}
	dialect, dir := goose.DialectPostgres, migrations.Postgres
	if d.driver == SQLite {
		dialect, dir = goose.DialectSQLite3, migrations.SQLite
	}
	fsys, err := migrations.FS(dir)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, d.db, fsys)
}

// Migrate applies every pending migration.
func (d *Database) Migrate(ctx context.Context) error {
	provider, err := d.MigrationProvider()
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return &interfaces.DatabaseError{Op: "migrate", Err: err}
	}
	return nil
}

func (d *Database) Users() interfaces.UserRepository       { return &userRepository{d: d} }
func (d *Database) Groups() interfaces.GroupRepository     { return &groupRepository{d: d} }
func (d *Database) Posts() interfaces.PostRepository       { return &postRepository{d: d} }
func (d *Database) Comments() interfaces.CommentRepository { return &commentRepository{d: d} }
func (d *Database) Follows() interfaces.FollowRepository   { return &followRepository{d: d} }

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d *Database) rebind(query string) string {
	if d.driver != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d *Database) conn() (*sql.DB, error) {
	if d.db == nil {
		return nil, interfaces.ErrDatabaseNotConnected
	}
	return d.db, nil
}

func (d *Database) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, d.rebind(query), args...)
}

func (d *Database) queryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	return db.QueryRowContext(ctx, d.rebind(query), args...), nil
}

func (d *Database) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, d.rebind(query), args...)
}

func (d *Database) count(ctx context.Context, query string, args ...any) (int64, error) {
	row, err := d.queryRow(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// translate maps driver errors onto the interfaces sentinels.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &interfaces.DatabaseError{Op: op, Err: interfaces.ErrUniqueConstraint}
		case "23503":
			return &interfaces.DatabaseError{Op: op, Err: interfaces.ErrForeignKeyConstraint}
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := liteErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return &interfaces.DatabaseError{Op: op, Err: interfaces.ErrUniqueConstraint}
		case strings.Contains(msg, "FOREIGN KEY"):
			return &interfaces.DatabaseError{Op: op, Err: interfaces.ErrForeignKeyConstraint}
		}
	}

	return &interfaces.DatabaseError{Op: op, Err: err}
}

// requireAffected turns a zero-row update/delete into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}
