package sqldb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yatube/yatube-backend/internal/db/dbtest"
	"github.com/yatube/yatube-backend/internal/db/interfaces"
)

func newSQLite(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	db, err := New(SQLite, filepath.Join(t.TempDir(), "yatube.db"), Options{})
	require.NoError(t, err)
	require.NoError(t, db.Connect(ctx))
	t.Cleanup(func() { db.Disconnect(ctx) })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestSQLiteDatabase(t *testing.T) {
	dbtest.RunConformanceTests(t, func(t *testing.T) interfaces.Database {
		return newSQLite(t)
	})
}

func TestPostgresDatabase(t *testing.T) {
	dsn := os.Getenv("YT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("YT_TEST_POSTGRES_DSN not set")
	}

	dbtest.RunConformanceTests(t, func(t *testing.T) interfaces.Database {
		ctx := context.Background()
		db, err := New(Postgres, dsn, Options{MaxOpenConns: 4})
		require.NoError(t, err)
		require.NoError(t, db.Connect(ctx))
		t.Cleanup(func() { db.Disconnect(ctx) })
		require.NoError(t, db.Migrate(ctx))

		_, err = db.exec(ctx, `TRUNCATE users, blog_groups RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return db
	})
}

func TestMigrationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newSQLite(t)

	provider, err := db.MigrationProvider()
	require.NoError(t, err)

	version, err := provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	_, err = provider.Down(ctx)
	require.NoError(t, err)
	_, err = db.Users().Count(ctx)
	assert.Error(t, err, "users table must be gone after down")

	_, err = provider.Up(ctx)
	require.NoError(t, err)
	n, err := db.Users().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRebind(t *testing.T) {
	pg := &Database{driver: Postgres}
	lite := &Database{driver: SQLite}

	q := `SELECT * FROM posts WHERE author_id = ? AND group_id = ? LIMIT ?`
	assert.Equal(t, `SELECT * FROM posts WHERE author_id = $1 AND group_id = $2 LIMIT $3`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("/tmp/a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("file:a.db?mode=rwc"))
	assert.Equal(t, "file:a.db?_pragma=foreign_keys(1)", sqliteDSN("file:a.db?_pragma=foreign_keys(1)"))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("mysql", "dsn", Options{})
	assert.Error(t, err)
	_, err = New(SQLite, "", Options{})
	assert.Error(t, err)
}

func TestDisconnectedQueries(t *testing.T) {
	db, err := New(SQLite, "unused.db", Options{})
	require.NoError(t, err)

	_, err = db.Users().Count(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrDatabaseNotConnected)
	assert.False(t, db.IsHealthy(context.Background()))
}
