package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(DriverSQLite, ":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(DriverSQLite, dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.Equal(t, DriverSQLite, db.Driver())
}

func TestNewDB_MigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "twice.db")
	logger := zerolog.Nop()

	db, err := NewDB(DriverSQLite, dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(DriverSQLite, dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewDB("mysql", "whatever", &logger)
	assert.Error(t, err)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestRebind(t *testing.T) {
	sqlite := &DB{driver: DriverSQLite}
	pg := &DB{driver: DriverPostgres}

	q := `SELECT * FROM t WHERE a = ? AND b = ?`
	assert.Equal(t, q, sqlite.rebind(q))
	assert.Equal(t, `SELECT * FROM t WHERE a = $1 AND b = $2`, pg.rebind(q))
}

func TestStorageError(t *testing.T) {
	assert.NoError(t, wrap("noop", nil))

	err := wrap("get user", io.ErrUnexpectedEOF)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "get user", se.Op)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "get user")
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(DriverSQLite, ":memory:", &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()
	var se *StorageError

	_, err = db.GetAllDrinks(ctx, "u")
	assert.ErrorAs(t, err, &se)

	_, err = db.SumWithinHours(ctx, "u", 1)
	assert.ErrorAs(t, err, &se)

	_, err = db.UndoLastDrink(ctx, "u")
	assert.ErrorAs(t, err, &se)

	assert.ErrorAs(t, db.JoinGroup(ctx, "g", "u"), &se)
}
