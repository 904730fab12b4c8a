package db

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	sqlDB, err := OpenSQLite(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	s := NewSQLiteStorage(sqlDB)
	t.Cleanup(s.Close)
	require.NoError(t, ApplyMigrations(context.Background(), s, false))
	return s
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, ok, err := s.Get(ctx, 1, "authToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, 1, "authToken", "t1"))
	require.NoError(t, s.Set(ctx, 1, "authToken", "t2"))
	require.NoError(t, s.Set(ctx, 2, "authToken", "other"))

	v, ok, err := s.Get(ctx, 1, "authToken")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t2", v)

	require.NoError(t, s.Set(ctx, 1, "currentUser", `{"id":1}`))
	require.NoError(t, s.Remove(ctx, 1, "authToken", "currentUser"))

	_, ok, _ = s.Get(ctx, 1, "authToken")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, 1, "currentUser")
	assert.False(t, ok)

	// other owners are untouched
	v, ok, _ = s.Get(ctx, 2, "authToken")
	require.True(t, ok)
	assert.Equal(t, "other", v)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, ApplyMigrations(context.Background(), s, false))
}

func TestSQLiteStorage_SetQuery(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	s := NewSQLiteStorage(sqlDB)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO client_storage (owner_id, key, value, updated_at)`)).
		WithArgs(int64(42), "lang", "en").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Set(context.Background(), 42, "lang", "en"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStorage_RemoveRollsBackOnError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	s := NewSQLiteStorage(sqlDB)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM client_storage WHERE owner_id = ? AND key = ?`)).
		WithArgs(int64(7), "authToken").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM client_storage WHERE owner_id = ? AND key = ?`)).
		WithArgs(int64(7), "currentUser").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = s.Remove(context.Background(), 7, "authToken", "currentUser")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStorage_RemoveNoKeys(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, NewSQLiteStorage(sqlDB).Remove(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Integration test for Postgres storage (requires DB). Skip if Pool is nil or -short.
func TestPGStorage_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres storage integration test in short mode")
	}
	if Pool == nil {
		t.Skip("skipping postgres storage integration test: no DB pool")
	}
	ctx := context.Background()
	s := NewPGStorage(Pool)
	require.NoError(t, ApplyMigrations(ctx, s, false))

	const owner int64 = 999999997
	defer s.Remove(ctx, owner, "authToken")

	require.NoError(t, s.Set(ctx, owner, "authToken", "abc"))
	v, ok, err := s.Get(ctx, owner, "authToken")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", v)
}
