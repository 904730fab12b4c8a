package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// Storage is durable key/value storage scoped by owner (one Telegram chat).
// It plays the role a browser's localStorage plays for a web client.
type Storage interface {
	Get(ctx context.Context, ownerID int64, key string) (string, bool, error)
	Set(ctx context.Context, ownerID int64, key, value string) error
	Remove(ctx context.Context, ownerID int64, keys ...string) error
	Migrate(ctx context.Context, script string) error
	Close()
}

type PGStorage struct {
	pool *pgxpool.Pool
}

func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Get(ctx context.Context, ownerID int64, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM client_storage WHERE owner_id = $1 AND key = $2`,
		ownerID, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *PGStorage) Set(ctx context.Context, ownerID int64, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO client_storage (owner_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (owner_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = now()`,
		ownerID, key, value,
	)
	return err
}

func (s *PGStorage) Remove(ctx context.Context, ownerID int64, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM client_storage WHERE owner_id = $1 AND key = ANY($2)`,
		ownerID, keys,
	)
	return err
}

func (s *PGStorage) Migrate(ctx context.Context, script string) error {
	_, err := s.pool.Exec(ctx, script)
	return err
}

func (s *PGStorage) Close() {
	s.pool.Close()
}

// OpenSQLite opens (creating if needed) a SQLite file at path.
func OpenSQLite(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY under concurrent chats
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return sqlDB, nil
}

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) Get(ctx context.Context, ownerID int64, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE owner_id = ? AND key = ?`,
		ownerID, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, ownerID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_storage (owner_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (owner_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		ownerID, key, value,
	)
	return err
}

func (s *SQLiteStorage) Remove(ctx context.Context, ownerID int64, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM client_storage WHERE owner_id = ? AND key = ?`,
			ownerID, k,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) Migrate(ctx context.Context, script string) error {
	_, err := s.db.ExecContext(ctx, script)
	return err
}

func (s *SQLiteStorage) Close() {
	s.db.Close()
}
