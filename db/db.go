package db

import (
	"context"

	"food-order-bot/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

func Init(cfg config.DBConfig) error {
	var err error
	Pool, err = pgxpool.New(context.Background(), cfg.ConnString())
	return err
}

func Close() {
	if Pool != nil {
		Pool.Close()
	}
}

// Open returns the client storage selected by cfg. For postgres it initializes Pool.
func Open(cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if err := Init(cfg.DB); err != nil {
			return nil, err
		}
		return NewPGStorage(Pool), nil
	default:
		sqlDB, err := OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStorage(sqlDB), nil
	}
}
