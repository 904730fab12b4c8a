package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
)

// Embedded so `food-order-bot migrate` works regardless of the working directory.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// ApplyMigrations runs every embedded migration against s in file name order.
// Scripts are idempotent (CREATE ... IF NOT EXISTS) and valid for both drivers.
func ApplyMigrations(ctx context.Context, s Storage, verbose bool) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := s.Migrate(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if verbose {
			log.Println("Migration", name, "applied.")
		}
	}
	return nil
}
