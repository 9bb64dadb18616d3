package migrations

import (
	"context"
	"fmt"

	"aw-token-ledger/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded postgres schema files.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readMigrations(postgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
