package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate.
func Schema() string {
	return schema
}

// Migrate applies the idempotent schema over a dedicated connection. It runs before
// NewPool because pooled connections need the vector type to exist.
func Migrate(ctx context.Context, databaseURL string) error {
	return withRetry(ctx, "database migration", func() error {
		conn, err := pgx.Connect(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close(ctx) }()

		if _, err := conn.Exec(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		log.Info().Msg("database schema applied")
		return nil
	})
}
