// Package db embeds the SQL migrations and applies them with goose.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const migrationsDir = "migrations"

// Up applies every pending migration from the embedded set.
func Up(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(Migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, conn, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
