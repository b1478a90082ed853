package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"bookrecords/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	config.LoadEnvFiles()

	if err := run(*command, *name); err != nil {
		slog.Error("migrate failed", "command", *command, "err", err)
		os.Exit(1)
	}
}

func run(command, name string) error {
	dir := migrationsDir()

	if command == "create" {
		if name == "" {
			return fmt.Errorf("name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, name, "sql"); err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Printf("Migration created: %s\n", name)
		return nil
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseDSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.DownContext(ctx, db, dir); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
		fmt.Println("Migrations rolled back successfully")
	case "status":
		if err := goose.StatusContext(ctx, db, dir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q, use: up, down, status, create", command)
	}
	return nil
}
