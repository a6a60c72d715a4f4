package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"userdir/db"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, reset, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	loadEnvFiles()

	dir := migrationsDir()
	if *command == "create" {
		if strings.TrimSpace(*name) == "" {
			log.Fatal("Name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	if useEmbedded(dir) {
		goose.SetBaseFS(db.Migrations)
		dir = db.MigrationsDir
		log.Printf("migrate: using embedded migrations")
	} else {
		goose.SetBaseFS(nil)
		log.Printf("migrate: using migrations dir=%s", dir)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	switch *command {
	case "up":
		if err := goose.UpContext(ctx, sqlDB, dir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.DownContext(ctx, sqlDB, dir); err != nil {
			log.Fatalf("Failed to rollback migrations: %v", err)
		}
		fmt.Println("Migrations rolled back successfully")
	case "reset":
		if err := goose.ResetContext(ctx, sqlDB, dir); err != nil {
			log.Fatalf("Failed to reset migrations: %v", err)
		}
		fmt.Println("Migrations reset successfully")
	case "status":
		if err := goose.StatusContext(ctx, sqlDB, dir); err != nil {
			log.Fatalf("Failed to check migration status: %v", err)
		}
	case "version":
		if err := goose.VersionContext(ctx, sqlDB, dir); err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
	default:
		log.Fatalf("Unknown command: %s. Use: up, down, status, version, reset, create", *command)
	}
}
