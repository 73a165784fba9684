package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"cloudsyncpro/internal/config"
	"cloudsyncpro/internal/repository/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	if cfg.Environment == "prod" {
		log.Fatal("BLOCKED: refusing to drop tables in production environment")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }() // Error ignored: script exiting

	tables := postgres.NewTableNames(cfg.TablePrefix)

	var stmts []string
	for _, table := range tables.All() {
		stmts = append(stmts, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", table))
	}

	if _, err := db.Exec(strings.Join(stmts, "\n")); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}

	fmt.Printf("All tables dropped successfully (prefix: %s)\n", cfg.TablePrefix)
}
