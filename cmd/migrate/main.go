package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/fixora/leadflow/internal/config"
	"github.com/fixora/leadflow/internal/infra/logger"
	"github.com/fixora/leadflow/internal/infra/migrate"
)

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "up", "migration mode: up or down")
	steps := flag.Int("steps", 1, "number of migrations to revert in down mode, 0 for all")
	dir := flag.String("dir", "", "migrations directory (default DB_MIGRATIONS_PATH)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fatal(logger.NewStructuredLogger(logger.LoggerConfig{}), "Failed to load configuration", err)
	}
	log := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stderr,
		ServiceName: "leadflow-migrate",
	})

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.GetDatabaseURL()
	}
	if *dir == "" {
		*dir = cfg.Database.MigrationsPath
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fatal(log, "Failed to connect database", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatal(log, "Failed to ping database", err)
	}

	files, err := migrate.LoadFiles(*dir)
	if err != nil {
		fatal(log, "Failed to load migrations", err)
	}

	m := migrate.New(db, log)
	if err := m.EnsureSchemaTable(ctx); err != nil {
		fatal(log, "Failed to prepare migrations table", err)
	}

	switch strings.ToLower(*mode) {
	case migrate.KindUp:
		n, err := m.Up(ctx, files)
		if err != nil {
			fatal(log, "Migration up failed", err)
		}
		log.Info(ctx, "Migration up completed successfully", map[string]interface{}{"applied": n})
	case migrate.KindDown:
		n, err := m.Down(ctx, files, *steps)
		if err != nil {
			fatal(log, "Migration down failed", err)
		}
		log.Info(ctx, "Migration down completed successfully", map[string]interface{}{"reverted": n})
	default:
		log.Error(ctx, "Unknown migration mode", nil, map[string]interface{}{"mode": *mode})
		os.Exit(2)
	}
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(context.Background(), msg, err, nil)
	os.Exit(1)
}
