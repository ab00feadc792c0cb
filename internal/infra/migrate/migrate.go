package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fixora/leadflow/internal/infra/logger"
)

// Migration kinds
const (
	KindUp   = "up"
	KindDown = "down"
)

// File is one versioned SQL migration script
type File struct {
	Version int
	Name    string
	Path    string
	Kind    string
}

// LoadFiles reads the migration scripts in dir, sorted by version.
// Files without a numeric version prefix are skipped.
func LoadFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".sql") {
			continue
		}

		kind := KindUp
		if strings.HasSuffix(lower, ".down.sql") {
			kind = KindDown
		}

		version, migName, err := ParseVersionAndName(name)
		if err != nil {
			continue
		}

		files = append(files, File{
			Version: version,
			Name:    migName,
			Path:    filepath.Join(dir, name),
			Kind:    kind,
		})
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ParseVersionAndName splits 002_create_requests.up.sql into 2 and
// create_requests
func ParseVersionAndName(filename string) (int, string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 || parts[0] == "" {
		return 0, "", errors.New("invalid migration filename: " + filename)
	}
	for _, r := range parts[0] {
		if r < '0' || r > '9' {
			return 0, "", errors.New("invalid migration version: " + filename)
		}
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid migration version: %w", err)
	}

	name := parts[1]
	for _, suffix := range []string{".up.sql", ".down.sql", ".sql"} {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	return version, name, nil
}

// Migrator applies migrations and tracks them in schema_migrations
type Migrator struct {
	db     *sql.DB
	logger logger.Logger
}

// New creates a migrator
func New(db *sql.DB, log logger.Logger) *Migrator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Migrator{db: db, logger: log}
}

// EnsureSchemaTable creates the bookkeeping table if needed
func (m *Migrator) EnsureSchemaTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}
	return nil
}

// Up applies every pending up migration in version order and returns how
// many ran
func (m *Migrator) Up(ctx context.Context, files []File) (int, error) {
	applied := 0
	for _, f := range files {
		if f.Kind != KindUp {
			continue
		}
		done, err := m.isApplied(ctx, f.Version)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		m.logger.Info(ctx, "Applying migration", map[string]interface{}{"version": f.Version, "name": f.Name})
		if err := m.run(ctx, f, `INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`, f.Version, f.Name, time.Now().UTC()); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// Down reverts up to steps applied migrations, newest first. A non-positive
// steps reverts all of them.
func (m *Migrator) Down(ctx context.Context, files []File, steps int) (int, error) {
	var downs []File
	for _, f := range files {
		if f.Kind == KindDown {
			downs = append(downs, f)
		}
	}
	sort.SliceStable(downs, func(i, j int) bool { return downs[i].Version > downs[j].Version })

	reverted := 0
	for _, f := range downs {
		if steps > 0 && reverted >= steps {
			break
		}
		done, err := m.isApplied(ctx, f.Version)
		if err != nil {
			return reverted, err
		}
		if !done {
			continue
		}

		m.logger.Info(ctx, "Reverting migration", map[string]interface{}{"version": f.Version, "name": f.Name})
		if err := m.run(ctx, f, `DELETE FROM schema_migrations WHERE version = $1`, f.Version); err != nil {
			return reverted, err
		}
		reverted++
	}
	return reverted, nil
}

func (m *Migrator) isApplied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %03d: %w", version, err)
	}
	return exists, nil
}

// run executes a script and its bookkeeping statement in one transaction
func (m *Migrator) run(ctx context.Context, f File, bookkeeping string, args ...interface{}) error {
	script, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Path, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("failed applying %s: %w", f.Path, err)
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("failed to record migration %03d: %w", f.Version, err)
	}
	return tx.Commit()
}
