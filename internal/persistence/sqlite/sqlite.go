// Package sqlite implements the persistence repositories on SQLite through
// modernc.org/sqlite. The schema is embedded and applied by Migrate.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/capture-scheduler/internal/persistence"
	"github.com/example/capture-scheduler/internal/persistence/sqlite/migration"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// timestampLayout is fixed width so TEXT columns sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Storage bundles the connection pool and every repository.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Sections      *SectionRepository
	CrossListings *CrossListingRepository
	Rooms         *RoomRepository
	Approvals     *ApprovalRepository
	Scheduled     *ScheduledRepository
}

var (
	_ persistence.SectionRepository      = (*SectionRepository)(nil)
	_ persistence.CrossListingRepository = (*CrossListingRepository)(nil)
	_ persistence.RoomRepository         = (*RoomRepository)(nil)
	_ persistence.ApprovalRepository     = (*ApprovalRepository)(nil)
	_ persistence.ScheduledRepository    = (*ScheduledRepository)(nil)
)

// Open opens the database at dsn with the default configuration.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(dsn), nil)
}

// OpenWithConfig opens the database described by cfg. A nil logger uses
// slog.Default.
func OpenWithConfig(cfg migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:          pool,
		logger:        logger,
		Sections:      NewSectionRepository(pool),
		CrossListings: NewCrossListingRepository(pool),
		Rooms:         NewRoomRepository(pool),
		Approvals:     NewApprovalRepository(pool),
		Scheduled:     NewScheduledRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(schemaFS, "schema"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// DB exposes the underlying handle for tests and tooling.
func (s *Storage) DB() *sql.DB {
	return s.pool.DB()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func parseNullTime(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(column, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// valuesPlaceholders renders "(?, ?), (?, ?)" for a multi-row insert.
func valuesPlaceholders(rows, columns int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", columns), ", ") + ")"
	parts := make([]string, rows)
	for i := range parts {
		parts[i] = row
	}
	return strings.Join(parts, ", ")
}
