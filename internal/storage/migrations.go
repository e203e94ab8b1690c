package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS purchase_events (
					id TEXT PRIMARY KEY,
					site TEXT NOT NULL,
					product_name TEXT NOT NULL,
					product_price REAL NOT NULL DEFAULT 0,
					product_category TEXT NOT NULL DEFAULT 'general',
					product_url TEXT,
					product_image TEXT,
					confidence INTEGER NOT NULL,
					risk_level TEXT NOT NULL,
					source TEXT NOT NULL,
					questions TEXT,
					outcome TEXT NOT NULL DEFAULT 'pending',
					reflection_seconds INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					resolved_at DATETIME
				)`,
				`CREATE INDEX idx_purchase_events_site ON purchase_events(site)`,
				`CREATE INDEX idx_purchase_events_created ON purchase_events(created_at)`,
				`CREATE INDEX idx_purchase_events_category ON purchase_events(product_category)`,

				`CREATE TABLE IF NOT EXISTS settings (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Goals and cooling-off list",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS goals (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					target_amount REAL NOT NULL,
					saved_amount REAL NOT NULL DEFAULT 0,
					deadline DATETIME,
					created_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS cooling_off (
					id TEXT PRIMARY KEY,
					event_id TEXT NOT NULL,
					product_name TEXT NOT NULL,
					product_price REAL NOT NULL DEFAULT 0,
					product_url TEXT,
					added_at DATETIME NOT NULL,
					review_after DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_cooling_off_review ON cooling_off(review_after)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Savings stats",
		Up: func(tx *sql.Tx) error {
			query := `CREATE TABLE IF NOT EXISTS stats (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				day TEXT NOT NULL DEFAULT '',
				saved_today REAL NOT NULL DEFAULT 0,
				saved_total REAL NOT NULL DEFAULT 0,
				streak INTEGER NOT NULL DEFAULT 0
			)`
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to create stats table: %w", err)
			}
			if _, err := tx.Exec(`INSERT OR IGNORE INTO stats (id) VALUES (1)`); err != nil {
				return fmt.Errorf("failed to seed stats row: %w", err)
			}
			return nil
		},
	},
}

// SchemaVersion returns the highest applied migration version, or 0 for a
// fresh database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var tables int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`).Scan(&tables)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}

	var current int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return current, nil
}

// Migrate applies all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}
