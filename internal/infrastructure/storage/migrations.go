package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_match_tables",
		Up:      migration002AddMatchTables,
	},
	{
		Version: 3,
		Name:    "add_skip_review_columns",
		Up:      migration003AddSkipReviewColumns,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// ================================================================
// MIGRATION FUNCTIONS
// ================================================================

// migration001InitialSchema creates the ledger and forecast tables.
// Optional text columns default to '' rather than NULL so the Go code can
// scan them without sql.NullString.
func migration001InitialSchema(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			category_id TEXT NOT NULL DEFAULT '',
			amount REAL NOT NULL,
			date TIMESTAMP NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'posted',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date
		 ON transactions(user_id, date DESC)`,

		`CREATE TABLE IF NOT EXISTS planned_templates (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			amount REAL NOT NULL,
			type TEXT NOT NULL DEFAULT 'expense',
			account_id TEXT NOT NULL,
			category_id TEXT NOT NULL DEFAULT '',
			match_tolerance REAL NOT NULL DEFAULT 0,
			match_window_days INTEGER NOT NULL DEFAULT 7,
			auto_match_enabled BOOLEAN NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS planned_occurrences (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			template_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			amount REAL NOT NULL,
			type TEXT NOT NULL DEFAULT 'expense',
			expected_date TIMESTAMP NOT NULL,
			account_id TEXT NOT NULL,
			category_id TEXT NOT NULL DEFAULT '',
			match_tolerance REAL NOT NULL DEFAULT 0,
			match_window_days INTEGER NOT NULL DEFAULT 7,
			auto_match_enabled BOOLEAN NOT NULL DEFAULT 1
		)`,

		`CREATE INDEX IF NOT EXISTS idx_planned_occurrences_user_date
		 ON planned_occurrences(user_id, expected_date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// migration002AddMatchTables creates the match and dismissal tables. The
// unique index on transaction_id is what enforces the one-match-per-
// transaction invariant under concurrent writers.
func migration002AddMatchTables(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS matched_transactions (
			id TEXT PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			template_id TEXT NOT NULL DEFAULT '',
			expected_date TIMESTAMP NOT NULL,
			amount REAL NOT NULL,
			confidence INTEGER NOT NULL,
			method TEXT NOT NULL,
			matched_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (transaction_id) REFERENCES transactions(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_matched_transactions_matched_at
		 ON matched_transactions(matched_at DESC)`,

		`CREATE TABLE IF NOT EXISTS dismissed_matches (
			transaction_id TEXT NOT NULL,
			occurrence_id TEXT NOT NULL,
			dismissed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (transaction_id, occurrence_id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create match tables: %w", err)
		}
	}

	return nil
}

// migration003AddSkipReviewColumns adds the skip_review flag so forecast
// entries can opt out of the review queue.
func migration003AddSkipReviewColumns(db *sql.Tx) error {
	queries := []string{
		`ALTER TABLE planned_templates ADD COLUMN skip_review BOOLEAN NOT NULL DEFAULT 0`,
		`ALTER TABLE planned_occurrences ADD COLUMN skip_review BOOLEAN NOT NULL DEFAULT 0`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to add skip_review column: %w", err)
		}
	}

	return nil
}
