package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"planmatch-backend/internal/domain/ledger"
	"planmatch-backend/internal/domain/occurrence"
)

// Storage provides SQLite database access for the matching engine. It
// implements the Repository interface and, for stored rows, the
// occurrence.Source interface.
type Storage struct {
	db *sql.DB
}

// Compile-time checks
var (
	_ Repository        = (*Storage)(nil)
	_ occurrence.Source = (*Storage)(nil)
)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// CreateTransaction inserts a transaction row
func (s *Storage) CreateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query := `
	INSERT INTO transactions (id, user_id, account_id, category_id, amount, date, description, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.AccountID,
		tx.CategoryID,
		tx.Amount,
		tx.Date,
		tx.Description,
		tx.Status,
	)

	return err
}

// GetTransaction retrieves a transaction by id, returning nil when absent
func (s *Storage) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	query := `
	SELECT id, user_id, account_id, category_id, amount, date, description, status
	FROM transactions WHERE id = ?
	`

	tx := &ledger.Transaction{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.AccountID,
		&tx.CategoryID,
		&tx.Amount,
		&tx.Date,
		&tx.Description,
		&tx.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// ListUnmatchedTransactions returns the user's transactions dated on or
// after since that have no match record, most recent first
func (s *Storage) ListUnmatchedTransactions(ctx context.Context, userID string, since time.Time, limit int) ([]ledger.Transaction, error) {
	query := `
	SELECT t.id, t.user_id, t.account_id, t.category_id, t.amount, t.date, t.description, t.status
	FROM transactions t
	LEFT JOIN matched_transactions m ON m.transaction_id = t.id
	WHERE t.user_id = ? AND t.date >= ? AND m.id IS NULL
	ORDER BY t.date DESC, t.id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, since, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var txs []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.AccountID,
			&tx.CategoryID,
			&tx.Amount,
			&tx.Date,
			&tx.Description,
			&tx.Status,
		)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// CreateOccurrence inserts a stored occurrence row for the user
func (s *Storage) CreateOccurrence(ctx context.Context, userID string, occ *occurrence.PlannedOccurrence) error {
	query := `
	INSERT INTO planned_occurrences
	(id, user_id, template_id, name, amount, type, expected_date, account_id, category_id,
	 match_tolerance, match_window_days, auto_match_enabled, skip_review)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		occ.ID,
		userID,
		occ.TemplateID,
		occ.Name,
		occ.Amount,
		occ.Type,
		occ.ExpectedDate,
		occ.AccountID,
		occ.CategoryID,
		occ.MatchTolerance,
		occ.MatchWindowDays,
		occ.AutoMatchEnabled,
		occ.SkipReview,
	)

	return err
}

// GetOccurrence retrieves a stored occurrence scoped to the user,
// returning nil when absent
func (s *Storage) GetOccurrence(ctx context.Context, userID, id string) (*occurrence.PlannedOccurrence, error) {
	query := `
	SELECT id, template_id, name, amount, type, expected_date, account_id, category_id,
	       match_tolerance, match_window_days, auto_match_enabled, skip_review
	FROM planned_occurrences WHERE id = ? AND user_id = ?
	`

	occ := &occurrence.PlannedOccurrence{}
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&occ.ID,
		&occ.TemplateID,
		&occ.Name,
		&occ.Amount,
		&occ.Type,
		&occ.ExpectedDate,
		&occ.AccountID,
		&occ.CategoryID,
		&occ.MatchTolerance,
		&occ.MatchWindowDays,
		&occ.AutoMatchEnabled,
		&occ.SkipReview,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return occ, nil
}

// ListOccurrences returns the user's stored occurrences inside the
// options' date window. Virtual expansion belongs to the forecast
// subsystem, so IncludeVirtual adds nothing here.
func (s *Storage) ListOccurrences(ctx context.Context, userID string, opts occurrence.ListOptions) ([]occurrence.PlannedOccurrence, error) {
	query := `
	SELECT id, template_id, name, amount, type, expected_date, account_id, category_id,
	       match_tolerance, match_window_days, auto_match_enabled, skip_review
	FROM planned_occurrences
	WHERE user_id = ? AND expected_date >= ? AND expected_date <= ?
	`
	args := []interface{}{userID, opts.StartDate, opts.EndDate}

	if opts.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, opts.AccountID)
	}

	query += ` ORDER BY expected_date ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var occs []occurrence.PlannedOccurrence
	for rows.Next() {
		var occ occurrence.PlannedOccurrence
		err := rows.Scan(
			&occ.ID,
			&occ.TemplateID,
			&occ.Name,
			&occ.Amount,
			&occ.Type,
			&occ.ExpectedDate,
			&occ.AccountID,
			&occ.CategoryID,
			&occ.MatchTolerance,
			&occ.MatchWindowDays,
			&occ.AutoMatchEnabled,
			&occ.SkipReview,
		)
		if err != nil {
			return nil, err
		}
		occs = append(occs, occ)
	}

	return occs, rows.Err()
}

// CreateTemplate inserts a recurring template
func (s *Storage) CreateTemplate(ctx context.Context, tpl *occurrence.Template) error {
	query := `
	INSERT INTO planned_templates
	(id, user_id, name, amount, type, account_id, category_id,
	 match_tolerance, match_window_days, auto_match_enabled, skip_review)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tpl.ID,
		tpl.UserID,
		tpl.Name,
		tpl.Amount,
		tpl.Type,
		tpl.AccountID,
		tpl.CategoryID,
		tpl.MatchTolerance,
		tpl.MatchWindowDays,
		tpl.AutoMatchEnabled,
		tpl.SkipReview,
	)

	return err
}

// GetTemplate retrieves a template scoped to the user, returning nil
// when absent
func (s *Storage) GetTemplate(ctx context.Context, userID, id string) (*occurrence.Template, error) {
	query := `
	SELECT id, user_id, name, amount, type, account_id, category_id,
	       match_tolerance, match_window_days, auto_match_enabled, skip_review
	FROM planned_templates WHERE id = ? AND user_id = ?
	`

	tpl := &occurrence.Template{}
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&tpl.ID,
		&tpl.UserID,
		&tpl.Name,
		&tpl.Amount,
		&tpl.Type,
		&tpl.AccountID,
		&tpl.CategoryID,
		&tpl.MatchTolerance,
		&tpl.MatchWindowDays,
		&tpl.AutoMatchEnabled,
		&tpl.SkipReview,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return tpl, nil
}
