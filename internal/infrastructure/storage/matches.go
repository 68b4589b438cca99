package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"planmatch-backend/internal/domain/match"
)

// CreateMatchConsuming persists a match record and, when
// consumeOccurrenceID is non-empty, deletes that stored occurrence in the
// same database transaction. The UNIQUE index on transaction_id turns a
// concurrent double-confirm into match.ErrAlreadyMatched, and a zero-row
// delete means another caller consumed the occurrence first.
func (s *Storage) CreateMatchConsuming(ctx context.Context, userID string, m *match.MatchedTransaction, consumeOccurrenceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin match transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := `
	INSERT INTO matched_transactions
	(id, transaction_id, template_id, expected_date, amount, confidence, method, matched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, insert,
		m.ID,
		m.TransactionID,
		m.TemplateID,
		m.ExpectedDate,
		m.Amount,
		m.Confidence,
		m.Method,
		m.MatchedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return match.ErrAlreadyMatched
		}
		return err
	}

	if consumeOccurrenceID != "" {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM planned_occurrences WHERE id = ? AND user_id = ?`,
			consumeOccurrenceID, userID,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("occurrence %s already consumed: %w", consumeOccurrenceID, match.ErrNotFound)
		}
	}

	return tx.Commit()
}

// GetMatch retrieves a match by id, returning nil when absent
func (s *Storage) GetMatch(ctx context.Context, id string) (*match.MatchedTransaction, error) {
	query := `
	SELECT id, transaction_id, template_id, expected_date, amount, confidence, method, matched_at
	FROM matched_transactions WHERE id = ?
	`

	return s.scanMatch(s.db.QueryRowContext(ctx, query, id))
}

// GetMatchByTransaction retrieves the match for a transaction, returning
// nil when the transaction is unmatched
func (s *Storage) GetMatchByTransaction(ctx context.Context, transactionID string) (*match.MatchedTransaction, error) {
	query := `
	SELECT id, transaction_id, template_id, expected_date, amount, confidence, method, matched_at
	FROM matched_transactions WHERE transaction_id = ?
	`

	return s.scanMatch(s.db.QueryRowContext(ctx, query, transactionID))
}

func (s *Storage) scanMatch(row *sql.Row) (*match.MatchedTransaction, error) {
	m := &match.MatchedTransaction{}
	err := row.Scan(
		&m.ID,
		&m.TransactionID,
		&m.TemplateID,
		&m.ExpectedDate,
		&m.Amount,
		&m.Confidence,
		&m.Method,
		&m.MatchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return m, nil
}

// DeleteMatch removes a match record
func (s *Storage) DeleteMatch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM matched_transactions WHERE id = ?`, id)
	return err
}

// ListMatches returns the user's matches newest-first with the total
// count for pagination. User scoping goes through the owning transaction.
func (s *Storage) ListMatches(ctx context.Context, userID string, filters HistoryFilters) ([]match.MatchedTransaction, int, error) {
	where := `FROM matched_transactions m
	JOIN transactions t ON t.id = m.transaction_id
	WHERE t.user_id = ?`
	args := []interface{}{userID}

	if !filters.StartDate.IsZero() {
		where += ` AND m.matched_at >= ?`
		args = append(args, filters.StartDate)
	}
	if !filters.EndDate.IsZero() {
		where += ` AND m.matched_at <= ?`
		args = append(args, filters.EndDate)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT m.id, m.transaction_id, m.template_id, m.expected_date, m.amount, m.confidence, m.method, m.matched_at
	` + where + `
	ORDER BY m.matched_at DESC, m.id DESC
	LIMIT ? OFFSET ?
	`
	args = append(args, limit, filters.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var matches []match.MatchedTransaction
	for rows.Next() {
		var m match.MatchedTransaction
		err := rows.Scan(
			&m.ID,
			&m.TransactionID,
			&m.TemplateID,
			&m.ExpectedDate,
			&m.Amount,
			&m.Confidence,
			&m.Method,
			&m.MatchedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		matches = append(matches, m)
	}

	return matches, total, rows.Err()
}

// GetMatchStats returns aggregate match statistics for the user
func (s *Storage) GetMatchStats(ctx context.Context, userID string) (*MatchStats, error) {
	query := `
	SELECT
		COUNT(*) as total,
		COUNT(CASE WHEN m.method = 'AUTO' THEN 1 END) as auto_count,
		COUNT(CASE WHEN m.method = 'AUTO_REVIEWED' THEN 1 END) as reviewed_count,
		COUNT(CASE WHEN m.method = 'MANUAL' THEN 1 END) as manual_count,
		COALESCE(AVG(m.confidence), 0) as avg_confidence
	FROM matched_transactions m
	JOIN transactions t ON t.id = m.transaction_id
	WHERE t.user_id = ?
	`

	stats := &MatchStats{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.Total,
		&stats.AutoCount,
		&stats.ReviewedCount,
		&stats.ManualCount,
		&stats.AverageConfidence,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// UpsertDismissal creates or refreshes a dismissal for the pair
func (s *Storage) UpsertDismissal(ctx context.Context, transactionID, occurrenceID string) error {
	query := `
	INSERT INTO dismissed_matches (transaction_id, occurrence_id, dismissed_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT (transaction_id, occurrence_id)
	DO UPDATE SET dismissed_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query, transactionID, occurrenceID)
	return err
}

// ListDismissals returns all dismissals whose transaction id is in the
// given set
func (s *Storage) ListDismissals(ctx context.Context, transactionIDs []string) ([]match.Dismissal, error) {
	if len(transactionIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(transactionIDs))
	placeholders = placeholders[:len(placeholders)-1]

	query := `
	SELECT transaction_id, occurrence_id, dismissed_at
	FROM dismissed_matches
	WHERE transaction_id IN (` + placeholders + `)`

	args := make([]interface{}, len(transactionIDs))
	for i, id := range transactionIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var dismissals []match.Dismissal
	for rows.Next() {
		var d match.Dismissal
		if err := rows.Scan(&d.TransactionID, &d.OccurrenceID, &d.DismissedAt); err != nil {
			return nil, err
		}
		dismissals = append(dismissals, d)
	}

	return dismissals, rows.Err()
}
