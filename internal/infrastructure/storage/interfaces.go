package storage

import (
	"context"
	"time"

	"planmatch-backend/internal/domain/ledger"
	"planmatch-backend/internal/domain/match"
	"planmatch-backend/internal/domain/occurrence"
)

// Repository defines the complete storage interface. Splitting it per
// concern keeps mocks small and allows swapping implementations.
type Repository interface {
	TransactionRepository
	OccurrenceRepository
	MatchRepository
	DismissalRepository
	Close() error
}

// TransactionRepository reads and seeds ledger transactions. The wider
// ledger subsystem owns transaction CRUD; the matching engine only needs
// lookups and the unmatched listing.
type TransactionRepository interface {
	// CreateTransaction inserts a transaction row.
	CreateTransaction(ctx context.Context, tx *ledger.Transaction) error

	// GetTransaction returns a transaction by id, or nil when absent.
	GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error)

	// ListUnmatchedTransactions returns the user's transactions dated on
	// or after since that have no match record, most recent first.
	ListUnmatchedTransactions(ctx context.Context, userID string, since time.Time, limit int) ([]ledger.Transaction, error)
}

// OccurrenceRepository persists stored occurrences and the templates
// behind virtual ones. ListOccurrences satisfies occurrence.Source for
// the stored half of the forecast; virtual expansion lives elsewhere.
type OccurrenceRepository interface {
	// CreateOccurrence inserts a stored occurrence row for the user.
	CreateOccurrence(ctx context.Context, userID string, occ *occurrence.PlannedOccurrence) error

	// GetOccurrence returns a stored occurrence by id, scoped to the
	// user, or nil when absent.
	GetOccurrence(ctx context.Context, userID, id string) (*occurrence.PlannedOccurrence, error)

	// ListOccurrences returns the user's stored occurrences whose
	// expected date falls within the options' window.
	ListOccurrences(ctx context.Context, userID string, opts occurrence.ListOptions) ([]occurrence.PlannedOccurrence, error)

	// CreateTemplate inserts a recurring template.
	CreateTemplate(ctx context.Context, tpl *occurrence.Template) error

	// GetTemplate returns a template by id, scoped to the user, or nil
	// when absent.
	GetTemplate(ctx context.Context, userID, id string) (*occurrence.Template, error)
}

// MatchRepository persists match records.
type MatchRepository interface {
	// CreateMatchConsuming inserts the match and, when
	// consumeOccurrenceID is non-empty, deletes that stored occurrence in
	// the same database transaction. Returns match.ErrAlreadyMatched when
	// the transaction already has a match and match.ErrNotFound when the
	// occurrence row was already consumed by a concurrent call.
	CreateMatchConsuming(ctx context.Context, userID string, m *match.MatchedTransaction, consumeOccurrenceID string) error

	// GetMatch returns a match by id, or nil when absent.
	GetMatch(ctx context.Context, id string) (*match.MatchedTransaction, error)

	// GetMatchByTransaction returns the match for a transaction, or nil
	// when the transaction is unmatched.
	GetMatchByTransaction(ctx context.Context, transactionID string) (*match.MatchedTransaction, error)

	// DeleteMatch removes a match record.
	DeleteMatch(ctx context.Context, id string) error

	// ListMatches returns the user's matches newest-first with the total
	// count for pagination.
	ListMatches(ctx context.Context, userID string, filters HistoryFilters) ([]match.MatchedTransaction, int, error)

	// GetMatchStats returns aggregate match statistics for the user.
	GetMatchStats(ctx context.Context, userID string) (*MatchStats, error)
}

// DismissalRepository persists suggestion suppressions.
type DismissalRepository interface {
	// UpsertDismissal creates or refreshes a dismissal for the pair.
	UpsertDismissal(ctx context.Context, transactionID, occurrenceID string) error

	// ListDismissals returns all dismissals whose transaction id is in
	// the given set.
	ListDismissals(ctx context.Context, transactionIDs []string) ([]match.Dismissal, error)
}

// HistoryFilters narrows and pages the match history listing. Zero dates
// mean unbounded.
type HistoryFilters struct {
	StartDate time.Time
	EndDate   time.Time
	Limit     int // 0 = default 50
	Offset    int
}

// MatchStats contains aggregate match counts for a user.
type MatchStats struct {
	Total             int     `json:"total"`
	AutoCount         int     `json:"auto_count"`
	ReviewedCount     int     `json:"reviewed_count"`
	ManualCount       int     `json:"manual_count"`
	AverageConfidence float64 `json:"average_confidence"`
}
