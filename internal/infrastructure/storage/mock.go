package storage

import (
	"context"
	"sort"
	"time"

	"planmatch-backend/internal/domain/ledger"
	"planmatch-backend/internal/domain/match"
	"planmatch-backend/internal/domain/occurrence"
)

// MockRepository is an in-memory implementation of Repository for
// testing. It stores all data in maps, making tests fast and isolated,
// and mirrors the SQLite semantics for uniqueness and consumption.
type MockRepository struct {
	transactions map[string]*ledger.Transaction
	occurrences  map[string]*mockOccurrence
	templates    map[string]*occurrence.Template
	matches      map[string]*match.MatchedTransaction
	dismissals   map[string]match.Dismissal // key: txID + "|" + occID

	// VirtualOccurrences is returned by ListOccurrences alongside stored
	// rows, letting tests stand in for the forecast subsystem's virtual
	// expansion.
	VirtualOccurrences map[string][]occurrence.PlannedOccurrence // keyed by user id

	// Hooks for test assertions
	CreateMatchCalled bool
	LastCreatedMatch  *match.MatchedTransaction
	LastConsumedID    string

	// Error injection for testing error paths
	GetTransactionErr  error
	ListOccurrencesErr error
	CreateMatchErr     error
}

type mockOccurrence struct {
	userID string
	occ    occurrence.PlannedOccurrence
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		transactions:       make(map[string]*ledger.Transaction),
		occurrences:        make(map[string]*mockOccurrence),
		templates:          make(map[string]*occurrence.Template),
		matches:            make(map[string]*match.MatchedTransaction),
		dismissals:         make(map[string]match.Dismissal),
		VirtualOccurrences: make(map[string][]occurrence.PlannedOccurrence),
	}
}

// Compile-time checks
var (
	_ Repository        = (*MockRepository)(nil)
	_ occurrence.Source = (*MockRepository)(nil)
)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// CreateTransaction stores a transaction in the in-memory map
func (m *MockRepository) CreateTransaction(_ context.Context, tx *ledger.Transaction) error {
	copied := *tx
	m.transactions[tx.ID] = &copied
	return nil
}

// GetTransaction returns a transaction by id, or nil when absent
func (m *MockRepository) GetTransaction(_ context.Context, id string) (*ledger.Transaction, error) {
	if m.GetTransactionErr != nil {
		return nil, m.GetTransactionErr
	}
	tx, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *tx
	return &copied, nil
}

// ListUnmatchedTransactions returns unmatched transactions newest-first
func (m *MockRepository) ListUnmatchedTransactions(_ context.Context, userID string, since time.Time, limit int) ([]ledger.Transaction, error) {
	matched := make(map[string]bool)
	for _, mt := range m.matches {
		matched[mt.TransactionID] = true
	}

	var txs []ledger.Transaction
	for _, tx := range m.transactions {
		if tx.UserID != userID || matched[tx.ID] || tx.Date.Before(since) {
			continue
		}
		txs = append(txs, *tx)
	}

	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID > txs[j].ID
	})

	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// CreateOccurrence stores a stored occurrence row
func (m *MockRepository) CreateOccurrence(_ context.Context, userID string, occ *occurrence.PlannedOccurrence) error {
	m.occurrences[occ.ID] = &mockOccurrence{userID: userID, occ: *occ}
	return nil
}

// GetOccurrence returns a stored occurrence scoped to the user
func (m *MockRepository) GetOccurrence(_ context.Context, userID, id string) (*occurrence.PlannedOccurrence, error) {
	row, ok := m.occurrences[id]
	if !ok || row.userID != userID {
		return nil, nil
	}
	copied := row.occ
	return &copied, nil
}

// ListOccurrences returns stored rows in the window plus any configured
// virtual occurrences
func (m *MockRepository) ListOccurrences(_ context.Context, userID string, opts occurrence.ListOptions) ([]occurrence.PlannedOccurrence, error) {
	if m.ListOccurrencesErr != nil {
		return nil, m.ListOccurrencesErr
	}

	var occs []occurrence.PlannedOccurrence
	for _, row := range m.occurrences {
		if row.userID != userID {
			continue
		}
		if row.occ.ExpectedDate.Before(opts.StartDate) || row.occ.ExpectedDate.After(opts.EndDate) {
			continue
		}
		if opts.AccountID != "" && row.occ.AccountID != opts.AccountID {
			continue
		}
		occs = append(occs, row.occ)
	}

	if opts.IncludeVirtual {
		for _, v := range m.VirtualOccurrences[userID] {
			if v.ExpectedDate.Before(opts.StartDate) || v.ExpectedDate.After(opts.EndDate) {
				continue
			}
			if opts.AccountID != "" && v.AccountID != opts.AccountID {
				continue
			}
			occs = append(occs, v)
		}
	}

	sort.Slice(occs, func(i, j int) bool {
		if !occs[i].ExpectedDate.Equal(occs[j].ExpectedDate) {
			return occs[i].ExpectedDate.Before(occs[j].ExpectedDate)
		}
		return occs[i].ID < occs[j].ID
	})

	return occs, nil
}

// CreateTemplate stores a template
func (m *MockRepository) CreateTemplate(_ context.Context, tpl *occurrence.Template) error {
	copied := *tpl
	m.templates[tpl.ID] = &copied
	return nil
}

// GetTemplate returns a template scoped to the user
func (m *MockRepository) GetTemplate(_ context.Context, userID, id string) (*occurrence.Template, error) {
	tpl, ok := m.templates[id]
	if !ok || tpl.UserID != userID {
		return nil, nil
	}
	copied := *tpl
	return &copied, nil
}

// CreateMatchConsuming mirrors the SQLite semantics: one match per
// transaction, and a stored occurrence can only be consumed once
func (m *MockRepository) CreateMatchConsuming(_ context.Context, userID string, mt *match.MatchedTransaction, consumeOccurrenceID string) error {
	m.CreateMatchCalled = true
	m.LastCreatedMatch = mt
	m.LastConsumedID = consumeOccurrenceID

	if m.CreateMatchErr != nil {
		return m.CreateMatchErr
	}

	for _, existing := range m.matches {
		if existing.TransactionID == mt.TransactionID {
			return match.ErrAlreadyMatched
		}
	}

	if consumeOccurrenceID != "" {
		row, ok := m.occurrences[consumeOccurrenceID]
		if !ok || row.userID != userID {
			return match.ErrNotFound
		}
		delete(m.occurrences, consumeOccurrenceID)
	}

	copied := *mt
	m.matches[mt.ID] = &copied
	return nil
}

// GetMatch returns a match by id, or nil when absent
func (m *MockRepository) GetMatch(_ context.Context, id string) (*match.MatchedTransaction, error) {
	mt, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	copied := *mt
	return &copied, nil
}

// GetMatchByTransaction returns the match for a transaction, or nil
func (m *MockRepository) GetMatchByTransaction(_ context.Context, transactionID string) (*match.MatchedTransaction, error) {
	for _, mt := range m.matches {
		if mt.TransactionID == transactionID {
			copied := *mt
			return &copied, nil
		}
	}
	return nil, nil
}

// DeleteMatch removes a match record
func (m *MockRepository) DeleteMatch(_ context.Context, id string) error {
	delete(m.matches, id)
	return nil
}

// ListMatches returns the user's matches newest-first with total count
func (m *MockRepository) ListMatches(_ context.Context, userID string, filters HistoryFilters) ([]match.MatchedTransaction, int, error) {
	var all []match.MatchedTransaction
	for _, mt := range m.matches {
		tx, ok := m.transactions[mt.TransactionID]
		if !ok || tx.UserID != userID {
			continue
		}
		if !filters.StartDate.IsZero() && mt.MatchedAt.Before(filters.StartDate) {
			continue
		}
		if !filters.EndDate.IsZero() && mt.MatchedAt.After(filters.EndDate) {
			continue
		}
		all = append(all, *mt)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].MatchedAt.Equal(all[j].MatchedAt) {
			return all[i].MatchedAt.After(all[j].MatchedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)

	if filters.Offset > 0 {
		if filters.Offset >= len(all) {
			all = nil
		} else {
			all = all[filters.Offset:]
		}
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(all) > limit {
		all = all[:limit]
	}

	return all, total, nil
}

// GetMatchStats returns aggregate counts for the user
func (m *MockRepository) GetMatchStats(_ context.Context, userID string) (*MatchStats, error) {
	stats := &MatchStats{}
	var confidenceSum int

	for _, mt := range m.matches {
		tx, ok := m.transactions[mt.TransactionID]
		if !ok || tx.UserID != userID {
			continue
		}
		stats.Total++
		confidenceSum += mt.Confidence
		switch mt.Method {
		case match.MethodAuto:
			stats.AutoCount++
		case match.MethodAutoReviewed:
			stats.ReviewedCount++
		case match.MethodManual:
			stats.ManualCount++
		}
	}

	if stats.Total > 0 {
		stats.AverageConfidence = float64(confidenceSum) / float64(stats.Total)
	}
	return stats, nil
}

// UpsertDismissal creates or refreshes a dismissal
func (m *MockRepository) UpsertDismissal(_ context.Context, transactionID, occurrenceID string) error {
	key := transactionID + "|" + occurrenceID
	m.dismissals[key] = match.Dismissal{
		TransactionID: transactionID,
		OccurrenceID:  occurrenceID,
		DismissedAt:   time.Now().UTC(),
	}
	return nil
}

// ListDismissals returns dismissals for the given transaction ids
func (m *MockRepository) ListDismissals(_ context.Context, transactionIDs []string) ([]match.Dismissal, error) {
	ids := make(map[string]bool, len(transactionIDs))
	for _, id := range transactionIDs {
		ids[id] = true
	}

	var out []match.Dismissal
	for _, d := range m.dismissals {
		if ids[d.TransactionID] {
			out = append(out, d)
		}
	}
	return out, nil
}
