// Package matching implements the match lifecycle: suggesting pairings
// between ledger transactions and planned occurrences, confirming or
// dismissing them, and reading back history.
//
// Every operation is a synchronous request-scoped unit of work taking the
// caller's context and user id. The store's CreateMatchConsuming keeps
// "check unmatched, create match, consume occurrence" atomic, so
// concurrent confirms on the same transaction or occurrence cannot
// violate the one-to-one invariant.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"planmatch-backend/internal/domain/ledger"
	"planmatch-backend/internal/domain/match"
	"planmatch-backend/internal/domain/occurrence"
	"planmatch-backend/internal/domain/scoring"
	"planmatch-backend/internal/infrastructure/storage"
)

// Config holds matching service tuning.
type Config struct {
	// ScanLimit caps how many unmatched transactions one pending-match
	// pass considers.
	ScanLimit int
	// LookbackDays is the trailing window for pending-match candidates.
	LookbackDays int
	// WindowPadDays pads the occurrence window around the selected
	// transactions' date span.
	WindowPadDays int
	// AutoMatchWindowDays bounds the occurrence window around a single
	// transaction during auto-match.
	AutoMatchWindowDays int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ScanLimit:           200,
		LookbackDays:        30,
		WindowPadDays:       7,
		AutoMatchWindowDays: 14,
	}
}

// Service orchestrates the match lifecycle.
type Service struct {
	repo   storage.Repository
	source occurrence.Source
	config Config
	logger *slog.Logger

	now func() time.Time // overridable in tests
}

// NewService creates a matching service.
func NewService(repo storage.Repository, source occurrence.Source, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		source: source,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// ConfirmMatch links a transaction to an occurrence, snapshotting the
// planned side. A stored occurrence is consumed (deleted) in the same
// step; a virtual one only resolves its template for the snapshot.
func (s *Service) ConfirmMatch(ctx context.Context, userID, transactionID, occurrenceID string, confidence int, method match.Method) (*match.MatchedTransaction, error) {
	tx, err := s.ownedTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetMatchByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, match.ErrAlreadyMatched
	}

	ref, err := occurrence.ParseRef(occurrenceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", match.ErrInvalidArgument, err)
	}

	m := &match.MatchedTransaction{
		ID:            uuid.New().String(),
		TransactionID: tx.ID,
		Confidence:    confidence,
		Method:        method,
		MatchedAt:     s.now().UTC(),
	}

	consumeID := ""
	switch r := ref.(type) {
	case occurrence.VirtualRef:
		tpl, err := s.repo.GetTemplate(ctx, userID, r.TemplateID)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, fmt.Errorf("template %s: %w", r.TemplateID, match.ErrNotFound)
		}
		m.TemplateID = tpl.ID
		m.ExpectedDate = r.ExpectedDate
		m.Amount = tpl.Amount

	case occurrence.StoredRef:
		occ, err := s.repo.GetOccurrence(ctx, userID, r.ID)
		if err != nil {
			return nil, err
		}
		if occ == nil {
			return nil, fmt.Errorf("occurrence %s: %w", r.ID, match.ErrNotFound)
		}
		m.TemplateID = occ.TemplateID
		m.ExpectedDate = occ.ExpectedDate
		m.Amount = occ.Amount
		// The actual transaction becomes the source of truth; the
		// forecast entry is consumed.
		consumeID = occ.ID
	}

	if err := s.repo.CreateMatchConsuming(ctx, userID, m, consumeID); err != nil {
		return nil, err
	}

	s.logger.Info("match confirmed",
		"transaction_id", tx.ID,
		"occurrence_id", occurrenceID,
		"confidence", confidence,
		"method", string(method),
	)

	return m, nil
}

// AutoMatchResult reports the outcome of an auto-match attempt.
type AutoMatchResult struct {
	Matched    bool                      `json:"matched"`
	Match      *match.MatchedTransaction `json:"match,omitempty"`
	Confidence int                       `json:"confidence,omitempty"`
}

// AutoMatch scores occurrences near the transaction's date on the same
// account and confirms the best candidate when it clears the auto-match
// threshold. Below the threshold nothing is persisted; the review queue
// is always computed fresh.
func (s *Service) AutoMatch(ctx context.Context, userID, transactionID string) (*AutoMatchResult, error) {
	tx, err := s.ownedTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetMatchByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &AutoMatchResult{Matched: true, Match: existing, Confidence: existing.Confidence}, nil
	}

	window := time.Duration(s.config.AutoMatchWindowDays) * 24 * time.Hour
	occs, err := s.source.ListOccurrences(ctx, userID, occurrence.ListOptions{
		IncludeVirtual: true,
		StartDate:      tx.Date.Add(-window),
		EndDate:        tx.Date.Add(window),
		AccountID:      tx.AccountID,
	})
	if err != nil {
		return nil, err
	}

	candidates := scoring.Rank(*tx, occs)
	if len(candidates) == 0 || candidates[0].Confidence < scoring.AutoMatchThreshold {
		return &AutoMatchResult{Matched: false}, nil
	}

	best := candidates[0]
	m, err := s.ConfirmMatch(ctx, userID, transactionID, best.Occurrence.ID, best.Confidence, match.MethodAuto)
	if err != nil {
		return nil, err
	}

	return &AutoMatchResult{Matched: true, Match: m, Confidence: best.Confidence}, nil
}

// BatchOutcome is the per-transaction result inside a batch auto-match.
type BatchOutcome struct {
	TransactionID string `json:"transaction_id"`
	Matched       bool   `json:"matched"`
	Confidence    int    `json:"confidence,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BatchAutoMatchResult summarizes a batch auto-match run.
type BatchAutoMatchResult struct {
	Matched   int            `json:"matched"`
	Unmatched []string       `json:"unmatched"`
	Results   []BatchOutcome `json:"results"`
}

// BatchAutoMatch runs AutoMatch sequentially over the given transaction
// ids. A failure on one transaction is recorded and never aborts the
// rest of the batch. Sequential on purpose: parallel mutation would make
// the consumption invariants much harder to reason about.
func (s *Service) BatchAutoMatch(ctx context.Context, userID string, transactionIDs []string) (*BatchAutoMatchResult, error) {
	result := &BatchAutoMatchResult{
		Unmatched: make([]string, 0),
		Results:   make([]BatchOutcome, 0, len(transactionIDs)),
	}

	for _, id := range transactionIDs {
		outcome := BatchOutcome{TransactionID: id}

		res, err := s.AutoMatch(ctx, userID, id)
		switch {
		case err != nil:
			outcome.Error = err.Error()
			result.Unmatched = append(result.Unmatched, id)
			s.logger.Warn("auto-match failed", "transaction_id", id, "error", err)
		case res.Matched:
			outcome.Matched = true
			outcome.Confidence = res.Confidence
			result.Matched++
		default:
			result.Unmatched = append(result.Unmatched, id)
		}

		result.Results = append(result.Results, outcome)
	}

	return result, nil
}

// ManualMatch links a transaction to an occurrence as an explicit user
// override: confidence 100, method MANUAL, scorer bypassed entirely.
func (s *Service) ManualMatch(ctx context.Context, userID, transactionID, occurrenceID string) (*match.MatchedTransaction, error) {
	return s.ConfirmMatch(ctx, userID, transactionID, occurrenceID, scoring.MaxConfidence, match.MethodManual)
}

// DismissMatch suppresses a (transaction, occurrence) pairing from
// future suggestions. Idempotent.
func (s *Service) DismissMatch(ctx context.Context, userID, transactionID, occurrenceID string) error {
	if _, err := s.ownedTransaction(ctx, userID, transactionID); err != nil {
		return err
	}
	return s.repo.UpsertDismissal(ctx, transactionID, occurrenceID)
}

// Unmatch deletes a match record, returning the transaction to the
// unmatched state. A stored occurrence consumed by the match is not
// resurrected; only virtual occurrences become matchable again.
func (s *Service) Unmatch(ctx context.Context, userID, matchID string) error {
	m, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("match %s: %w", matchID, match.ErrNotFound)
	}

	// Ownership runs through the matched transaction.
	if _, err := s.ownedTransaction(ctx, userID, m.TransactionID); err != nil {
		return err
	}

	if err := s.repo.DeleteMatch(ctx, m.ID); err != nil {
		return err
	}

	s.logger.Info("match removed", "match_id", m.ID, "transaction_id", m.TransactionID)
	return nil
}

// History is a page of past matches.
type History struct {
	Items []match.MatchedTransaction `json:"items"`
	Total int                        `json:"total"`
}

// GetMatchHistory returns the user's matches newest-first with optional
// matched-at bounds. Empty results are not an error.
func (s *Service) GetMatchHistory(ctx context.Context, userID string, filters storage.HistoryFilters) (*History, error) {
	items, total, err := s.repo.ListMatches(ctx, userID, filters)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]match.MatchedTransaction, 0)
	}
	return &History{Items: items, Total: total}, nil
}

// GetMatchStats returns aggregate match statistics for the user.
func (s *Service) GetMatchStats(ctx context.Context, userID string) (*storage.MatchStats, error) {
	return s.repo.GetMatchStats(ctx, userID)
}

// ownedTransaction loads a transaction and verifies it belongs to the
// user. A transaction owned by someone else is reported as not found
// rather than forbidden, so ids don't leak across users.
func (s *Service) ownedTransaction(ctx context.Context, userID, transactionID string) (*ledger.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.UserID != userID {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, match.ErrNotFound)
	}
	return tx, nil
}
