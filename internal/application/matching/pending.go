package matching

import (
	"context"
	"time"

	"planmatch-backend/internal/domain/match"
	"planmatch-backend/internal/domain/occurrence"
	"planmatch-backend/internal/domain/scoring"
)

// GetPendingMatches builds the review queue: for the user's recent
// unmatched transactions, the best medium-confidence candidate each, one
// suggestion per transaction and at most one per occurrence within this
// pass. Purely a read; nothing is persisted.
//
// The claim set is local to the call. Two concurrent passes can propose
// the same occurrence; only confirmation resolves the race, and then only
// on the transaction side (see the match package invariants).
func (s *Service) GetPendingMatches(ctx context.Context, userID string, limit int) ([]match.PendingMatch, error) {
	if limit <= 0 {
		limit = 50
	}

	since := s.now().UTC().AddDate(0, 0, -s.config.LookbackDays)
	txs, err := s.repo.ListUnmatchedTransactions(ctx, userID, since, s.config.ScanLimit)
	if err != nil {
		return nil, err
	}

	pending := make([]match.PendingMatch, 0, limit)
	if len(txs) == 0 {
		return pending, nil
	}

	// Occurrence window spans the selected transactions, padded on both
	// sides so edge-of-window dates still find their counterpart.
	minDate, maxDate := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(minDate) {
			minDate = tx.Date
		}
		if tx.Date.After(maxDate) {
			maxDate = tx.Date
		}
	}
	pad := time.Duration(s.config.WindowPadDays) * 24 * time.Hour

	occs, err := s.source.ListOccurrences(ctx, userID, occurrence.ListOptions{
		IncludeVirtual: true,
		StartDate:      minDate.Add(-pad),
		EndDate:        maxDate.Add(pad),
	})
	if err != nil {
		return nil, err
	}

	txIDs := make([]string, len(txs))
	for i, tx := range txs {
		txIDs[i] = tx.ID
	}
	dismissals, err := s.repo.ListDismissals(ctx, txIDs)
	if err != nil {
		return nil, err
	}

	suppressed := make(map[string]bool, len(dismissals))
	for _, d := range dismissals {
		suppressed[d.TransactionID+"|"+d.OccurrenceID] = true
	}

	claimed := make(map[string]bool)

	for _, tx := range txs {
		for _, cand := range scoring.Rank(tx, occs) {
			// Review band only: weaker suggestions aren't worth showing,
			// and anything auto-matchable is handled by AutoMatch.
			if cand.Confidence < scoring.ReviewThreshold || cand.Confidence >= scoring.AutoMatchThreshold {
				continue
			}
			if cand.Occurrence.SkipReview {
				continue
			}
			if claimed[cand.Occurrence.ID] || suppressed[tx.ID+"|"+cand.Occurrence.ID] {
				continue
			}

			claimed[cand.Occurrence.ID] = true
			pending = append(pending, match.PendingMatch{
				Transaction: tx,
				Occurrence:  cand.Occurrence,
				Confidence:  cand.Confidence,
				Reasons:     cand.Reasons,
			})
			break
		}

		if len(pending) >= limit {
			break
		}
	}

	return pending, nil
}
