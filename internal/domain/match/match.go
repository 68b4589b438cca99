// Package match defines the persisted match records and the error
// taxonomy shared by the matching service and its storage layer.
package match

import (
	"errors"
	"time"

	"planmatch-backend/internal/domain/ledger"
	"planmatch-backend/internal/domain/occurrence"
)

// Method records how a match was established.
type Method string

const (
	// MethodAuto is a match created without human review (confidence >= 95).
	MethodAuto Method = "AUTO"
	// MethodAutoReviewed is a suggested match confirmed from the review queue.
	MethodAutoReviewed Method = "AUTO_REVIEWED"
	// MethodManual is an explicit user override, bypassing the scorer.
	MethodManual Method = "MANUAL"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	switch m {
	case MethodAuto, MethodAutoReviewed, MethodManual:
		return true
	}
	return false
}

// MatchedTransaction links a transaction to the planned entry it
// fulfilled. The planned side is a snapshot (template id, expected date,
// amount) rather than a live reference, so history survives deletion of
// the consumed occurrence row.
type MatchedTransaction struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"` // unique: one match per transaction
	TemplateID    string    `json:"template_id,omitempty"`
	ExpectedDate  time.Time `json:"expected_date"`
	Amount        float64   `json:"amount"`
	Confidence    int       `json:"confidence"`
	Method        Method    `json:"method"`
	MatchedAt     time.Time `json:"matched_at"`
}

// Dismissal suppresses a specific (transaction, occurrence) pairing from
// future suggestions. Dismissals never expire.
type Dismissal struct {
	TransactionID string    `json:"transaction_id"`
	OccurrenceID  string    `json:"occurrence_id"`
	DismissedAt   time.Time `json:"dismissed_at"`
}

// PendingMatch is a review-queue entry. It is computed on demand and
// never persisted.
type PendingMatch struct {
	Transaction ledger.Transaction           `json:"transaction"`
	Occurrence  occurrence.PlannedOccurrence `json:"occurrence"`
	Confidence  int                          `json:"confidence"`
	Reasons     []string                     `json:"reasons"`
}

// Sentinel errors raised by lifecycle operations. These are integrity
// violations, not transient failures, so callers never retry locally.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyMatched  = errors.New("transaction already matched")
	ErrInvalidArgument = errors.New("invalid argument")
)
