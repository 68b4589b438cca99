package dto

import (
	"time"

	"planmatch-backend/internal/domain/match"
)

// MatchResponse is the wire form of a persisted match.
type MatchResponse struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	TemplateID    string `json:"template_id,omitempty"`
	ExpectedDate  string `json:"expected_date"`
	Amount        float64 `json:"amount"`
	Confidence    int    `json:"confidence"`
	Method        string `json:"method"`
	MatchedAt     string `json:"matched_at"`
}

// ToMatchResponse converts a domain match to its wire form.
func ToMatchResponse(m *match.MatchedTransaction) MatchResponse {
	return MatchResponse{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		TemplateID:    m.TemplateID,
		ExpectedDate:  m.ExpectedDate.Format(time.DateOnly),
		Amount:        m.Amount,
		Confidence:    m.Confidence,
		Method:        string(m.Method),
		MatchedAt:     m.MatchedAt.Format(time.RFC3339),
	}
}

// PendingMatchListResponse wraps the review queue.
type PendingMatchListResponse struct {
	Pending []match.PendingMatch `json:"pending"`
	Count   int                  `json:"count"`
}

// HistoryResponse is a page of past matches.
type HistoryResponse struct {
	Items  []MatchResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
