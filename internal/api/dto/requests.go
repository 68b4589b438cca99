package dto

// ConfirmMatchRequest confirms a suggested pairing from the review queue.
type ConfirmMatchRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	OccurrenceID  string `json:"occurrence_id" binding:"required"`
	Confidence    int    `json:"confidence"`
	Method        string `json:"method"` // defaults to AUTO_REVIEWED
}

// ManualMatchRequest links a transaction to an occurrence directly,
// bypassing the scorer.
type ManualMatchRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	OccurrenceID  string `json:"occurrence_id" binding:"required"`
}

// DismissMatchRequest suppresses a suggested pairing.
type DismissMatchRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	OccurrenceID  string `json:"occurrence_id" binding:"required"`
}

// BatchAutoMatchRequest runs auto-match over a set of transactions.
type BatchAutoMatchRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required"`
}
