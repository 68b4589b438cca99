// Package ledger holds the transaction model owned by the surrounding
// ledger subsystem. The matching engine only reads transactions and
// attaches or detaches a match record; it never mutates them.
package ledger

import "time"

// Transaction is a single financial event.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AccountID   string    `json:"account_id"`
	CategoryID  string    `json:"category_id,omitempty"` // empty = uncategorized
	Amount      float64   `json:"amount"` // magnitude, direction lives in the category
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
}
