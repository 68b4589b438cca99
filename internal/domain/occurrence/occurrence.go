// Package occurrence models expected cash-flow entries that transactions
// can be matched against.
//
// An occurrence is either stored (a one-off or template-override row that
// is consumed when matched) or virtual (computed on the fly from a
// recurring template for a specific date, never persisted). Virtual
// generation itself lives behind the Source interface; this package only
// defines the shapes.
package occurrence

import (
	"context"
	"time"
)

// Type classifies an occurrence as money in or money out.
type Type string

const (
	TypeExpense Type = "expense"
	TypeIncome  Type = "income"
)

// Matching parameter defaults, applied when an occurrence or template
// leaves them unset.
const (
	DefaultMatchTolerance  = 0.0
	DefaultMatchWindowDays = 7
)

// PlannedOccurrence is an expected cash-flow entry for a specific date.
type PlannedOccurrence struct {
	ID               string    `json:"id"`
	TemplateID       string    `json:"template_id,omitempty"` // empty for one-offs
	Name             string    `json:"name"`
	Amount           float64   `json:"amount"`
	Type             Type      `json:"type"`
	ExpectedDate     time.Time `json:"expected_date"`
	AccountID        string    `json:"account_id"`
	AccountName      string    `json:"account_name,omitempty"`
	CategoryID       string    `json:"category_id,omitempty"`
	CategoryName     string    `json:"category_name,omitempty"`
	IsVirtual        bool      `json:"is_virtual"`
	MatchTolerance   float64   `json:"match_tolerance"`
	MatchWindowDays  int       `json:"match_window_days"`
	AutoMatchEnabled bool      `json:"auto_match_enabled"`
	SkipReview       bool      `json:"skip_review"`
}

// Template is the recurring definition behind virtual occurrences. Its
// amount and matching parameters are inherited by every occurrence it
// produces.
type Template struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	Name             string  `json:"name"`
	Amount           float64 `json:"amount"`
	Type             Type    `json:"type"`
	AccountID        string  `json:"account_id"`
	CategoryID       string  `json:"category_id,omitempty"`
	MatchTolerance   float64 `json:"match_tolerance"`
	MatchWindowDays  int     `json:"match_window_days"`
	AutoMatchEnabled bool    `json:"auto_match_enabled"`
	SkipReview       bool    `json:"skip_review"`
}

// ListOptions narrows a Source query.
type ListOptions struct {
	IncludeVirtual bool
	StartDate      time.Time
	EndDate        time.Time
	AccountID      string // empty = all accounts
}

// Source supplies candidate occurrences for a date window, mixing stored
// rows and virtual entries materialized from templates. The forecast
// subsystem owns the virtual expansion; the matching engine only consumes
// the merged view.
type Source interface {
	ListOccurrences(ctx context.Context, userID string, opts ListOptions) ([]PlannedOccurrence, error)
}
