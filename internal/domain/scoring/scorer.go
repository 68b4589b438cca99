// Package scoring computes confidence scores for pairing a transaction
// with a planned occurrence.
//
// Scoring is pure: four independent factors (amount, date proximity,
// category, account) are summed into a 0-100 confidence, with the date
// window acting as a hard gate rather than a penalty. Callers decide what
// to do with the bands:
//   - below 50: dropped before ranking
//   - [50, 70): retained but never surfaced ("silent band")
//   - [70, 95): surfaced for human review
//   - 95 and up: eligible for automatic matching
package scoring

import (
	"math"
	"sort"
	"time"

	"planmatch-backend/internal/domain/ledger"
	"planmatch-backend/internal/domain/occurrence"
)

// Confidence band boundaries.
const (
	RetainThreshold    = 50
	ReviewThreshold    = 70
	AutoMatchThreshold = 95
	MaxConfidence      = 100
)

// Factor weights.
const (
	amountExactScore     = 40
	amountToleranceScore = 30
	amountNearScore      = 15
	dateSameDayScore     = 30
	dateOneDayScore      = 25
	dateThreeDayScore    = 20
	dateInWindowScore    = 10
	categoryScore        = 15
	accountScore         = 15
)

// epsilon absorbs floating point noise in amount comparisons.
const epsilon = 0.0000001

// Candidate is a scored (transaction, occurrence) pairing.
type Candidate struct {
	Occurrence occurrence.PlannedOccurrence
	Confidence int
	Reasons    []string
}

// Score evaluates a single pairing. The second return value is false when
// the occurrence is not a candidate at all: auto-matching disabled, the
// date falls outside the match window, or the total confidence lands
// below RetainThreshold.
func Score(tx ledger.Transaction, occ occurrence.PlannedOccurrence) (Candidate, bool) {
	if !occ.AutoMatchEnabled {
		return Candidate{}, false
	}

	days := daysApart(tx.Date, occ.ExpectedDate)
	window := occ.MatchWindowDays
	if window <= 0 {
		window = occurrence.DefaultMatchWindowDays
	}
	if days > window {
		return Candidate{}, false
	}

	var confidence int
	var reasons []string

	diff := math.Abs(tx.Amount - occ.Amount)
	switch {
	case diff <= epsilon:
		confidence += amountExactScore
		reasons = append(reasons, "Exact amount match")
	case diff <= occ.MatchTolerance+epsilon:
		confidence += amountToleranceScore
		reasons = append(reasons, "Amount within tolerance")
	case diff <= 0.10*math.Abs(occ.Amount)+epsilon:
		confidence += amountNearScore
		reasons = append(reasons, "Amount within 10%")
	}

	switch {
	case days == 0:
		confidence += dateSameDayScore
		reasons = append(reasons, "Same day")
	case days <= 1:
		confidence += dateOneDayScore
		reasons = append(reasons, "Within 1 day of expected date")
	case days <= 3:
		confidence += dateThreeDayScore
		reasons = append(reasons, "Within 3 days of expected date")
	default:
		confidence += dateInWindowScore
		reasons = append(reasons, "Within match window")
	}

	if tx.CategoryID != "" && occ.CategoryID != "" && tx.CategoryID == occ.CategoryID {
		confidence += categoryScore
		reasons = append(reasons, "Category matches")
	}

	if tx.AccountID == occ.AccountID {
		confidence += accountScore
		reasons = append(reasons, "Account matches")
	}

	if confidence < RetainThreshold {
		return Candidate{}, false
	}

	return Candidate{Occurrence: occ, Confidence: confidence, Reasons: reasons}, true
}

// Rank scores every occurrence against the transaction and returns the
// retained candidates ordered best-first. Ordering is deterministic:
// confidence descending, then earliest expected date, then occurrence id.
func Rank(tx ledger.Transaction, occs []occurrence.PlannedOccurrence) []Candidate {
	candidates := make([]Candidate, 0, len(occs))
	for _, occ := range occs {
		if c, ok := Score(tx, occ); ok {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.Occurrence.ExpectedDate.Equal(b.Occurrence.ExpectedDate) {
			return a.Occurrence.ExpectedDate.Before(b.Occurrence.ExpectedDate)
		}
		return a.Occurrence.ID < b.Occurrence.ID
	})

	return candidates
}

// daysApart returns the whole number of days between two dates,
// ignoring direction.
func daysApart(a, b time.Time) int {
	return int(math.Floor(math.Abs(a.Sub(b).Hours()) / 24))
}
