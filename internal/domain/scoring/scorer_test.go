package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planmatch-backend/internal/domain/ledger"
	"planmatch-backend/internal/domain/occurrence"
)

func makeTransaction(amount float64, date time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:         "tx1",
		UserID:     "user1",
		AccountID:  "acct1",
		CategoryID: "cat1",
		Amount:     amount,
		Date:       date,
	}
}

func makeOccurrence(id string, amount float64, expected time.Time) occurrence.PlannedOccurrence {
	return occurrence.PlannedOccurrence{
		ID:               id,
		Name:             "Rent",
		Amount:           amount,
		Type:             occurrence.TypeExpense,
		ExpectedDate:     expected,
		AccountID:        "acct1",
		CategoryID:       "cat1",
		MatchWindowDays:  7,
		AutoMatchEnabled: true,
	}
}

func TestScore_PerfectMatch(t *testing.T) {
	// Exact amount, same day, same category, same account
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(50.00, date)
	occ := makeOccurrence("occ1", 50.00, date)

	cand, ok := Score(tx, occ)

	require.True(t, ok)
	assert.Equal(t, 100, cand.Confidence)
	assert.Contains(t, cand.Reasons, "Exact amount match")
	assert.Contains(t, cand.Reasons, "Same day")
	assert.Contains(t, cand.Reasons, "Category matches")
	assert.Contains(t, cand.Reasons, "Account matches")
}

func TestScore_SilentBand(t *testing.T) {
	// Within tolerance (30) + within 3 days (20) + account (15), category
	// differs: 65 total. Retained, but below the review threshold.
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(52.00, date)
	occ := makeOccurrence("occ1", 50.00, date.AddDate(0, 0, 2))
	occ.MatchTolerance = 5
	occ.CategoryID = "other-category"

	cand, ok := Score(tx, occ)

	require.True(t, ok)
	assert.Equal(t, 65, cand.Confidence)
	assert.GreaterOrEqual(t, cand.Confidence, RetainThreshold)
	assert.Less(t, cand.Confidence, ReviewThreshold)
}

func TestScore_DateWindowIsHardGate(t *testing.T) {
	// Everything else agrees perfectly, but the date falls outside the
	// match window: not scored at all.
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(50.00, date)
	occ := makeOccurrence("occ1", 50.00, date.AddDate(0, 0, 8))

	_, ok := Score(tx, occ)

	assert.False(t, ok)
}

func TestScore_AutoMatchDisabledExcluded(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(50.00, date)
	occ := makeOccurrence("occ1", 50.00, date)
	occ.AutoMatchEnabled = false

	_, ok := Score(tx, occ)

	assert.False(t, ok)
}

func TestScore_BelowRetainThresholdDropped(t *testing.T) {
	// Amount wildly off (0), 5 days out (10), different account and
	// category (0): total 10, dropped.
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(999.00, date)
	tx.AccountID = "other-account"
	tx.CategoryID = "other-category"
	occ := makeOccurrence("occ1", 50.00, date.AddDate(0, 0, 5))

	_, ok := Score(tx, occ)

	assert.False(t, ok)
}

func TestScore_AmountFactors(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		txAmount  float64
		occAmount float64
		tolerance float64
		want      int // amount factor + 30 (same day) + 15 + 15
	}{
		{"exact", 50.00, 50.00, 0, 40 + 60},
		{"within tolerance", 52.00, 50.00, 5, 30 + 60},
		{"within ten percent", 54.00, 50.00, 0, 15 + 60},
		{"beyond ten percent", 60.00, 50.00, 0, 0 + 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := makeTransaction(tt.txAmount, date)
			occ := makeOccurrence("occ1", tt.occAmount, date)
			occ.MatchTolerance = tt.tolerance

			cand, ok := Score(tx, occ)

			require.True(t, ok)
			assert.Equal(t, tt.want, cand.Confidence)
		})
	}
}

func TestScore_DateFactors(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		daysOff  int
		expected int // 40 (exact amount) + date factor + 15 + 15
	}{
		{"same day", 0, 70 + 30},
		{"one day", 1, 70 + 25},
		{"three days", 3, 70 + 20},
		{"in window", 6, 70 + 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := makeTransaction(50.00, date)
			occ := makeOccurrence("occ1", 50.00, date.AddDate(0, 0, tt.daysOff))

			cand, ok := Score(tx, occ)

			require.True(t, ok)
			assert.Equal(t, tt.expected, cand.Confidence)
		})
	}
}

func TestScore_DefaultWindowWhenUnset(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(50.00, date)

	occ := makeOccurrence("occ1", 50.00, date.AddDate(0, 0, 6))
	occ.MatchWindowDays = 0 // falls back to 7

	_, ok := Score(tx, occ)
	assert.True(t, ok)

	occ.ExpectedDate = date.AddDate(0, 0, 8)
	_, ok = Score(tx, occ)
	assert.False(t, ok)
}

func TestScore_CategoryRequiresBothSides(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(50.00, date)
	tx.CategoryID = ""
	occ := makeOccurrence("occ1", 50.00, date)
	occ.CategoryID = ""

	cand, ok := Score(tx, occ)

	// Two empty categories must not count as a match.
	require.True(t, ok)
	assert.Equal(t, 85, cand.Confidence)
	assert.NotContains(t, cand.Reasons, "Category matches")
}

func TestRank_OrdersByConfidenceDescending(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(50.00, date)

	weak := makeOccurrence("weak", 52.00, date.AddDate(0, 0, 2)) // 15+20+15+15 = 65
	strong := makeOccurrence("strong", 50.00, date)              // 100

	ranked := Rank(tx, []occurrence.PlannedOccurrence{weak, strong})

	require.Len(t, ranked, 2)
	assert.Equal(t, "strong", ranked[0].Occurrence.ID)
	assert.Equal(t, "weak", ranked[1].Occurrence.ID)
}

func TestRank_TieBreaksOnDateThenID(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(50.00, date)

	// Both score identically; earlier expected date wins.
	later := makeOccurrence("a-later", 50.00, date.AddDate(0, 0, 1))
	earlier := makeOccurrence("z-earlier", 50.00, date.AddDate(0, 0, -1))

	ranked := Rank(tx, []occurrence.PlannedOccurrence{later, earlier})

	require.Len(t, ranked, 2)
	assert.Equal(t, "z-earlier", ranked[0].Occurrence.ID)

	// Same date: lexicographically smaller id wins.
	twinA := makeOccurrence("occ-a", 50.00, date)
	twinB := makeOccurrence("occ-b", 50.00, date)

	ranked = Rank(tx, []occurrence.PlannedOccurrence{twinB, twinA})

	require.Len(t, ranked, 2)
	assert.Equal(t, "occ-a", ranked[0].Occurrence.ID)
}

func TestRank_FiltersExcluded(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTransaction(50.00, date)

	outOfWindow := makeOccurrence("out", 50.00, date.AddDate(0, 0, 20))
	disabled := makeOccurrence("disabled", 50.00, date)
	disabled.AutoMatchEnabled = false
	good := makeOccurrence("good", 50.00, date)

	ranked := Rank(tx, []occurrence.PlannedOccurrence{outOfWindow, disabled, good})

	require.Len(t, ranked, 1)
	assert.Equal(t, "good", ranked[0].Occurrence.ID)
}
