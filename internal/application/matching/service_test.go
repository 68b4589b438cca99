package matching

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planmatch-backend/internal/domain/ledger"
	"planmatch-backend/internal/domain/match"
	"planmatch-backend/internal/domain/occurrence"
	"planmatch-backend/internal/infrastructure/storage"
)

var testNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func newTestService(repo *storage.MockRepository) *Service {
	svc := NewService(repo, repo, DefaultConfig(), slog.Default())
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedTransaction(t *testing.T, repo *storage.MockRepository, id, userID string, amount float64, date time.Time) {
	t.Helper()
	err := repo.CreateTransaction(context.Background(), &ledger.Transaction{
		ID:         id,
		UserID:     userID,
		AccountID:  "acct1",
		CategoryID: "cat1",
		Amount:     amount,
		Date:       date,
	})
	require.NoError(t, err)
}

func seedOccurrence(t *testing.T, repo *storage.MockRepository, id, userID string, amount float64, expected time.Time) {
	t.Helper()
	err := repo.CreateOccurrence(context.Background(), userID, &occurrence.PlannedOccurrence{
		ID:               id,
		TemplateID:       "tmpl1",
		Name:             "Rent",
		Amount:           amount,
		Type:             occurrence.TypeExpense,
		ExpectedDate:     expected,
		AccountID:        "acct1",
		CategoryID:       "cat1",
		MatchWindowDays:  7,
		AutoMatchEnabled: true,
	})
	require.NoError(t, err)
}

func TestConfirmMatch_StoredOccurrenceConsumed(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -2)
	seedTransaction(t, repo, "tx1", "user1", 50.00, date)
	seedOccurrence(t, repo, "occ1", "user1", 50.00, date)

	m, err := svc.ConfirmMatch(ctx, "user1", "tx1", "occ1", 88, match.MethodAutoReviewed)

	require.NoError(t, err)
	assert.Equal(t, "tx1", m.TransactionID)
	assert.Equal(t, "tmpl1", m.TemplateID)
	assert.Equal(t, 50.00, m.Amount)
	assert.Equal(t, 88, m.Confidence)
	assert.Equal(t, match.MethodAutoReviewed, m.Method)
	assert.Equal(t, testNow.UTC(), m.MatchedAt)
	assert.Equal(t, "occ1", repo.LastConsumedID)

	// The forecast entry is gone once matched.
	occ, err := repo.GetOccurrence(ctx, "user1", "occ1")
	require.NoError(t, err)
	assert.Nil(t, occ)
}

func TestConfirmMatch_VirtualOccurrenceNotConsumed(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -2)
	seedTransaction(t, repo, "tx1", "user1", 120.00, date)
	require.NoError(t, repo.CreateTemplate(ctx, &occurrence.Template{
		ID:     "tmpl7",
		UserID: "user1",
		Name:   "Gym",
		Amount: 120.00,
		Type:   occurrence.TypeExpense,
	}))

	virtualID := occurrence.VirtualRef{TemplateID: "tmpl7", ExpectedDate: date}.String()
	m, err := svc.ConfirmMatch(ctx, "user1", "tx1", virtualID, 95, match.MethodAuto)

	require.NoError(t, err)
	assert.Equal(t, "tmpl7", m.TemplateID)
	assert.Equal(t, 120.00, m.Amount)
	assert.Empty(t, repo.LastConsumedID)
}

func TestConfirmMatch_AlreadyMatched(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -2)
	seedTransaction(t, repo, "tx1", "user1", 50.00, date)
	seedOccurrence(t, repo, "occ1", "user1", 50.00, date)
	seedOccurrence(t, repo, "occ2", "user1", 50.00, date)

	_, err := svc.ConfirmMatch(ctx, "user1", "tx1", "occ1", 90, match.MethodAutoReviewed)
	require.NoError(t, err)

	_, err = svc.ConfirmMatch(ctx, "user1", "tx1", "occ2", 90, match.MethodAutoReviewed)
	assert.ErrorIs(t, err, match.ErrAlreadyMatched)
}

func TestConfirmMatch_UnknownTransaction(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)

	_, err := svc.ConfirmMatch(context.Background(), "user1", "missing", "occ1", 90, match.MethodAutoReviewed)

	assert.ErrorIs(t, err, match.ErrNotFound)
}

func TestConfirmMatch_OtherUsersTransaction(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)

	date := testNow.AddDate(0, 0, -2)
	seedTransaction(t, repo, "tx1", "user2", 50.00, date)
	seedOccurrence(t, repo, "occ1", "user2", 50.00, date)

	_, err := svc.ConfirmMatch(context.Background(), "user1", "tx1", "occ1", 90, match.MethodAutoReviewed)

	// Not found rather than forbidden: ids must not leak across users.
	assert.ErrorIs(t, err, match.ErrNotFound)
}

func TestConfirmMatch_MalformedVirtualID(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)

	seedTransaction(t, repo, "tx1", "user1", 50.00, testNow)

	_, err := svc.ConfirmMatch(context.Background(), "user1", "tx1", "virtual_tmpl7", 90, match.MethodAutoReviewed)

	assert.ErrorIs(t, err, match.ErrInvalidArgument)
	assert.False(t, repo.CreateMatchCalled)
}

func TestConfirmMatch_UnknownTemplate(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)

	seedTransaction(t, repo, "tx1", "user1", 50.00, testNow)

	virtualID := occurrence.VirtualRef{TemplateID: "nope", ExpectedDate: testNow}.String()
	_, err := svc.ConfirmMatch(context.Background(), "user1", "tx1", virtualID, 90, match.MethodAutoReviewed)

	assert.ErrorIs(t, err, match.ErrNotFound)
}

func TestAutoMatch_HighConfidence(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -1)
	seedTransaction(t, repo, "tx1", "user1", 75.00, date)
	seedOccurrence(t, repo, "occ1", "user1", 75.00, date) // exact+same day+category+account = 100

	result, err := svc.AutoMatch(ctx, "user1", "tx1")

	require.NoError(t, err)
	assert.True(t, result.Matched)
	require.NotNil(t, result.Match)
	assert.Equal(t, match.MethodAuto, result.Match.Method)
	assert.Equal(t, 100, result.Confidence)
	assert.Equal(t, "occ1", repo.LastConsumedID)
}

func TestAutoMatch_BelowThresholdPersistsNothing(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -1)
	seedTransaction(t, repo, "tx1", "user1", 75.00, date)
	// Exact amount but two days off: 40+20+15+15 = 90, below the bar.
	seedOccurrence(t, repo, "occ1", "user1", 75.00, date.AddDate(0, 0, 2))

	result, err := svc.AutoMatch(ctx, "user1", "tx1")

	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Nil(t, result.Match)
	assert.False(t, repo.CreateMatchCalled)

	// Occurrence survives for a later review pass.
	occ, err := repo.GetOccurrence(ctx, "user1", "occ1")
	require.NoError(t, err)
	assert.NotNil(t, occ)
}

func TestAutoMatch_ExistingMatchReturned(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -1)
	seedTransaction(t, repo, "tx1", "user1", 75.00, date)
	seedOccurrence(t, repo, "occ1", "user1", 75.00, date)

	first, err := svc.AutoMatch(ctx, "user1", "tx1")
	require.NoError(t, err)
	require.True(t, first.Matched)

	second, err := svc.AutoMatch(ctx, "user1", "tx1")
	require.NoError(t, err)
	assert.True(t, second.Matched)
	assert.Equal(t, first.Match.ID, second.Match.ID)
}

func TestBatchAutoMatch_IsolatesFailures(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -1)
	seedTransaction(t, repo, "tx-good", "user1", 75.00, date)
	seedOccurrence(t, repo, "occ1", "user1", 75.00, date)
	seedTransaction(t, repo, "tx-weak", "user1", 999.00, date)

	result, err := svc.BatchAutoMatch(ctx, "user1", []string{"tx-good", "tx-missing", "tx-weak"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.ElementsMatch(t, []string{"tx-missing", "tx-weak"}, result.Unmatched)
	require.Len(t, result.Results, 3)

	assert.True(t, result.Results[0].Matched)
	assert.Equal(t, 100, result.Results[0].Confidence)

	assert.False(t, result.Results[1].Matched)
	assert.NotEmpty(t, result.Results[1].Error)

	assert.False(t, result.Results[2].Matched)
	assert.Empty(t, result.Results[2].Error)
}

func TestManualMatch(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -30)
	seedTransaction(t, repo, "tx1", "user1", 12.34, date)
	seedOccurrence(t, repo, "occ1", "user1", 500.00, testNow) // scorer would never pair these

	m, err := svc.ManualMatch(ctx, "user1", "tx1", "occ1")

	require.NoError(t, err)
	assert.Equal(t, 100, m.Confidence)
	assert.Equal(t, match.MethodManual, m.Method)
	assert.Equal(t, "occ1", repo.LastConsumedID)
}

func TestDismissMatch_Idempotent(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	seedTransaction(t, repo, "tx1", "user1", 50.00, testNow)

	require.NoError(t, svc.DismissMatch(ctx, "user1", "tx1", "occ1"))
	require.NoError(t, svc.DismissMatch(ctx, "user1", "tx1", "occ1"))

	dismissals, err := repo.ListDismissals(ctx, []string{"tx1"})
	require.NoError(t, err)
	assert.Len(t, dismissals, 1)
}

func TestDismissMatch_UnknownTransaction(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)

	err := svc.DismissMatch(context.Background(), "user1", "missing", "occ1")

	assert.ErrorIs(t, err, match.ErrNotFound)
}

func TestUnmatch(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -2)
	seedTransaction(t, repo, "tx1", "user1", 50.00, date)
	seedOccurrence(t, repo, "occ1", "user1", 50.00, date)

	m, err := svc.ConfirmMatch(ctx, "user1", "tx1", "occ1", 90, match.MethodAutoReviewed)
	require.NoError(t, err)

	require.NoError(t, svc.Unmatch(ctx, "user1", m.ID))

	existing, err := repo.GetMatchByTransaction(ctx, "tx1")
	require.NoError(t, err)
	assert.Nil(t, existing)

	// The consumed occurrence does not come back.
	occ, err := repo.GetOccurrence(ctx, "user1", "occ1")
	require.NoError(t, err)
	assert.Nil(t, occ)
}

func TestUnmatch_UnknownMatch(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)

	err := svc.Unmatch(context.Background(), "user1", "missing")

	assert.ErrorIs(t, err, match.ErrNotFound)
}

func TestUnmatch_OtherUsersMatch(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	date := testNow.AddDate(0, 0, -2)
	seedTransaction(t, repo, "tx1", "user2", 50.00, date)
	seedOccurrence(t, repo, "occ1", "user2", 50.00, date)

	m, err := svc.ConfirmMatch(ctx, "user2", "tx1", "occ1", 90, match.MethodAutoReviewed)
	require.NoError(t, err)

	err = svc.Unmatch(ctx, "user1", m.ID)
	assert.ErrorIs(t, err, match.ErrNotFound)

	// Still there for its owner.
	kept, err := repo.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestGetMatchHistory_EmptyIsNotError(t *testing.T) {
	repo := storage.NewMockRepository()
	svc := newTestService(repo)

	history, err := svc.GetMatchHistory(context.Background(), "user1", storage.HistoryFilters{})

	require.NoError(t, err)
	assert.NotNil(t, history.Items)
	assert.Empty(t, history.Items)
	assert.Zero(t, history.Total)
}
