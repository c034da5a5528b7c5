package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

func newPinRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func pinRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "account_id", "board_id", "asset_id", "mockup_id", "collection", "image_url",
		"title", "description", "link", "alt_text", "scheduled_for", "status", "retry_count",
		"last_error", "pinterest_pin_id", "published_at", "is_winner", "impressions", "saves",
		"clicks", "engagement_rate", "created_at", "updated_at",
	})
}

func TestPinRepositoryListDueOrdering(t *testing.T) {
	db, mock, cleanup := newPinRepoMock(t)
	defer cleanup()

	repo := NewPinRepository(db)
	now := time.Now().UTC()
	earlier := now.Add(-2 * time.Hour)
	later := now.Add(-10 * time.Minute)
	rows := pinRows().
		AddRow("pin-1", "acct-1", "board-1", nil, nil, "calm", "https://cdn/p1.png",
			"Morning calm", nil, nil, nil, earlier, "scheduled", 0,
			nil, nil, nil, false, 0, 0, 0, 0.0, earlier, earlier).
		AddRow("pin-2", "acct-1", "board-1", nil, nil, "calm", "https://cdn/p2.png",
			"Evening calm", nil, nil, nil, later, "scheduled", 0,
			nil, nil, nil, false, 0, 0, 0, 0.0, later, later)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY scheduled_for ASC LIMIT $2")).
		WithArgs(now, 20).
		WillReturnRows(rows)

	due, err := repo.ListDue(context.Background(), now, 20)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "pin-1", due[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinRepositoryClaimForPublishing(t *testing.T) {
	db, mock, cleanup := newPinRepoMock(t)
	defer cleanup()

	repo := NewPinRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pins SET status = 'publishing'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	claimed, err := repo.ClaimForPublishing(context.Background(), "pin-1")
	require.NoError(t, err)
	require.True(t, claimed)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pins SET status = 'publishing'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	claimed, err = repo.ClaimForPublishing(context.Background(), "pin-1")
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinRepositoryResetForRetryHonorsBudget(t *testing.T) {
	db, mock, cleanup := newPinRepoMock(t)
	defer cleanup()

	repo := NewPinRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pins SET status = 'scheduled', last_error = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	reset, err := repo.ResetForRetry(context.Background(), "pin-exhausted", 3)
	require.NoError(t, err)
	require.False(t, reset)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinRepositoryMarkPublishedAndFailed(t *testing.T) {
	db, mock, cleanup := newPinRepoMock(t)
	defer cleanup()

	repo := NewPinRepository(db)
	publishedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pins SET status = 'published'")).
		WithArgs("pin-1", "ext-123", publishedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkPublished(context.Background(), "pin-1", "ext-123", publishedAt))

	mock.ExpectExec(regexp.QuoteMeta("retry_count = retry_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFailed(context.Background(), "pin-2", "board missing"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinRepositorySetWinnerFlagsTransactional(t *testing.T) {
	db, mock, cleanup := newPinRepoMock(t)
	defer cleanup()

	repo := NewPinRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pins SET is_winner = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pins SET is_winner = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.SetWinnerFlags(context.Background(), "acct-1", []string{"pin-1", "pin-2", "pin-3"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinRepositoryAppendHistoryDefaults(t *testing.T) {
	db, mock, cleanup := newPinRepoMock(t)
	defer cleanup()

	repo := NewPinRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pin_schedule_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.PinScheduleHistory{PinID: "pin-1", Action: "publish", Result: "success"}
	require.NoError(t, repo.AppendHistory(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
