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

func newApprovalRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApprovalRepositoryCreateSkipsDuplicateOpenItem(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approval_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.ApprovalItem{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-1",
		ReferenceTable: models.ReferenceAssets,
		Confidence:     0.72,
		Priority:       1,
	}
	inserted, err := repo.Create(context.Background(), item)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, models.ApprovalStatusPending, item.Status)

	// Same artifact again while the first item is still open.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approval_items")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	inserted, err = repo.Create(context.Background(), &models.ApprovalItem{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-1",
		ReferenceTable: models.ReferenceAssets,
	})
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryListPendingOrder(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "account_id", "item_type", "reference_id", "reference_table", "payload", "confidence_score", "flags", "priority", "status", "created_at", "resolved_at"}).
		AddRow("ap-1", "acct-1", "asset", "asset-1", "assets", []byte(`{}`), 0.55, "{low_contrast}", 2, "pending", created, nil).
		AddRow("ap-2", "acct-1", "mockup", "mockup-1", "mockups", []byte(`{}`), 0.80, "{}", 1, "pending", created, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY priority DESC, created_at ASC")).
		WithArgs("acct-1", 50).
		WillReturnRows(rows)

	items, err := repo.ListPending(context.Background(), "acct-1", 50)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "ap-1", items[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryResolve(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_items SET status = $2")).
		WithArgs("ap-1", models.ApprovalStatusApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Resolve(context.Background(), "ap-1", models.ApprovalStatusApproved, time.Now().UTC()))
	require.NoError(t, mock.ExpectationsWereMet())
}
