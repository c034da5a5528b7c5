package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// ApprovalRepository persists the human review queue.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts a queue entry unless the artifact already has an open one.
// Returns true when a row was inserted.
func (r *ApprovalRepository) Create(ctx context.Context, item *models.ApprovalItem) (bool, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.ApprovalStatusPending
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approval_items (id, account_id, item_type, reference_id, reference_table, payload, confidence_score, flags, priority, status, created_at, resolved_at)
SELECT :id, :account_id, :item_type, :reference_id, :reference_table, :payload, :confidence_score, :flags, :priority, :status, :created_at, :resolved_at
WHERE NOT EXISTS (
	SELECT 1 FROM approval_items
	WHERE reference_table = :reference_table AND reference_id = :reference_id AND status = 'pending'
)`
	result, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return false, fmt.Errorf("create approval item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create approval item result: %w", err)
	}
	return affected > 0, nil
}

// GetByID returns one queue entry.
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalItem, error) {
	const query = `SELECT id, account_id, item_type, reference_id, reference_table, payload, confidence_score, flags, priority, status, created_at, resolved_at
FROM approval_items WHERE id = $1`
	var item models.ApprovalItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get approval item: %w", err)
	}
	return &item, nil
}

// ListPending returns the open queue, flagged items first, oldest first within
// a priority band.
func (r *ApprovalRepository) ListPending(ctx context.Context, accountID string, limit int) ([]models.ApprovalItem, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, account_id, item_type, reference_id, reference_table, payload, confidence_score, flags, priority, status, created_at, resolved_at
FROM approval_items WHERE account_id = $1 AND status = 'pending'
ORDER BY priority DESC, created_at ASC LIMIT $2`
	var items []models.ApprovalItem
	if err := r.db.SelectContext(ctx, &items, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	return items, nil
}

// Resolve closes a queue entry with the reviewer's verdict.
func (r *ApprovalRepository) Resolve(ctx context.Context, id string, status models.ApprovalStatus, at time.Time) error {
	const query = `UPDATE approval_items SET status = $2, resolved_at = $3 WHERE id = $1 AND status = 'pending'`
	if _, err := r.db.ExecContext(ctx, query, id, status, at); err != nil {
		return fmt.Errorf("resolve approval item: %w", err)
	}
	return nil
}
