package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// ActivityRepository appends audit entries and deferred-retry tasks. Both are
// append-mostly tables; failures here are logged by callers, never fatal.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log appends one activity entry.
func (r *ActivityRepository) Log(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_log (id, account_id, action_type, details, module, reference_id, reference_table, created_at)
VALUES (:id, :account_id, :action_type, :details, :module, :reference_id, :reference_table, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

// EnqueueRetry stores a deferred retry task for a failed operation.
func (r *ActivityRepository) EnqueueRetry(ctx context.Context, task *models.RetryTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = "pending"
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO retry_queue (id, account_id, operation_type, payload, last_error, reference_id, reference_table, status, created_at)
VALUES (:id, :account_id, :operation_type, :payload, :last_error, :reference_id, :reference_table, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("enqueue retry: %w", err)
	}
	return nil
}
