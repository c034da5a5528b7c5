package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// MockupRepository persists composited mockups and scene templates.
type MockupRepository struct {
	db *sqlx.DB
}

// NewMockupRepository constructs the repository.
func NewMockupRepository(db *sqlx.DB) *MockupRepository {
	return &MockupRepository{db: db}
}

// Create inserts a mockup row with generated defaults.
func (r *MockupRepository) Create(ctx context.Context, mockup *models.Mockup) error {
	if mockup.ID == "" {
		mockup.ID = uuid.NewString()
	}
	if mockup.Status == "" {
		mockup.Status = models.MockupStatusPending
	}
	if mockup.CreatedAt.IsZero() {
		mockup.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO mockups (id, account_id, asset_id, quote_id, scene, file_url, file_key, status, credits_used, last_error, approved_at, created_at)
VALUES (:id, :account_id, :asset_id, :quote_id, :scene, :file_url, :file_key, :status, :credits_used, :last_error, :approved_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mockup); err != nil {
		return fmt.Errorf("create mockup: %w", err)
	}
	return nil
}

// GetByID returns one mockup row.
func (r *MockupRepository) GetByID(ctx context.Context, id string) (*models.Mockup, error) {
	const query = `SELECT id, account_id, asset_id, quote_id, scene, file_url, file_key, status, credits_used, last_error, approved_at, created_at
FROM mockups WHERE id = $1`
	var mockup models.Mockup
	if err := r.db.GetContext(ctx, &mockup, query, id); err != nil {
		return nil, fmt.Errorf("get mockup: %w", err)
	}
	return &mockup, nil
}

// UpdateStatus transitions reviewer state, stamping approval time when approved.
func (r *MockupRepository) UpdateStatus(ctx context.Context, id string, status models.MockupStatus, at time.Time) error {
	var approvedAt *time.Time
	if status == models.MockupStatusApproved {
		approvedAt = &at
	}
	const query = `UPDATE mockups SET status = $2, approved_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, approvedAt); err != nil {
		return fmt.Errorf("update mockup status: %w", err)
	}
	return nil
}

// MarkReady records a successful composite.
func (r *MockupRepository) MarkReady(ctx context.Context, id, fileURL string, creditsUsed int) error {
	const query = `UPDATE mockups SET status = 'ready', file_url = $2, credits_used = $3, last_error = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, fileURL, creditsUsed); err != nil {
		return fmt.Errorf("mark mockup ready: %w", err)
	}
	return nil
}

// MarkFailed records a failed composite.
func (r *MockupRepository) MarkFailed(ctx context.Context, id, errMessage string) error {
	const query = `UPDATE mockups SET status = 'failed', last_error = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, errMessage); err != nil {
		return fmt.Errorf("mark mockup failed: %w", err)
	}
	return nil
}

// ListSceneTemplates resolves active scene templates by key for an account,
// including system templates.
func (r *MockupRepository) ListSceneTemplates(ctx context.Context, accountID string, sceneKeys []string) ([]models.SceneTemplate, error) {
	const query = `SELECT id, account_id, scene_key, name, template_id, smart_object, width, height, is_active
FROM mockup_scene_templates
WHERE scene_key = ANY($1) AND is_active = TRUE AND (account_id = $2 OR account_id IS NULL)`
	var templates []models.SceneTemplate
	if err := r.db.SelectContext(ctx, &templates, query, pq.Array(sceneKeys), accountID); err != nil {
		return nil, fmt.Errorf("list scene templates: %w", err)
	}
	return templates, nil
}
