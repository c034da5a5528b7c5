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

// AssetRepository persists rendered assets.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository constructs the repository.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts a rendered asset row with generated defaults.
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.Status == "" {
		asset.Status = models.AssetStatusPending
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assets (id, account_id, quote_id, format, width, height, file_url, file_key, score_readability, score_contrast, score_composition, score_overall, flags, flag_reasons, status, approved_at, created_at)
VALUES (:id, :account_id, :quote_id, :format, :width, :height, :file_url, :file_key, :score_readability, :score_contrast, :score_composition, :score_overall, :flags, :flag_reasons, :status, :approved_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, asset); err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

// GetByID returns one asset row.
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	const query = `SELECT id, account_id, quote_id, format, width, height, file_url, file_key, score_readability, score_contrast, score_composition, score_overall, flags, flag_reasons, status, approved_at, created_at
FROM assets WHERE id = $1`
	var asset models.Asset
	if err := r.db.GetContext(ctx, &asset, query, id); err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &asset, nil
}

// ListByIDs fetches the named assets for an account.
func (r *AssetRepository) ListByIDs(ctx context.Context, accountID string, ids []string) ([]models.Asset, error) {
	const query = `SELECT id, account_id, quote_id, format, width, height, file_url, file_key, score_readability, score_contrast, score_composition, score_overall, flags, flag_reasons, status, approved_at, created_at
FROM assets WHERE account_id = $1 AND id = ANY($2)`
	var assets []models.Asset
	if err := r.db.SelectContext(ctx, &assets, query, accountID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// UpdateStatus transitions reviewer state, stamping approval time when approved.
func (r *AssetRepository) UpdateStatus(ctx context.Context, id string, status models.AssetStatus, at time.Time) error {
	var approvedAt *time.Time
	if status == models.AssetStatusApproved {
		approvedAt = &at
	}
	const query = `UPDATE assets SET status = $2, approved_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, approvedAt); err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	return nil
}
