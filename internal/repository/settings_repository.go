package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// SettingsRepository reads the account approval policy.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the account's operator settings, or nil when none are stored so
// callers fall back to defaults.
func (r *SettingsRepository) Get(ctx context.Context, accountID string) (*models.OperatorSettings, error) {
	const query = `SELECT account_id, global_mode, module_overrides, quality_threshold
FROM operator_settings WHERE account_id = $1`
	var settings models.OperatorSettings
	if err := r.db.GetContext(ctx, &settings, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get operator settings: %w", err)
	}
	return &settings, nil
}
