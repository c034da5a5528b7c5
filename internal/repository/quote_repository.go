package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// QuoteRepository reads and transitions quote rows.
type QuoteRepository struct {
	db *sqlx.DB
}

// NewQuoteRepository constructs the repository.
func NewQuoteRepository(db *sqlx.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// GetByID returns a quote row scoped to its owning account.
func (r *QuoteRepository) GetByID(ctx context.Context, accountID, id string) (*models.Quote, error) {
	const query = `SELECT id, account_id, text, attribution, collection, mood, status, assets_generated, master_image_url, master_image_key, created_at, updated_at
FROM quotes WHERE id = $1 AND account_id = $2`
	var quote models.Quote
	if err := r.db.GetContext(ctx, &quote, query, id, accountID); err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return &quote, nil
}

// UpdateStatus transitions the quote workflow state.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, id string, status models.QuoteStatus) error {
	const query = `UPDATE quotes SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	return nil
}

// FinishGeneration marks the quote active and adds the rendered-format count.
func (r *QuoteRepository) FinishGeneration(ctx context.Context, id string, rendered int) error {
	const query = `UPDATE quotes SET status = $2, assets_generated = assets_generated + $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.QuoteStatusActive, rendered, time.Now().UTC()); err != nil {
		return fmt.Errorf("finish quote generation: %w", err)
	}
	return nil
}
