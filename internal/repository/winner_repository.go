package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// WinnerRepository persists ranking runs. A run is always a full replacement
// of the account's rows so two concurrent refreshes cannot interleave.
type WinnerRepository struct {
	db *sqlx.DB
}

// NewWinnerRepository constructs the repository.
func NewWinnerRepository(db *sqlx.DB) *WinnerRepository {
	return &WinnerRepository{db: db}
}

// ReplaceForAccount swaps the account's winner set in one transaction.
func (r *WinnerRepository) ReplaceForAccount(ctx context.Context, accountID string, winners []models.Winner) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin winner replace tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM pin_winners WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("clear winners: %w", err)
	}

	const insert = `INSERT INTO pin_winners (id, account_id, pin_id, collection, rank, score, metrics, calculated_at)
VALUES (:id, :account_id, :pin_id, :collection, :rank, :score, :metrics, :calculated_at)`
	for i := range winners {
		if winners[i].ID == "" {
			winners[i].ID = uuid.NewString()
		}
		if winners[i].CalculatedAt.IsZero() {
			winners[i].CalculatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, insert, winners[i]); err != nil {
			return fmt.Errorf("insert winner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit winner replace: %w", err)
	}
	return nil
}

// ListByAccount returns the current ranking, grouped by collection and ranked
// within it.
func (r *WinnerRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Winner, error) {
	const query = `SELECT id, account_id, pin_id, collection, rank, score, metrics, calculated_at
FROM pin_winners WHERE account_id = $1 ORDER BY collection ASC, rank ASC`
	var winners []models.Winner
	if err := r.db.SelectContext(ctx, &winners, query, accountID); err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	return winners, nil
}
