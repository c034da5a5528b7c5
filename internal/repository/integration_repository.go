package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// IntegrationRepository reads boards and third-party credentials.
type IntegrationRepository struct {
	db *sqlx.DB
}

// NewIntegrationRepository constructs the repository.
func NewIntegrationRepository(db *sqlx.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// GetBoard returns a board scoped to its owning account.
func (r *IntegrationRepository) GetBoard(ctx context.Context, accountID, id string) (*models.Board, error) {
	const query = `SELECT id, account_id, name, pinterest_board_id FROM boards WHERE id = $1 AND account_id = $2`
	var board models.Board
	if err := r.db.GetContext(ctx, &board, query, id, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &board, nil
}

// GetCredential returns the named credential, or nil when the account has not
// connected the provider.
func (r *IntegrationRepository) GetCredential(ctx context.Context, accountID, provider, credentialType string) (*models.Credential, error) {
	const query = `SELECT id, account_id, provider, credential_type, value, expires_at, created_at
FROM credentials WHERE account_id = $1 AND provider = $2 AND credential_type = $3`
	var cred models.Credential
	if err := r.db.GetContext(ctx, &cred, query, accountID, provider, credentialType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &cred, nil
}
