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

const pinColumns = `id, account_id, board_id, asset_id, mockup_id, collection, image_url, title, description, link, alt_text, scheduled_for, status, retry_count, last_error, pinterest_pin_id, published_at, is_winner, impressions, saves, clicks, engagement_rate, created_at, updated_at`

// PinRepository persists pins and their publish state machine. Every state
// transition is a compare-and-set on the current status so the due publisher
// and the retry sweep can never both claim the same row.
type PinRepository struct {
	db *sqlx.DB
}

// NewPinRepository constructs the repository.
func NewPinRepository(db *sqlx.DB) *PinRepository {
	return &PinRepository{db: db}
}

// GetByID returns one pin row.
func (r *PinRepository) GetByID(ctx context.Context, id string) (*models.Pin, error) {
	query := fmt.Sprintf(`SELECT %s FROM pins WHERE id = $1`, pinColumns)
	var pin models.Pin
	if err := r.db.GetContext(ctx, &pin, query, id); err != nil {
		return nil, fmt.Errorf("get pin: %w", err)
	}
	return &pin, nil
}

// List returns pins matching the filter, most recently updated first.
func (r *PinRepository) List(ctx context.Context, filter models.PinFilter) ([]models.Pin, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM pins WHERE account_id = $1`, pinColumns)
	args := []interface{}{filter.AccountID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.IsWinner != nil {
		args = append(args, *filter.IsWinner)
		query += fmt.Sprintf(" AND is_winner = $%d", len(args))
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var pins []models.Pin
	if err := r.db.SelectContext(ctx, &pins, query, args...); err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	return pins, nil
}

// ListDue fetches scheduled pins whose time has come, oldest schedule first,
// capped to bound the run.
func (r *PinRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Pin, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM pins
WHERE status = 'scheduled' AND scheduled_for IS NOT NULL AND scheduled_for <= $1
ORDER BY scheduled_for ASC LIMIT $2`, pinColumns)
	var pins []models.Pin
	if err := r.db.SelectContext(ctx, &pins, query, now, limit); err != nil {
		return nil, fmt.Errorf("list due pins: %w", err)
	}
	return pins, nil
}

// ListRetryable fetches failed pins past the cooldown that still have retry
// budget left.
func (r *PinRepository) ListRetryable(ctx context.Context, cutoff time.Time, maxRetries, limit int) ([]models.Pin, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM pins
WHERE status = 'failed' AND retry_count < $1 AND updated_at < $2
ORDER BY updated_at ASC LIMIT $3`, pinColumns)
	var pins []models.Pin
	if err := r.db.SelectContext(ctx, &pins, query, maxRetries, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list retryable pins: %w", err)
	}
	return pins, nil
}

// ClaimForPublishing moves scheduled -> publishing. Returns false when another
// run already claimed the row.
func (r *PinRepository) ClaimForPublishing(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE pins SET status = 'publishing', updated_at = $2 WHERE id = $1 AND status = 'scheduled'`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim pin: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim pin result: %w", err)
	}
	return affected > 0, nil
}

// MarkPublished finalises a successful publish with the external identifier.
func (r *PinRepository) MarkPublished(ctx context.Context, id, externalID string, at time.Time) error {
	const query = `UPDATE pins SET status = 'published', pinterest_pin_id = $2, published_at = $3, last_error = NULL, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, externalID, at); err != nil {
		return fmt.Errorf("mark pin published: %w", err)
	}
	return nil
}

// MarkFailed records a publish failure and spends one retry.
func (r *PinRepository) MarkFailed(ctx context.Context, id, errMessage string) error {
	const query = `UPDATE pins SET status = 'failed', last_error = $2, retry_count = retry_count + 1, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, errMessage, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark pin failed: %w", err)
	}
	return nil
}

// ResetForRetry moves failed -> scheduled, clearing the last error while
// keeping retry_count for bookkeeping. The guard re-checks the retry budget
// so an exhausted pin can never re-enter the schedule.
func (r *PinRepository) ResetForRetry(ctx context.Context, id string, maxRetries int) (bool, error) {
	const query = `UPDATE pins SET status = 'scheduled', last_error = NULL, updated_at = $3 WHERE id = $1 AND status = 'failed' AND retry_count < $2`
	result, err := r.db.ExecContext(ctx, query, id, maxRetries, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reset pin for retry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset pin result: %w", err)
	}
	return affected > 0, nil
}

// ListPublishedWithEngagement returns published pins carrying an external id,
// optionally restricted to a subset.
func (r *PinRepository) ListPublishedWithEngagement(ctx context.Context, accountID string, ids []string) ([]models.Pin, error) {
	query := fmt.Sprintf(`SELECT %s FROM pins
WHERE account_id = $1 AND status = 'published' AND pinterest_pin_id IS NOT NULL`, pinColumns)
	args := []interface{}{accountID}
	if len(ids) > 0 {
		args = append(args, pq.Array(ids))
		query += fmt.Sprintf(" AND id = ANY($%d)", len(args))
	}
	var pins []models.Pin
	if err := r.db.SelectContext(ctx, &pins, query, args...); err != nil {
		return nil, fmt.Errorf("list published pins: %w", err)
	}
	return pins, nil
}

// SetWinnerFlags resets is_winner for the whole account then raises it for the
// given pins, in one transaction so readers never observe a partial reset.
func (r *PinRepository) SetWinnerFlags(ctx context.Context, accountID string, winnerIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin winner flags tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE pins SET is_winner = FALSE WHERE account_id = $1 AND is_winner = TRUE`, accountID); err != nil {
		return fmt.Errorf("reset winner flags: %w", err)
	}
	if len(winnerIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE pins SET is_winner = TRUE WHERE account_id = $1 AND id = ANY($2)`, accountID, pq.Array(winnerIDs)); err != nil {
			return fmt.Errorf("set winner flags: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit winner flags: %w", err)
	}
	return nil
}

// AppendHistory records one publish attempt outcome.
func (r *PinRepository) AppendHistory(ctx context.Context, entry *models.PinScheduleHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pin_schedule_history (id, pin_id, action, result, error_message, created_at)
VALUES (:id, :pin_id, :action, :result, :error_message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append pin history: %w", err)
	}
	return nil
}
