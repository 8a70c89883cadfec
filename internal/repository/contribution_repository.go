package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"harambee-pay/internal/models"
)

// ErrCheckoutIDAlreadySet is returned when a second attempt is made to
// assign a checkout request id to a contribution. The field is write-once.
var ErrCheckoutIDAlreadySet = errors.New("checkout request id already set")

type ContributionRepository struct {
	db *sql.DB
}

func NewContributionRepository(db *sql.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

func (r *ContributionRepository) Create(ctx context.Context, c *models.Contribution) error {
	query := `
		INSERT INTO contributions (
			id, event_id, contributor_name, contributor_phone, amount,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.EventID,
		c.ContributorName,
		c.ContributorPhone,
		c.Amount,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	)

	return err
}

func (r *ContributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	query := `
		SELECT id, event_id, contributor_name, contributor_phone, amount,
			   status, COALESCE(checkout_request_id, ''),
			   COALESCE(mpesa_receipt_number, ''), COALESCE(failure_reason, ''),
			   created_at, updated_at, completed_at
		FROM contributions WHERE id = $1
	`

	return scanContribution(r.db.QueryRowContext(ctx, query, id))
}

func (r *ContributionRepository) ListCompletedByEvent(ctx context.Context, eventID string) ([]*models.Contribution, error) {
	query := `
		SELECT id, event_id, contributor_name, contributor_phone, amount,
			   status, COALESCE(checkout_request_id, ''),
			   COALESCE(mpesa_receipt_number, ''), COALESCE(failure_reason, ''),
			   created_at, updated_at, completed_at
		FROM contributions
		WHERE event_id = $1 AND status = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID, models.ContributionStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}

	return contributions, rows.Err()
}

// SetCheckoutRequestID persists the provider's tracking id onto a
// contribution. The update is keyed by the local id and applies only while
// the column is still NULL, making the assignment write-once.
func (r *ContributionRepository) SetCheckoutRequestID(ctx context.Context, id, checkoutRequestID string) error {
	query := `
		UPDATE contributions
		SET checkout_request_id = $1, updated_at = $2
		WHERE id = $3 AND checkout_request_id IS NULL
	`

	res, err := r.db.ExecContext(ctx, query, checkoutRequestID, time.Now(), id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCheckoutIDAlreadySet
	}

	return nil
}

// MarkFailed transitions a still-pending contribution to failed, recording
// why. Terminal contributions are left unchanged.
func (r *ContributionRepository) MarkFailed(ctx context.Context, id, reason string) error {
	query := `
		UPDATE contributions
		SET status = $1, failure_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	_, err := r.db.ExecContext(ctx, query,
		models.ContributionStatusFailed,
		reason,
		time.Now(),
		id,
		models.ContributionStatusPending,
	)

	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContribution(row rowScanner) (*models.Contribution, error) {
	c := &models.Contribution{}
	var completedAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.EventID,
		&c.ContributorName,
		&c.ContributorPhone,
		&c.Amount,
		&c.Status,
		&c.CheckoutRequestID,
		&c.MpesaReceiptNumber,
		&c.FailureReason,
		&c.CreatedAt,
		&c.UpdatedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}

	return c, nil
}
