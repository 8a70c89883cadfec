package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"harambee-pay/internal/models"
)

// ReconcileRepository applies provider callbacks to the store. Every
// callback is handled inside a single transaction covering the contribution
// lookup, the state transition, the event aggregate increment and the audit
// log append, so concurrent and duplicate deliveries cannot corrupt the
// running total.
type ReconcileRepository struct {
	db *sql.DB
}

func NewReconcileRepository(db *sql.DB) *ReconcileRepository {
	return &ReconcileRepository{db: db}
}

// ApplyCallback matches the callback record to a contribution by checkout
// request id, applies the state-guarded transition plus aggregate update,
// and appends the audit record, all in one transaction. The record's
// ContributionID is filled in when a match is found.
func (r *ReconcileRepository) ApplyCallback(ctx context.Context, rec *models.PaymentCallback) (models.ReconcileOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer tx.Rollback()

	outcome := models.ReconcileOutcomeUnmatched
	if rec.Status == models.CallbackStatusMalformed {
		outcome = models.ReconcileOutcomeMalformed
	}

	if rec.CheckoutRequestID != "" && rec.Status != models.CallbackStatusMalformed {
		var (
			contributionID string
			eventID        string
			amount         float64
			status         models.ContributionStatus
		)

		// Row lock serializes concurrent callbacks for the same intent.
		err := tx.QueryRowContext(ctx, `
			SELECT id, event_id, amount, status
			FROM contributions
			WHERE checkout_request_id = $1
			FOR UPDATE
		`, rec.CheckoutRequestID).Scan(&contributionID, &eventID, &amount, &status)

		switch {
		case err == sql.ErrNoRows:
			// Stray or early callback; log it and move on.
		case err != nil:
			return "", fmt.Errorf("lookup contribution: %w", err)
		default:
			rec.ContributionID = contributionID
			outcome, err = r.applyTransition(ctx, tx, rec, contributionID, eventID, amount, status)
			if err != nil {
				return "", err
			}
		}
	}

	if err := insertCallbackRecord(ctx, tx, rec); err != nil {
		return "", fmt.Errorf("append callback record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit reconcile tx: %w", err)
	}

	return outcome, nil
}

func (r *ReconcileRepository) applyTransition(
	ctx context.Context,
	tx *sql.Tx,
	rec *models.PaymentCallback,
	contributionID, eventID string,
	amount float64,
	status models.ContributionStatus,
) (models.ReconcileOutcome, error) {
	// Terminal states never transition; a repeat delivery is a no-op on
	// both the contribution and the aggregate.
	if status.IsTerminal() {
		return models.ReconcileOutcomeDuplicate, nil
	}

	now := time.Now()

	if rec.Status == models.CallbackStatusSuccess {
		_, err := tx.ExecContext(ctx, `
			UPDATE contributions
			SET status = $1, mpesa_receipt_number = $2, updated_at = $3, completed_at = $3
			WHERE id = $4
		`, models.ContributionStatusCompleted, rec.MpesaReceiptNumber, now, contributionID)
		if err != nil {
			return "", fmt.Errorf("complete contribution: %w", err)
		}

		// The aggregate is credited with the stored intent amount, not the
		// callback-reported one.
		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET current_amount = current_amount + $1, updated_at = $2
			WHERE id = $3
		`, amount, now, eventID)
		if err != nil {
			return "", fmt.Errorf("increment event total: %w", err)
		}

		return models.ReconcileOutcomeCompleted, nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE contributions
		SET status = $1, failure_reason = $2, updated_at = $3
		WHERE id = $4
	`, models.ContributionStatusFailed, rec.ResultDesc, now, contributionID)
	if err != nil {
		return "", fmt.Errorf("fail contribution: %w", err)
	}

	return models.ReconcileOutcomeFailed, nil
}

// ListUnmatchedSuccessCallbacks returns successful callbacks that never
// matched a contribution, received at or after since. Input for the sweep.
func (r *ReconcileRepository) ListUnmatchedSuccessCallbacks(ctx context.Context, since time.Time) ([]*models.PaymentCallback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, COALESCE(checkout_request_id, ''), result_code,
			   COALESCE(result_desc, ''), COALESCE(mpesa_receipt_number, ''),
			   COALESCE(phone_number, ''), COALESCE(amount, 0), received_at
		FROM payment_callbacks
		WHERE contribution_id IS NULL AND status = $1 AND received_at >= $2
		ORDER BY received_at
	`, models.CallbackStatusSuccess, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var callbacks []*models.PaymentCallback
	for rows.Next() {
		cb := &models.PaymentCallback{Status: models.CallbackStatusSuccess}
		err := rows.Scan(
			&cb.ID,
			&cb.CheckoutRequestID,
			&cb.ResultCode,
			&cb.ResultDesc,
			&cb.MpesaReceiptNumber,
			&cb.PhoneNumber,
			&cb.Amount,
			&cb.ReceivedAt,
		)
		if err != nil {
			return nil, err
		}
		callbacks = append(callbacks, cb)
	}

	return callbacks, rows.Err()
}

// ResolveUnmatched tries to credit an unmatched success callback to the
// contribution it belongs to. Two strategies, tried in order:
//
// An exact re-match by checkout request id covers the callback that lands
// just before SetCheckoutRequestID commits: by sweep time the contribution
// carries exactly the id the callback was logged with, so the authoritative
// correlation key applies and the contribution is completed the same way a
// live callback would have.
//
// The fuzzy fallback covers the contribution whose checkout id was never
// persisted at all. Its rule is deliberately strict: the receipt must not
// already be recorded anywhere, and exactly one pending contribution with
// no checkout id, the same normalized phone and the same whole-unit
// amount, created within the window before the callback arrived, may
// exist. Anything ambiguous is left alone.
//
// Returns true when a contribution was credited.
func (r *ReconcileRepository) ResolveUnmatched(ctx context.Context, cb *models.PaymentCallback, window time.Duration) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin sweep tx: %w", err)
	}
	defer tx.Rollback()

	// A receipt already credited means this callback (or its duplicate)
	// was applied by an earlier sweep pass.
	if cb.MpesaReceiptNumber != "" {
		var applied bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM contributions WHERE mpesa_receipt_number = $1)
		`, cb.MpesaReceiptNumber).Scan(&applied)
		if err != nil {
			return false, fmt.Errorf("check receipt: %w", err)
		}
		if applied {
			return false, nil
		}
	}

	if cb.CheckoutRequestID != "" {
		var (
			contributionID string
			eventID        string
			amount         float64
		)
		err = tx.QueryRowContext(ctx, `
			SELECT id, event_id, amount
			FROM contributions
			WHERE checkout_request_id = $1 AND status = $2
			FOR UPDATE
		`, cb.CheckoutRequestID, models.ContributionStatusPending).Scan(&contributionID, &eventID, &amount)
		switch {
		case err == sql.ErrNoRows:
			// No pending contribution carries the id; fall through.
		case err != nil:
			return false, fmt.Errorf("exact re-match: %w", err)
		default:
			if err := completeSwept(ctx, tx, cb, contributionID, eventID, amount); err != nil {
				return false, err
			}
			if err := tx.Commit(); err != nil {
				return false, fmt.Errorf("commit sweep tx: %w", err)
			}
			return true, nil
		}
	}

	if cb.MpesaReceiptNumber == "" || cb.PhoneNumber == "" || cb.Amount <= 0 {
		return false, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_id, amount
		FROM contributions
		WHERE status = $1
		  AND checkout_request_id IS NULL
		  AND contributor_phone = $2
		  AND TRUNC(amount) = TRUNC($3::numeric)
		  AND created_at BETWEEN $4 AND $5
		FOR UPDATE
	`, models.ContributionStatusPending, cb.PhoneNumber, cb.Amount,
		cb.ReceivedAt.Add(-window), cb.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("find sweep candidates: %w", err)
	}

	type candidate struct {
		id      string
		eventID string
		amount  float64
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.eventID, &c.amount); err != nil {
			rows.Close()
			return false, err
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}

	if len(candidates) != 1 {
		return false, nil
	}

	c := candidates[0]
	if err := completeSwept(ctx, tx, cb, c.id, c.eventID, c.amount); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit sweep tx: %w", err)
	}

	return true, nil
}

// completeSwept applies the success transition for a sweep-resolved
// contribution: completed with the callback's receipt, and the event
// aggregate credited with the stored intent amount.
func completeSwept(ctx context.Context, tx *sql.Tx, cb *models.PaymentCallback, contributionID, eventID string, amount float64) error {
	now := time.Now()

	_, err := tx.ExecContext(ctx, `
		UPDATE contributions
		SET status = $1, mpesa_receipt_number = $2, updated_at = $3, completed_at = $3
		WHERE id = $4
	`, models.ContributionStatusCompleted, cb.MpesaReceiptNumber, now, contributionID)
	if err != nil {
		return fmt.Errorf("complete swept contribution: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events
		SET current_amount = current_amount + $1, updated_at = $2
		WHERE id = $3
	`, amount, now, eventID)
	if err != nil {
		return fmt.Errorf("increment event total: %w", err)
	}

	return nil
}

func insertCallbackRecord(ctx context.Context, tx *sql.Tx, rec *models.PaymentCallback) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payment_callbacks (
			id, contribution_id, checkout_request_id, result_code,
			result_desc, mpesa_receipt_number, phone_number, amount,
			status, raw_payload, received_at
		) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)
	`,
		rec.ID,
		rec.ContributionID,
		rec.CheckoutRequestID,
		rec.ResultCode,
		rec.ResultDesc,
		rec.MpesaReceiptNumber,
		rec.PhoneNumber,
		rec.Amount,
		rec.Status,
		jsonPayload(rec.RawPayload),
		rec.ReceivedAt,
	)
	return err
}

// jsonPayload renders a raw callback body for the jsonb audit column.
// Bodies that are not valid JSON are preserved as a JSON string so the
// audit insert succeeds for every callback received, including the ones
// that failed to parse.
func jsonPayload(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return raw
	}
	wrapped, _ := json.Marshal(string(raw))
	return wrapped
}
