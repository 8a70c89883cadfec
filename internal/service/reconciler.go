package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"harambee-pay/internal/models"
	"harambee-pay/internal/mpesa"
)

// ReconcileStore applies one callback to the store as a single atomic unit:
// match by checkout request id, state-guarded transition, event aggregate
// increment and audit log append. Implemented by
// repository.ReconcileRepository.
type ReconcileStore interface {
	ApplyCallback(ctx context.Context, rec *models.PaymentCallback) (models.ReconcileOutcome, error)
}

// ReconcilerService turns raw provider callbacks into contribution state
// transitions. It never panics on bad input: malformed payloads are logged
// as audit records and reported as a malformed outcome, and unknown
// checkout request ids are logged as unmatched. Duplicate deliveries are
// no-ops because the store checks the contribution is still pending before
// applying any effect.
type ReconcilerService struct {
	store   ReconcileStore
	metrics *Metrics
	logger  *zap.Logger
}

func NewReconcilerService(store ReconcileStore, metrics *Metrics, logger *zap.Logger) *ReconcilerService {
	return &ReconcilerService{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Reconcile parses and applies one raw callback body. The returned outcome
// is always valid, even when an error is also returned; callers must
// acknowledge the provider with a 200 regardless.
func (s *ReconcilerService) Reconcile(ctx context.Context, raw []byte) (models.ReconcileOutcome, error) {
	rec := &models.PaymentCallback{
		ID:         uuid.New().String(),
		RawPayload: raw,
		ReceivedAt: time.Now(),
	}

	result, err := mpesa.ParseCallback(raw)
	if err != nil {
		rec.Status = models.CallbackStatusMalformed
		rec.ResultCode = mpesa.ResultCodeMissing
		s.logger.Error("malformed callback", zap.Error(err))

		if _, applyErr := s.store.ApplyCallback(ctx, rec); applyErr != nil {
			s.metrics.CallbacksTotal.WithLabelValues(string(models.ReconcileOutcomeMalformed)).Inc()
			return models.ReconcileOutcomeMalformed, applyErr
		}
		s.metrics.CallbacksTotal.WithLabelValues(string(models.ReconcileOutcomeMalformed)).Inc()
		return models.ReconcileOutcomeMalformed, nil
	}

	rec.CheckoutRequestID = result.CheckoutRequestID
	rec.ResultCode = result.ResultCode
	rec.ResultDesc = result.ResultDesc
	rec.MpesaReceiptNumber = result.MpesaReceiptNumber
	rec.PhoneNumber = result.PhoneNumber
	rec.Amount = result.Amount
	if result.Success() {
		rec.Status = models.CallbackStatusSuccess
	} else {
		rec.Status = models.CallbackStatusFailed
	}

	outcome, err := s.store.ApplyCallback(ctx, rec)
	if err != nil {
		s.logger.Error("failed to apply callback",
			zap.String("checkout_request_id", rec.CheckoutRequestID),
			zap.Error(err))
		return models.ReconcileOutcomeUnmatched, err
	}

	s.metrics.CallbacksTotal.WithLabelValues(string(outcome)).Inc()
	s.logger.Info("callback reconciled",
		zap.String("checkout_request_id", rec.CheckoutRequestID),
		zap.String("outcome", string(outcome)),
		zap.Int("result_code", rec.ResultCode),
		zap.String("contribution_id", rec.ContributionID))

	return outcome, nil
}
