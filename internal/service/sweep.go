package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"harambee-pay/internal/models"
)

// SweepStore is the persistence surface of the reconciliation sweep.
// Implemented by repository.ReconcileRepository.
type SweepStore interface {
	ListUnmatchedSuccessCallbacks(ctx context.Context, since time.Time) ([]*models.PaymentCallback, error)
	ResolveUnmatched(ctx context.Context, cb *models.PaymentCallback, window time.Duration) (bool, error)
}

// SweepService is the operational fallback for the callback-before-persist
// race: a successful callback can arrive before the checkout request id was
// written onto its contribution, in which case it is logged unmatched. The
// sweep periodically re-examines recent unmatched success callbacks and
// credits one only when a single unambiguous candidate contribution exists;
// everything else is left for manual review.
type SweepService struct {
	store    SweepStore
	logger   *zap.Logger
	metrics  *Metrics
	interval time.Duration
	window   time.Duration
	lookback time.Duration
}

func NewSweepService(store SweepStore, metrics *Metrics, logger *zap.Logger) *SweepService {
	return &SweepService{
		store:    store,
		logger:   logger,
		metrics:  metrics,
		interval: 5 * time.Minute,
		window:   15 * time.Minute,
		lookback: 24 * time.Hour,
	}
}

// Run executes the sweep on a ticker until ctx is cancelled.
func (s *SweepService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *SweepService) RunOnce(ctx context.Context) error {
	callbacks, err := s.store.ListUnmatchedSuccessCallbacks(ctx, time.Now().Add(-s.lookback))
	if err != nil {
		return err
	}
	if len(callbacks) == 0 {
		return nil
	}

	resolved := 0
	for _, cb := range callbacks {
		ok, err := s.store.ResolveUnmatched(ctx, cb, s.window)
		if err != nil {
			s.logger.Error("sweep resolution failed",
				zap.String("callback_id", cb.ID),
				zap.Error(err))
			continue
		}
		if ok {
			resolved++
			s.metrics.SweepResolved.Inc()
			s.logger.Info("sweep credited unmatched callback",
				zap.String("callback_id", cb.ID),
				zap.String("receipt", cb.MpesaReceiptNumber))
		}
	}

	s.logger.Info("reconciliation sweep complete",
		zap.Int("unmatched", len(callbacks)),
		zap.Int("resolved", resolved))

	return nil
}
