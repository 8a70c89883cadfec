package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"harambee-pay/internal/models"
)

type fakeSweepStore struct {
	unmatched   []*models.PaymentCallback
	resolvable  map[string]bool
	resolveErr  map[string]error
	resolveArgs []string
}

func (f *fakeSweepStore) ListUnmatchedSuccessCallbacks(ctx context.Context, since time.Time) ([]*models.PaymentCallback, error) {
	return f.unmatched, nil
}

func (f *fakeSweepStore) ResolveUnmatched(ctx context.Context, cb *models.PaymentCallback, window time.Duration) (bool, error) {
	f.resolveArgs = append(f.resolveArgs, cb.ID)
	if err := f.resolveErr[cb.ID]; err != nil {
		return false, err
	}
	return f.resolvable[cb.ID], nil
}

func TestSweepRunOnce(t *testing.T) {
	store := &fakeSweepStore{
		unmatched: []*models.PaymentCallback{
			{ID: "cb1", Status: models.CallbackStatusSuccess, MpesaReceiptNumber: "RCT1"},
			{ID: "cb2", Status: models.CallbackStatusSuccess, MpesaReceiptNumber: "RCT2"},
			{ID: "cb3", Status: models.CallbackStatusSuccess, MpesaReceiptNumber: "RCT3"},
		},
		resolvable: map[string]bool{"cb1": true},
		resolveErr: map[string]error{"cb2": errors.New("db busy")},
	}

	sweep := NewSweepService(store, NewMetrics(prometheus.NewRegistry()), zap.NewNop())

	if err := sweep.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	// Every unmatched callback is attempted; one resolution error does not
	// stop the pass.
	if len(store.resolveArgs) != 3 {
		t.Errorf("resolve attempts = %d, want 3", len(store.resolveArgs))
	}
}

func TestSweepRunOnceNoUnmatched(t *testing.T) {
	store := &fakeSweepStore{}
	sweep := NewSweepService(store, NewMetrics(prometheus.NewRegistry()), zap.NewNop())

	if err := sweep.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(store.resolveArgs) != 0 {
		t.Errorf("resolve attempts = %d, want 0", len(store.resolveArgs))
	}
}
