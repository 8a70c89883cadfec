package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"harambee-pay/internal/models"
	"harambee-pay/internal/mpesa"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventClosed   = errors.New("event is not accepting contributions")
)

// ContributionStore is the contribution persistence surface the service
// needs. Implemented by repository.ContributionRepository.
type ContributionStore interface {
	Create(ctx context.Context, c *models.Contribution) error
	GetByID(ctx context.Context, id string) (*models.Contribution, error)
	ListCompletedByEvent(ctx context.Context, eventID string) ([]*models.Contribution, error)
	SetCheckoutRequestID(ctx context.Context, id, checkoutRequestID string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// EventReader is the read-only event surface used while accepting a
// contribution.
type EventReader interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

// STKPusher submits a push-payment request to the provider. Implemented by
// mpesa.Client.
type STKPusher interface {
	InitiateSTKPush(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
}

type ContributionService struct {
	contributions ContributionStore
	events        EventReader
	pusher        STKPusher
	metrics       *Metrics
	logger        *zap.Logger
}

func NewContributionService(
	contributions ContributionStore,
	events EventReader,
	pusher STKPusher,
	metrics *Metrics,
	logger *zap.Logger,
) *ContributionService {
	return &ContributionService{
		contributions: contributions,
		events:        events,
		pusher:        pusher,
		metrics:       metrics,
		logger:        logger,
	}
}

// Create accepts a contribution and sends the payer an STK push prompt. The
// contribution is persisted pending, with its own id as the account
// reference, before the push goes out; the provider's CheckoutRequestID is
// persisted onto it once the push is acknowledged. An initiation failure
// marks the contribution failed and surfaces the typed error.
func (s *ContributionService) Create(ctx context.Context, req *models.ContributionRequest) (*models.ContributionResponse, error) {
	phone, err := mpesa.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("looking up event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	if event.Status != models.EventStatusActive {
		return nil, ErrEventClosed
	}

	name := req.ContributorName
	if name == "" {
		name = "Anonymous"
	}

	now := time.Now()
	contribution := &models.Contribution{
		ID:               uuid.New().String(),
		EventID:          event.ID,
		ContributorName:  name,
		ContributorPhone: phone,
		Amount:           req.Amount,
		Status:           models.ContributionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.contributions.Create(ctx, contribution); err != nil {
		return nil, fmt.Errorf("saving contribution: %w", err)
	}

	resp, err := s.pusher.InitiateSTKPush(ctx, mpesa.STKPushRequest{
		Phone:            phone,
		Amount:           req.Amount,
		AccountReference: contribution.ID,
		Description:      "Contribution to " + event.Title,
	})
	if err != nil {
		s.metrics.STKPushTotal.WithLabelValues("failed").Inc()
		s.logger.Error("stk push failed",
			zap.String("contribution_id", contribution.ID),
			zap.Error(err))

		if markErr := s.contributions.MarkFailed(ctx, contribution.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark contribution failed",
				zap.String("contribution_id", contribution.ID),
				zap.Error(markErr))
		}
		return nil, err
	}

	s.metrics.STKPushTotal.WithLabelValues("sent").Inc()

	if err := s.contributions.SetCheckoutRequestID(ctx, contribution.ID, resp.CheckoutRequestID); err != nil {
		// The push went out but the tracking id was not persisted; the
		// result callback will arrive unmatched and is left to the sweep.
		s.logger.Error("failed to persist checkout request id",
			zap.String("contribution_id", contribution.ID),
			zap.String("checkout_request_id", resp.CheckoutRequestID),
			zap.Error(err))
		return nil, fmt.Errorf("persisting checkout request id: %w", err)
	}

	contribution.CheckoutRequestID = resp.CheckoutRequestID

	return &models.ContributionResponse{
		Contribution:      contribution,
		CheckoutRequestID: resp.CheckoutRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// Get returns a single contribution, nil when unknown.
func (s *ContributionService) Get(ctx context.Context, id string) (*models.Contribution, error) {
	return s.contributions.GetByID(ctx, id)
}

// ListCompleted returns the completed contributions for an event.
func (s *ContributionService) ListCompleted(ctx context.Context, eventID string) ([]*models.Contribution, error) {
	return s.contributions.ListCompletedByEvent(ctx, eventID)
}
