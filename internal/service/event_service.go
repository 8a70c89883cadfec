package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"harambee-pay/internal/models"
)

// EventStore is the event persistence surface. Implemented by
// repository.EventRepository.
type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	AddExpenditure(ctx context.Context, exp *models.Expenditure) error
	ListExpenditures(ctx context.Context, eventID string) ([]*models.Expenditure, error)
	ExpenditureTotal(ctx context.Context, eventID string) (float64, int, error)
}

type EventService struct {
	events EventStore
}

func NewEventService(events EventStore) *EventService {
	return &EventService{events: events}
}

func (s *EventService) Create(ctx context.Context, req *models.EventRequest) (*models.Event, error) {
	if !req.EventType.Valid() {
		return nil, fmt.Errorf("unknown event type %q", req.EventType)
	}

	now := time.Now()
	event := &models.Event{
		ID:             uuid.New().String(),
		Title:          req.Title,
		Description:    req.Description,
		EventType:      req.EventType,
		OrganizerName:  req.OrganizerName,
		OrganizerPhone: req.OrganizerPhone,
		TargetAmount:   req.TargetAmount,
		Status:         models.EventStatusActive,
		EventDate:      req.EventDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("saving event: %w", err)
	}

	return event, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.events.GetByID(ctx, id)
}

func (s *EventService) List(ctx context.Context) ([]*models.Event, error) {
	return s.events.List(ctx)
}

func (s *EventService) AddExpenditure(ctx context.Context, eventID string, req *models.ExpenditureRequest) (*models.Expenditure, error) {
	if !req.Category.Valid() {
		return nil, fmt.Errorf("unknown expenditure category %q", req.Category)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("looking up event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	now := time.Now()
	exp := &models.Expenditure{
		ID:          uuid.New().String(),
		EventID:     event.ID,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		ApprovedBy:  req.ApprovedBy,
		ReceiptURL:  req.ReceiptURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.events.AddExpenditure(ctx, exp); err != nil {
		return nil, fmt.Errorf("saving expenditure: %w", err)
	}

	return exp, nil
}

func (s *EventService) ListExpenditures(ctx context.Context, eventID string) ([]*models.Expenditure, error) {
	return s.events.ListExpenditures(ctx, eventID)
}

// ExpenditureSummary reports raised vs spent for an event.
func (s *EventService) ExpenditureSummary(ctx context.Context, eventID string) (*models.ExpenditureSummary, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("looking up event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	total, count, err := s.events.ExpenditureTotal(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("summing expenditures: %w", err)
	}

	return &models.ExpenditureSummary{
		EventID:          event.ID,
		TotalRaised:      event.CurrentAmount,
		TotalExpenditure: total,
		Remaining:        event.CurrentAmount - total,
		ExpenditureCount: count,
	}, nil
}
