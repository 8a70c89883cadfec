package repository

import (
	"context"
	"database/sql"

	"harambee-pay/internal/models"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (
			id, admin_id, title, description, event_type, organizer_name,
			organizer_phone, target_amount, current_amount, status,
			event_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.AdminID,
		e.Title,
		e.Description,
		e.EventType,
		e.OrganizerName,
		e.OrganizerPhone,
		e.TargetAmount,
		e.CurrentAmount,
		e.Status,
		e.EventDate,
		e.CreatedAt,
		e.UpdatedAt,
	)

	return err
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `
		SELECT id, COALESCE(admin_id, ''), title, description, event_type,
			   organizer_name, organizer_phone, target_amount, current_amount,
			   status, event_date, created_at, updated_at
		FROM events WHERE id = $1
	`

	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *EventRepository) List(ctx context.Context) ([]*models.Event, error) {
	query := `
		SELECT id, COALESCE(admin_id, ''), title, description, event_type,
			   organizer_name, organizer_phone, target_amount, current_amount,
			   status, event_date, created_at, updated_at
		FROM events
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func (r *EventRepository) AddExpenditure(ctx context.Context, exp *models.Expenditure) error {
	query := `
		INSERT INTO expenditures (
			id, event_id, description, amount, category, approved_by,
			receipt_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		exp.ID,
		exp.EventID,
		exp.Description,
		exp.Amount,
		exp.Category,
		exp.ApprovedBy,
		exp.ReceiptURL,
		exp.CreatedAt,
		exp.UpdatedAt,
	)

	return err
}

func (r *EventRepository) ListExpenditures(ctx context.Context, eventID string) ([]*models.Expenditure, error) {
	query := `
		SELECT id, event_id, description, amount, category,
			   COALESCE(approved_by, ''), COALESCE(receipt_url, ''),
			   created_at, updated_at
		FROM expenditures
		WHERE event_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenditures []*models.Expenditure
	for rows.Next() {
		exp := &models.Expenditure{}
		err := rows.Scan(
			&exp.ID,
			&exp.EventID,
			&exp.Description,
			&exp.Amount,
			&exp.Category,
			&exp.ApprovedBy,
			&exp.ReceiptURL,
			&exp.CreatedAt,
			&exp.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		expenditures = append(expenditures, exp)
	}

	return expenditures, rows.Err()
}

func (r *EventRepository) ExpenditureTotal(ctx context.Context, eventID string) (float64, int, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM expenditures WHERE event_id = $1
	`

	var total float64
	var count int
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(&total, &count)
	return total, count, err
}

func scanEvent(row rowScanner) (*models.Event, error) {
	e := &models.Event{}
	var eventDate sql.NullTime

	err := row.Scan(
		&e.ID,
		&e.AdminID,
		&e.Title,
		&e.Description,
		&e.EventType,
		&e.OrganizerName,
		&e.OrganizerPhone,
		&e.TargetAmount,
		&e.CurrentAmount,
		&e.Status,
		&eventDate,
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if eventDate.Valid {
		e.EventDate = &eventDate.Time
	}

	return e, nil
}
