package models

import "time"

type EventType string

const (
	EventTypeBurial    EventType = "burial"
	EventTypeWedding   EventType = "wedding"
	EventTypeCommunity EventType = "community"
	EventTypeMedical   EventType = "medical"
	EventTypeEducation EventType = "education"
	EventTypeOther     EventType = "other"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeBurial, EventTypeWedding, EventTypeCommunity,
		EventTypeMedical, EventTypeEducation, EventTypeOther:
		return true
	}
	return false
}

type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusClosed    EventStatus = "closed"
	EventStatusCompleted EventStatus = "completed"
)

// Event is a fundraising drive. CurrentAmount is derived: it equals the sum
// of completed contribution amounts for the event and is only ever written
// inside a reconciliation transaction, never by request handlers.
type Event struct {
	ID             string      `json:"id" db:"id"`
	AdminID        string      `json:"admin_id" db:"admin_id"`
	Title          string      `json:"title" db:"title"`
	Description    string      `json:"description" db:"description"`
	EventType      EventType   `json:"event_type" db:"event_type"`
	OrganizerName  string      `json:"organizer_name" db:"organizer_name"`
	OrganizerPhone string      `json:"organizer_phone" db:"organizer_phone"`
	TargetAmount   float64     `json:"target_amount" db:"target_amount"`
	CurrentAmount  float64     `json:"current_amount" db:"current_amount"`
	Status         EventStatus `json:"status" db:"status"`
	EventDate      *time.Time  `json:"event_date,omitempty" db:"event_date"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// ProgressPercent returns how far the event is toward its target.
func (e *Event) ProgressPercent() float64 {
	if e.TargetAmount <= 0 {
		return 0
	}
	return e.CurrentAmount / e.TargetAmount * 100
}

type EventRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description" binding:"required"`
	EventType      EventType  `json:"event_type" binding:"required"`
	OrganizerName  string     `json:"organizer_name" binding:"required"`
	OrganizerPhone string     `json:"organizer_phone" binding:"required"`
	TargetAmount   float64    `json:"target_amount" binding:"required,gt=0"`
	EventDate      *time.Time `json:"event_date"`
}

// Database schema
const EventSchema = `
CREATE TABLE IF NOT EXISTS events (
    id VARCHAR(36) PRIMARY KEY,
    admin_id VARCHAR(36),
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL,
    event_type VARCHAR(20) NOT NULL DEFAULT 'community',
    organizer_name VARCHAR(100) NOT NULL,
    organizer_phone VARCHAR(20) NOT NULL,
    target_amount DECIMAL(19, 2) NOT NULL,
    current_amount DECIMAL(19, 2) NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    event_date TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
`
