package models

import "time"

type ExpenditureCategory string

const (
	ExpenditureCategorySupplies  ExpenditureCategory = "supplies"
	ExpenditureCategoryLabor     ExpenditureCategory = "labor"
	ExpenditureCategoryTransport ExpenditureCategory = "transport"
	ExpenditureCategoryVenue     ExpenditureCategory = "venue"
	ExpenditureCategoryCatering  ExpenditureCategory = "catering"
	ExpenditureCategoryMedicine  ExpenditureCategory = "medicine"
	ExpenditureCategoryUtilities ExpenditureCategory = "utilities"
	ExpenditureCategoryOther     ExpenditureCategory = "other"
)

// Valid reports whether c is one of the known categories.
func (c ExpenditureCategory) Valid() bool {
	switch c {
	case ExpenditureCategorySupplies, ExpenditureCategoryLabor,
		ExpenditureCategoryTransport, ExpenditureCategoryVenue,
		ExpenditureCategoryCatering, ExpenditureCategoryMedicine,
		ExpenditureCategoryUtilities, ExpenditureCategoryOther:
		return true
	}
	return false
}

// Expenditure records money spent out of an event's raised funds.
type Expenditure struct {
	ID          string              `json:"id" db:"id"`
	EventID     string              `json:"event_id" db:"event_id"`
	Description string              `json:"description" db:"description"`
	Amount      float64             `json:"amount" db:"amount"`
	Category    ExpenditureCategory `json:"category" db:"category"`
	ApprovedBy  string              `json:"approved_by,omitempty" db:"approved_by"`
	ReceiptURL  string              `json:"receipt_url,omitempty" db:"receipt_url"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

type ExpenditureRequest struct {
	Description string              `json:"description" binding:"required"`
	Amount      float64             `json:"amount" binding:"required,gt=0"`
	Category    ExpenditureCategory `json:"category" binding:"required"`
	ApprovedBy  string              `json:"approved_by"`
	ReceiptURL  string              `json:"receipt_url"`
}

// ExpenditureSummary is the spend-vs-raised report for an event.
type ExpenditureSummary struct {
	EventID          string  `json:"event_id"`
	TotalRaised      float64 `json:"total_raised"`
	TotalExpenditure float64 `json:"total_expenditure"`
	Remaining        float64 `json:"remaining"`
	ExpenditureCount int     `json:"expenditure_count"`
}

// Database schema
const ExpenditureSchema = `
CREATE TABLE IF NOT EXISTS expenditures (
    id VARCHAR(36) PRIMARY KEY,
    event_id VARCHAR(36) NOT NULL REFERENCES events(id),
    description VARCHAR(200) NOT NULL,
    amount DECIMAL(19, 2) NOT NULL CHECK (amount > 0),
    category VARCHAR(20) NOT NULL DEFAULT 'other',
    approved_by VARCHAR(100),
    receipt_url VARCHAR(500),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_expenditures_event ON expenditures(event_id);
`
