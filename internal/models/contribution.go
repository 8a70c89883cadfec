package models

import "time"

type ContributionStatus string

const (
	ContributionStatusPending   ContributionStatus = "pending"
	ContributionStatusCompleted ContributionStatus = "completed"
	ContributionStatusFailed    ContributionStatus = "failed"
)

// IsTerminal reports whether a contribution in this status may never
// transition again. Completed and failed are terminal.
func (s ContributionStatus) IsTerminal() bool {
	return s == ContributionStatusCompleted || s == ContributionStatusFailed
}

// Contribution is a single pledged payment toward an event. It is created
// pending before the STK push is sent; the provider's CheckoutRequestID is
// persisted onto it once the push is acknowledged and is the sole key used
// to correlate the asynchronous result callback.
type Contribution struct {
	ID                 string             `json:"id" db:"id"`
	EventID            string             `json:"event_id" db:"event_id"`
	ContributorName    string             `json:"contributor_name" db:"contributor_name"`
	ContributorPhone   string             `json:"contributor_phone" db:"contributor_phone"`
	Amount             float64            `json:"amount" db:"amount"`
	Status             ContributionStatus `json:"status" db:"status"`
	CheckoutRequestID  string             `json:"checkout_request_id,omitempty" db:"checkout_request_id"`
	MpesaReceiptNumber string             `json:"mpesa_receipt_number,omitempty" db:"mpesa_receipt_number"`
	FailureReason      string             `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty" db:"completed_at"`
}

type ContributionRequest struct {
	EventID         string  `json:"event_id" binding:"required"`
	ContributorName string  `json:"contributor_name"`
	Phone           string  `json:"phone" binding:"required"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
}

type ContributionResponse struct {
	Contribution      *Contribution `json:"contribution"`
	CheckoutRequestID string        `json:"checkout_request_id,omitempty"`
	CustomerMessage   string        `json:"customer_message,omitempty"`
}

// Database schema
const ContributionSchema = `
CREATE TABLE IF NOT EXISTS contributions (
    id VARCHAR(36) PRIMARY KEY,
    event_id VARCHAR(36) NOT NULL REFERENCES events(id),
    contributor_name VARCHAR(100) NOT NULL DEFAULT 'Anonymous',
    contributor_phone VARCHAR(20) NOT NULL,
    amount DECIMAL(19, 2) NOT NULL CHECK (amount > 0),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    checkout_request_id VARCHAR(100) UNIQUE,
    mpesa_receipt_number VARCHAR(100),
    failure_reason TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_contributions_event ON contributions(event_id);
CREATE INDEX IF NOT EXISTS idx_contributions_status ON contributions(status);
`
