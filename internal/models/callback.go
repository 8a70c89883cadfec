package models

import (
	"encoding/json"
	"time"
)

type CallbackStatus string

const (
	CallbackStatusSuccess   CallbackStatus = "success"
	CallbackStatusFailed    CallbackStatus = "failed"
	CallbackStatusMalformed CallbackStatus = "malformed"
)

// PaymentCallback is the append-only audit record of a provider callback.
// One row is inserted per callback received, whether or not it matched a
// contribution, and rows are never updated afterwards.
type PaymentCallback struct {
	ID                 string          `json:"id" db:"id"`
	ContributionID     string          `json:"contribution_id,omitempty" db:"contribution_id"`
	CheckoutRequestID  string          `json:"checkout_request_id,omitempty" db:"checkout_request_id"`
	ResultCode         int             `json:"result_code" db:"result_code"`
	ResultDesc         string          `json:"result_desc,omitempty" db:"result_desc"`
	MpesaReceiptNumber string          `json:"mpesa_receipt_number,omitempty" db:"mpesa_receipt_number"`
	PhoneNumber        string          `json:"phone_number,omitempty" db:"phone_number"`
	Amount             float64         `json:"amount,omitempty" db:"amount"`
	Status             CallbackStatus  `json:"status" db:"status"`
	RawPayload         json.RawMessage `json:"raw_payload,omitempty" db:"raw_payload"`
	ReceivedAt         time.Time       `json:"received_at" db:"received_at"`
}

// Database schema
const PaymentCallbackSchema = `
CREATE TABLE IF NOT EXISTS payment_callbacks (
    id VARCHAR(36) PRIMARY KEY,
    contribution_id VARCHAR(36) REFERENCES contributions(id),
    checkout_request_id VARCHAR(100),
    result_code INTEGER NOT NULL,
    result_desc TEXT,
    mpesa_receipt_number VARCHAR(100),
    phone_number VARCHAR(20),
    amount DECIMAL(19, 2),
    status VARCHAR(20) NOT NULL,
    raw_payload JSONB,
    received_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_payment_callbacks_checkout ON payment_callbacks(checkout_request_id);
CREATE INDEX IF NOT EXISTS idx_payment_callbacks_status ON payment_callbacks(status);
`
