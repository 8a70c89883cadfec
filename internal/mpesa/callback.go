package mpesa

import (
	"encoding/json"
	"fmt"
)

// ResultCodeMissing is the sentinel used when a callback envelope carries no
// ResultCode field at all. Any non-zero code, including this one, means the
// payment did not complete.
const ResultCodeMissing = -1

// CallbackResult is the parsed form of a Daraja stkCallback envelope.
// Metadata fields are best-effort: a missing item leaves the zero value and
// does not fail the parse.
type CallbackResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResultCode        int
	ResultDesc        string

	// Populated from CallbackMetadata on success only.
	Amount             float64
	MpesaReceiptNumber string
	PhoneNumber        string
	TransactionDate    string
}

// Success reports whether the provider completed the payment.
func (r *CallbackResult) Success() bool {
	return r.ResultCode == 0
}

type callbackEnvelope struct {
	Body struct {
		StkCallback stkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type stkCallback struct {
	MerchantRequestID string           `json:"MerchantRequestID"`
	CheckoutRequestID string           `json:"CheckoutRequestID"`
	ResultCode        *int             `json:"ResultCode"`
	ResultDesc        string           `json:"ResultDesc"`
	CallbackMetadata  callbackMetadata `json:"CallbackMetadata"`
}

type callbackMetadata struct {
	Item []metadataItem `json:"Item"`
}

type metadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// ParseCallback extracts the stkCallback envelope from a raw callback body.
// A body that is not valid JSON or carries no envelope at all returns
// ErrMalformedCallback; missing optional fields degrade to zero values so
// partial callbacks are still processed and logged.
func ParseCallback(raw []byte) (*CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" && cb.ResultCode == nil {
		return nil, fmt.Errorf("%w: missing stkCallback envelope", ErrMalformedCallback)
	}

	result := &CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        ResultCodeMissing,
		ResultDesc:        cb.ResultDesc,
	}
	if cb.ResultCode != nil {
		result.ResultCode = *cb.ResultCode
	}

	if result.Success() {
		for _, item := range cb.CallbackMetadata.Item {
			switch item.Name {
			case "Amount":
				json.Unmarshal(item.Value, &result.Amount)
			case "MpesaReceiptNumber":
				unmarshalString(item.Value, &result.MpesaReceiptNumber)
			case "PhoneNumber":
				unmarshalString(item.Value, &result.PhoneNumber)
			case "TransactionDate":
				unmarshalString(item.Value, &result.TransactionDate)
			}
		}
	}

	return result, nil
}

// unmarshalString accepts both string and numeric JSON values; Daraja sends
// PhoneNumber and TransactionDate as numbers.
func unmarshalString(raw json.RawMessage, dst *string) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*dst = s
		return
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		*dst = n.String()
	}
}
