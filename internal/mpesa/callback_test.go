package mpesa

import (
	"errors"
	"testing"
)

func TestParseCallbackSuccess(t *testing.T) {
	raw := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 500.00},
						{"Name": "MpesaReceiptNumber", "Value": "RCT1"},
						{"Name": "TransactionDate", "Value": 20191219102115},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)

	result, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("ParseCallback() error = %v", err)
	}

	if !result.Success() {
		t.Error("Success() = false, want true")
	}
	if result.CheckoutRequestID != "ws_CO_191220191020363925" {
		t.Errorf("CheckoutRequestID = %q", result.CheckoutRequestID)
	}
	if result.Amount != 500 {
		t.Errorf("Amount = %v, want 500", result.Amount)
	}
	if result.MpesaReceiptNumber != "RCT1" {
		t.Errorf("MpesaReceiptNumber = %q, want RCT1", result.MpesaReceiptNumber)
	}
	if result.PhoneNumber != "254712345678" {
		t.Errorf("PhoneNumber = %q, want 254712345678", result.PhoneNumber)
	}
	if result.TransactionDate != "20191219102115" {
		t.Errorf("TransactionDate = %q", result.TransactionDate)
	}
}

func TestParseCallbackFailure(t *testing.T) {
	raw := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user."
			}
		}
	}`)

	result, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("ParseCallback() error = %v", err)
	}

	if result.Success() {
		t.Error("Success() = true, want false")
	}
	if result.ResultCode != 1032 {
		t.Errorf("ResultCode = %d, want 1032", result.ResultCode)
	}
	if result.Amount != 0 || result.MpesaReceiptNumber != "" {
		t.Error("metadata should not be extracted on failure")
	}
}

func TestParseCallbackPartialMetadata(t *testing.T) {
	// Missing expected items degrade to zero values rather than failing.
	raw := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 0,
				"ResultDesc": "ok",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 100},
						{"Name": "SomethingUnknown", "Value": "ignored"}
					]
				}
			}
		}
	}`)

	result, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("ParseCallback() error = %v", err)
	}

	if result.Amount != 100 {
		t.Errorf("Amount = %v, want 100", result.Amount)
	}
	if result.MpesaReceiptNumber != "" {
		t.Errorf("MpesaReceiptNumber = %q, want empty", result.MpesaReceiptNumber)
	}
	if result.PhoneNumber != "" {
		t.Errorf("PhoneNumber = %q, want empty", result.PhoneNumber)
	}
}

func TestParseCallbackMissingResultCode(t *testing.T) {
	raw := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultDesc": "no code"
			}
		}
	}`)

	result, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("ParseCallback() error = %v", err)
	}

	if result.ResultCode != ResultCodeMissing {
		t.Errorf("ResultCode = %d, want %d", result.ResultCode, ResultCodeMissing)
	}
	if result.Success() {
		t.Error("Success() = true for missing result code, want false")
	}
}

func TestParseCallbackMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "Not JSON",
			raw:  "definitely not json",
		},
		{
			name: "JSON without envelope",
			raw:  `{"hello": "world"}`,
		},
		{
			name: "Empty object",
			raw:  `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCallback([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedCallback) {
				t.Errorf("ParseCallback() error = %v, want ErrMalformedCallback", err)
			}
		})
	}
}
