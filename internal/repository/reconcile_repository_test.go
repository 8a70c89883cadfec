package repository

import (
	"encoding/json"
	"testing"
)

func TestJSONPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "Valid JSON passes through",
			raw:  `{"Body":{"stkCallback":{"ResultCode":0}}}`,
			want: `{"Body":{"stkCallback":{"ResultCode":0}}}`,
		},
		{
			name: "Non-JSON body is preserved as a JSON string",
			raw:  "not json at all",
			want: `"not json at all"`,
		},
		{
			name: "Truncated JSON is preserved as a JSON string",
			raw:  `{"Body": {"stkCallback"`,
			want: `"{\"Body\": {\"stkCallback\""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jsonPayload([]byte(tt.raw))
			if string(got) != tt.want {
				t.Errorf("jsonPayload(%q) = %s, want %s", tt.raw, got, tt.want)
			}
			// Whatever goes to the audit column must be acceptable jsonb
			// input.
			if !json.Valid(got) {
				t.Errorf("jsonPayload(%q) produced invalid JSON: %s", tt.raw, got)
			}
		})
	}
}

func TestJSONPayloadEmpty(t *testing.T) {
	if got := jsonPayload(nil); got != nil {
		t.Errorf("jsonPayload(nil) = %v, want nil", got)
	}
	if got := jsonPayload([]byte{}); got != nil {
		t.Errorf("jsonPayload(empty) = %v, want nil", got)
	}
}
