package mpesa

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhone is returned when a phone number cannot be normalized to
// the canonical 2547XXXXXXXX form.
var ErrInvalidPhone = errors.New("invalid phone number format")

const (
	countryPrefix = "254"
	canonicalLen  = 12 // 254 + 9 subscriber digits
	subscriberLen = 9
)

// NormalizePhone maps a user-entered phone number to the canonical
// 254XXXXXXXXX format the Daraja API expects. Accepted shapes, in order:
// a leading "+" is stripped; "07XXXXXXXX" has the leading zero replaced by
// the country prefix; "7XXXXXXXX" (9 or 10 digits) keeps the last nine
// digits with the prefix prepended; a number already starting with 254 is
// accepted only at the exact canonical length. Anything else is rejected
// rather than guessed.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.TrimPrefix(phone, "+")

	if phone == "" || !isDigits(phone) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}

	switch {
	case strings.HasPrefix(phone, "0") && len(phone) == subscriberLen+1:
		return countryPrefix + phone[1:], nil
	case strings.HasPrefix(phone, "7") && (len(phone) == subscriberLen || len(phone) == subscriberLen+1):
		return countryPrefix + phone[len(phone)-subscriberLen:], nil
	case strings.HasPrefix(phone, countryPrefix) && len(phone) == canonicalLen:
		return phone, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
