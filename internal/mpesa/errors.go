package mpesa

import (
	"errors"
	"fmt"
)

// ErrMalformedCallback is returned when a callback body cannot be parsed as
// the expected stkCallback envelope at all.
var ErrMalformedCallback = errors.New("malformed callback payload")

// AuthError reports a failure to acquire an access token, either a non-2xx
// response from the token endpoint or a transport failure.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mpesa auth failed: %v", e.Err)
	}
	return fmt.Sprintf("mpesa auth failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// InitiationStage identifies which step of initiation failed.
type InitiationStage string

const (
	StageInvalidPhone InitiationStage = "invalid-phone"
	StageAuth         InitiationStage = "auth-failed"
	StagePush         InitiationStage = "push-failed"
)

// InitiationError reports a failed STK push initiation. StatusCode and Body
// carry the provider's response for push failures so callers can decide
// whether to retry or surface the failure.
type InitiationError struct {
	Stage      InitiationStage
	StatusCode int
	Body       string
	Err        error
}

func (e *InitiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stk push %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stk push %s: status %d: %s", e.Stage, e.StatusCode, e.Body)
}

func (e *InitiationError) Unwrap() error { return e.Err }
