package models

// ReconcileOutcome classifies what a callback did once applied to the
// store. Unmatched and duplicate are expected steady-state outcomes, not
// errors.
type ReconcileOutcome string

const (
	ReconcileOutcomeCompleted ReconcileOutcome = "completed"
	ReconcileOutcomeFailed    ReconcileOutcome = "failed"
	ReconcileOutcomeDuplicate ReconcileOutcome = "duplicate"
	ReconcileOutcomeUnmatched ReconcileOutcome = "unmatched"
	ReconcileOutcomeMalformed ReconcileOutcome = "malformed"
)
