package core

import "errors"

// Error taxonomy shared across the storage, service and HTTP layers.
// Field-level validation errors wrap ErrValidation so the boundary can map
// the whole family to a single response class with errors.Is.
var (
	// ErrValidation marks malformed input, rejected before any store write.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced account, category, budget, template or
	// entry that does not exist for the requesting owner. Another owner's
	// record is indistinguishable from an absent one.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks lock contention on an account or budget row. The
	// whole mutation was rolled back and may be retried by the caller.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrConsistency marks an aggregate recompute that could not complete.
	// The ledger mutation it belonged to was rolled back with it.
	ErrConsistency = errors.New("consistency update failed")
)

var (
	ErrInvalidAmount    = fieldError("invalid amount")
	ErrInvalidDate      = fieldError("invalid date")
	ErrInvalidKind      = fieldError("invalid entry kind")
	ErrInvalidFrequency = fieldError("invalid frequency")
	ErrEmptyName        = fieldError("empty name")
	ErrEndBeforeStart   = fieldError("end date before start date")
)

func fieldError(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }
