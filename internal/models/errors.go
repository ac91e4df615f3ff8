package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation marks a violated precondition reported back to the caller.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrPreconditionFailed is returned by compare-and-set transitions.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrPersistence wraps storage write and copy failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrMalformedRecord is returned for persisted lines that cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")
)

var (
	ErrNoTableSelected       = fmt.Errorf("%w: no table selected", ErrInvalidOperation)
	ErrTableNotFound         = fmt.Errorf("%w: table not found", ErrInvalidOperation)
	ErrTableOccupied         = fmt.Errorf("%w: table occupied", ErrInvalidOperation)
	ErrEmptyOrder            = fmt.Errorf("%w: order has no items", ErrInvalidOperation)
	ErrUnknownMenuItem       = fmt.Errorf("%w: unknown menu item", ErrInvalidOperation)
	ErrInvalidQuantity       = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidOperation)
	ErrOrderNotFound         = fmt.Errorf("%w: order not found", ErrInvalidOperation)
	ErrOrderAlreadyCompleted = fmt.Errorf("%w: order already completed", ErrInvalidOperation)
	ErrNothingSelected       = fmt.Errorf("%w: nothing selected", ErrInvalidOperation)
	ErrInvalidMenuItem       = fmt.Errorf("%w: invalid menu item", ErrInvalidOperation)
)

// ValidationError describes a rejected field of an administrative request
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap classifies validation errors as invalid menu item operations
func (e ValidationError) Unwrap() error {
	return ErrInvalidMenuItem
}
