package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when a transaction lacks the value or value-date
	// needed to enter the matching cascade
	ErrInsufficientData = errors.New("insufficient data for matching")

	// ErrInvalidSelection is returned by interactive strategies for unusable input
	ErrInvalidSelection = errors.New("invalid selection")
)

// StructuralViolationError reports input that breaks the data contract of a
// reconciliation pass. It aborts the run.
type StructuralViolationError struct {
	Key    TransactionKey
	Reason string
}

func (e *StructuralViolationError) Error() string {
	return fmt.Sprintf("transaction %s: %s", e.Key, e.Reason)
}
