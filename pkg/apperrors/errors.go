package apperrors

import (
	"errors"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrDivisionByZero        = errors.New("standard work quota must be positive")
	ErrCyclicBOM             = errors.New("cyclic bill of materials")
	ErrDuplicateEntry        = errors.New("duplicate schedule entry")
	ErrCapacityNotConfigured = errors.New("process capacity not configured")
	ErrCapacityExhausted     = errors.New("no free capacity within carry-over horizon")
)

// CyclicBOMError reports the ancestor chain in which a material reappeared.
// The last element of Chain is the repeated material.
type CyclicBOMError struct {
	Chain []string
}

func (e *CyclicBOMError) Error() string {
	return ErrCyclicBOM.Error() + ": " + strings.Join(e.Chain, " -> ")
}

func (e *CyclicBOMError) Is(target error) bool {
	return target == ErrCyclicBOM
}

// IsBranchRecoverable reports whether err only invalidates the branch it occurred in.
// Anything else (storage failures, missing capacity configuration) aborts the run.
func IsBranchRecoverable(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDivisionByZero) ||
		errors.Is(err, ErrCyclicBOM) ||
		errors.Is(err, ErrCapacityExhausted)
}
