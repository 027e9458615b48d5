// Package apperr defines the coded domain errors shared by the ledger engine
// and its HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"strconv"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidInput          Code = "INVALID_INPUT"
	CodeCurrencyMismatch      Code = "CURRENCY_MISMATCH"
	CodeUnrecognizedCurrency  Code = "UNRECOGNIZED_CURRENCY"
	CodeSplitMismatch         Code = "SPLIT_MISMATCH"
	CodeInvalidParticipantSet Code = "INVALID_PARTICIPANT_SET"
	CodeUnrecognizedSplitType Code = "UNRECOGNIZED_SPLIT_TYPE"
	CodeUnbalancedLedger      Code = "UNBALANCED_LEDGER"
	CodeNegativeOrZeroAmount  Code = "NEGATIVE_OR_ZERO_AMOUNT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeForbidden             Code = "FORBIDDEN"
	CodeIntegrityViolation    Code = "INTEGRITY_VIOLATION"
)

// IsValidation reports whether the code describes a user-correctable input problem.
func (c Code) IsValidation() bool {
	switch c {
	case CodeInvalidInput, CodeCurrencyMismatch, CodeUnrecognizedCurrency, CodeSplitMismatch,
		CodeInvalidParticipantSet, CodeUnrecognizedSplitType, CodeNegativeOrZeroAmount:
		return true
	}
	return false
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Specific failing constraint, safe to show to users
	Metadata map[string]string // Additional context (expected/actual amounts, field names)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithMetadata creates a domain error carrying metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks. They match any *Error with the same code.
var (
	ErrInvalidInput          = New(CodeInvalidInput, "invalid input")
	ErrCurrencyMismatch      = New(CodeCurrencyMismatch, "currency mismatch")
	ErrUnrecognizedCurrency  = New(CodeUnrecognizedCurrency, "unrecognized currency")
	ErrSplitMismatch         = New(CodeSplitMismatch, "split mismatch")
	ErrInvalidParticipantSet = New(CodeInvalidParticipantSet, "invalid participant set")
	ErrUnrecognizedSplitType = New(CodeUnrecognizedSplitType, "unrecognized split type")
	ErrUnbalancedLedger      = New(CodeUnbalancedLedger, "unbalanced ledger")
	ErrNegativeOrZeroAmount  = New(CodeNegativeOrZeroAmount, "amount must be positive")
	ErrNotFound              = New(CodeNotFound, "not found")
	ErrConflict              = New(CodeConflict, "conflict")
	ErrForbidden             = New(CodeForbidden, "forbidden")
	ErrIntegrityViolation    = New(CodeIntegrityViolation, "integrity violation")
)

// CurrencyMismatch reports arithmetic attempted across two currencies.
func CurrencyMismatch(a, b string) *Error {
	return WithMetadata(CodeCurrencyMismatch,
		fmt.Sprintf("currency mismatch: %s vs %s", a, b),
		map[string]string{"left": a, "right": b})
}

// SplitMismatch reports that the resolved split amounts (expected) do not add
// up to the amount they must cover (actual). Amounts are minor units.
func SplitMismatch(expected, actual int64, currency string) *Error {
	return WithMetadata(CodeSplitMismatch,
		fmt.Sprintf("split amounts sum to %d but total is %d %s (off by %d)", expected, actual, currency, expected-actual),
		map[string]string{
			"expected": strconv.FormatInt(expected, 10),
			"actual":   strconv.FormatInt(actual, 10),
			"delta":    strconv.FormatInt(expected-actual, 10),
			"currency": currency,
		})
}

// UnbalancedLedger reports credits and debits that do not cancel out.
func UnbalancedLedger(credits, debits int64, currency string) *Error {
	return WithMetadata(CodeUnbalancedLedger,
		fmt.Sprintf("ledger is unbalanced in %s: credits %d, debits %d", currency, credits, debits),
		map[string]string{
			"credits":  strconv.FormatInt(credits, 10),
			"debits":   strconv.FormatInt(debits, 10),
			"currency": currency,
		})
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
