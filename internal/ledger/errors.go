package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes transition failures.
type ErrorCode string

const (
	// ErrCodeValidationRejected indicates the rule engine or a counterparty's
	// relevance check refused the transition. Never retried automatically.
	ErrCodeValidationRejected ErrorCode = "VALIDATION_REJECTED"

	// ErrCodeNotFound indicates a business id did not resolve to exactly one
	// live record of the expected kind.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeDuplicateID indicates a creation operation reused a business id.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeConflictRejected indicates the ordering authority refused
	// admission because an input was already consumed. Safe to retry after
	// rebuilding against fresh live records.
	ErrCodeConflictRejected ErrorCode = "CONFLICT_REJECTED"

	// ErrCodeSessionFailed indicates a counterparty was unreachable or timed
	// out. Distinct from a refusal.
	ErrCodeSessionFailed ErrorCode = "SESSION_FAILED"

	// ErrCodeFatal indicates a programming error: unknown operation or a
	// malformed proposal.
	ErrCodeFatal ErrorCode = "FATAL"
)

// Error is a classified transition failure.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable reason.
	Message string

	// Party is the responsible party, when known (e.g. the rejecting endorser).
	Party string

	// TxID identifies the affected transaction, when one was built.
	TxID string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Party != "" {
		msg += fmt.Sprintf(" (party=%s)", e.Party)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithParty returns a copy of e attributed to party.
func (e *Error) WithParty(party string) *Error {
	c := *e
	c.Party = party
	return &c
}

// WithTx returns a copy of e tagged with a transaction id.
func (e *Error) WithTx(txID string) *Error {
	c := *e
	c.TxID = txID
	return &c
}

// Rejected creates a ValidationRejected error.
func Rejected(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidationRejected, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a NotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Duplicate creates a DuplicateId error.
func Duplicate(format string, args ...any) *Error {
	return &Error{Code: ErrCodeDuplicateID, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a ConflictRejected error.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: ErrCodeConflictRejected, Message: fmt.Sprintf(format, args...)}
}

// SessionFailed wraps a transport failure.
func SessionFailed(party string, err error) *Error {
	return &Error{Code: ErrCodeSessionFailed, Message: "session failed", Party: party, Err: err}
}

// Fatal creates a Fatal error.
func Fatal(format string, args ...any) *Error {
	return &Error{Code: ErrCodeFatal, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ReasonOf returns the human-readable message of the first *Error in err's
// chain, or err.Error() for unclassified errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsRejected returns true if err is a ValidationRejected error.
func IsRejected(err error) bool { return CodeOf(err) == ErrCodeValidationRejected }

// IsNotFound returns true if err is a NotFound error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsDuplicate returns true if err is a DuplicateId error.
func IsDuplicate(err error) bool { return CodeOf(err) == ErrCodeDuplicateID }

// IsConflict returns true if err is a ConflictRejected error.
func IsConflict(err error) bool { return CodeOf(err) == ErrCodeConflictRejected }

// IsSessionFailed returns true if err is a SessionFailed error.
func IsSessionFailed(err error) bool { return CodeOf(err) == ErrCodeSessionFailed }

// IsFatal returns true if err is a Fatal error.
func IsFatal(err error) bool { return CodeOf(err) == ErrCodeFatal }

// IsRetryable reports whether an attempt that failed with err may be
// rebuilt and resubmitted automatically. Only conflicts qualify.
func IsRetryable(err error) bool { return IsConflict(err) }
