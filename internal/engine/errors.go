package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/ir"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an item the caller named does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeStoreFailure indicates a link or content store read/write failed.
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"

	// ErrCodeDuplicationFailure indicates the external duplication failed.
	ErrCodeDuplicationFailure ErrorCode = "DUPLICATION_FAILURE"

	// ErrCodeQuotaExceeded indicates a cascade exceeded its step budget.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
)

// Error is an engine failure with structured fields for diagnostics.
//
// Ambiguous scanner matches and guard rejections are outcomes, not errors;
// they never produce an Error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the failing step, e.g. "set link" or "duplicate".
	Op string

	// Ref is the item the step operated on.
	Ref ir.ItemRef

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", e.Code, e.Op, e.Ref)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, e.Ref, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func storeFailure(op string, ref ir.ItemRef, err error) error {
	return &Error{Code: ErrCodeStoreFailure, Op: op, Ref: ref, Err: err}
}

// itemFailure classifies a content store error: a missing item is NOT_FOUND,
// anything else a store failure.
func itemFailure(op string, ref ir.ItemRef, err error) error {
	if content.IsNotFound(err) {
		return &Error{Code: ErrCodeNotFound, Op: op, Ref: ref, Err: err}
	}
	return storeFailure(op, ref, err)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound returns true if the error is a NOT_FOUND engine error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsStoreFailure returns true if the error is a STORE_FAILURE engine error.
func IsStoreFailure(err error) bool {
	return hasCode(err, ErrCodeStoreFailure)
}

// IsDuplicationFailure returns true if the error is a DUPLICATION_FAILURE engine error.
func IsDuplicationFailure(err error) bool {
	return hasCode(err, ErrCodeDuplicationFailure)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both Error with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded) || IsStepsExceededError(err)
}

// ChildFailure records one child a cascade could not process.
type ChildFailure struct {
	// Child is the item the command failed on.
	Child ir.ItemRef `json:"child"`

	// Parent is the item whose link lists Child.
	Parent ir.ItemRef `json:"parent"`

	// Err is the failure.
	Err error `json:"-"`
}

// PartialFailureError reports a cascade that finished with some children
// failed. The remaining children were processed.
type PartialFailureError struct {
	Command  ir.Command
	Origin   ir.ItemRef
	Failures []ChildFailure
}

// Error implements the error interface.
func (e *PartialFailureError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Child, f.Err)
	}
	return fmt.Sprintf("%s %s: %d child(ren) failed: %s",
		e.Command, e.Origin, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap returns the per-child errors.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// IsPartialFailure returns true if the error is a PartialFailureError.
func IsPartialFailure(err error) bool {
	var pe *PartialFailureError
	return errors.As(err, &pe)
}
