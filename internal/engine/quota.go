package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts the child visits of one cascade and enforces a
// maximum.
//
// The guard stops cycles (A -> B -> A). The quota catches the other way a
// cascade can run away: a corrupt link store that fans out into an
// unbounded number of distinct items.
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed steps for this cascade
	current  int // Current step count
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
//
// maxSteps: Maximum number of child visits allowed per cascade.
// Default: DefaultMaxSteps (configurable via engine.WithMaxSteps())
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(token string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Token: token,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the number of steps taken so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a cascade exceeds the max steps quota.
//
// Unlike a guard rejection (which skips one item), an exceeded quota stops
// the entire cascade.
type StepsExceededError struct {
	Token string // The operation that exceeded the quota
	Steps int    // Number of steps taken
	Limit int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("operation %s exceeded max steps quota: %d steps > %d limit",
		e.Token, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
