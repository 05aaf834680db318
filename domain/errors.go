package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned on a session lookup miss. The caller decides
// whether to create or surface the failure.
var ErrSessionNotFound = errors.New("session not found")

// InvalidSequenceError reports input rejected by sequence validation.
// It is never retried.
type InvalidSequenceError struct {
	Reason string
}

func (e *InvalidSequenceError) Error() string {
	return "invalid sequence: " + e.Reason
}

// InvalidORFError reports a malformed ORF passed to the protein predictor.
// It is never retried.
type InvalidORFError struct {
	Reason string
}

func (e *InvalidORFError) Error() string {
	return "invalid orf: " + e.Reason
}

// CollaboratorError wraps a failure from an external collaborator, tagged by
// whether a retry could plausibly succeed.
type CollaboratorError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *CollaboratorError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s: %s collaborator failure: %v", e.Op, kind, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// TransientError tags err as a transient collaborator failure (rate limits,
// temporary unavailability).
func TransientError(op string, err error) *CollaboratorError {
	return &CollaboratorError{Op: op, Transient: true, Err: err}
}

// PermanentError tags err as a permanent collaborator failure (bad
// credentials, malformed request).
func PermanentError(op string, err error) *CollaboratorError {
	return &CollaboratorError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce) && ce.Transient
}
