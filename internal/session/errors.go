package session

import (
	"errors"
	"fmt"
)

// User-facing text for local precondition failures.
const (
	MsgNoFileSelected = "Please select a file first."
	MsgEmptyQuestion  = "Please enter a question."
	MsgNoDocument     = "No document loaded."
)

var (
	// ErrUploadInProgress is returned when an upload is triggered while one is pending.
	ErrUploadInProgress = errors.New("session: upload already in progress")
	// ErrAskInProgress is returned when a question is submitted while one is pending.
	ErrAskInProgress = errors.New("session: ask already in progress")
)

// ValidationKind names the precondition that failed.
type ValidationKind string

const (
	ValidationNoFile        ValidationKind = "no file selected"
	ValidationEmptyQuestion ValidationKind = "empty question"
	ValidationNoDocument    ValidationKind = "no document loaded"
)

// ValidationError is a precondition failure detected before any network call.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("session: validation: %s", e.Kind)
}

// StaleResponseError marks a result addressed to a superseded document or request.
type StaleResponseError struct {
	Op         string
	Epoch      uint64
	DocumentID string
	Reason     string
}

func (e *StaleResponseError) Error() string {
	if e.DocumentID != "" {
		return fmt.Sprintf("session: stale %s response for %s (epoch %d): %s", e.Op, e.DocumentID, e.Epoch, e.Reason)
	}
	return fmt.Sprintf("session: stale %s response (epoch %d): %s", e.Op, e.Epoch, e.Reason)
}

// IsStale reports whether err is a StaleResponseError.
func IsStale(err error) bool {
	var stale *StaleResponseError
	return errors.As(err, &stale)
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
