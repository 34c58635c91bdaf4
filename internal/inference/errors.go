package inference

import (
	"errors"
	"fmt"
)

// BackendError reports a non-OK response from the inference service.
type BackendError struct {
	Op         string
	StatusCode int
	// Message is the service's "error" field, empty when the body had none.
	Message string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("inference: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("inference: %s: status %d", e.Op, e.StatusCode)
}

// TransportError reports a request that produced no usable response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("inference: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Cause returns the underlying failure text.
func (e *TransportError) Cause() string {
	if e.Err == nil {
		return "request failed"
	}
	return e.Err.Error()
}

// AsBackendError unwraps err into a *BackendError.
func AsBackendError(err error) (*BackendError, bool) {
	var berr *BackendError
	if errors.As(err, &berr) {
		return berr, true
	}
	return nil, false
}

// AsTransportError unwraps err into a *TransportError.
func AsTransportError(err error) (*TransportError, bool) {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr, true
	}
	return nil, false
}
