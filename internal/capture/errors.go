package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrTargetNotFound is returned when no window matches a query or a
	// display index is out of range. Never retried.
	ErrTargetNotFound = errors.New("capture: target not found")

	// ErrDeviceCreationFailed is returned once every driver in the
	// preference list failed to produce a graphics device.
	ErrDeviceCreationFailed = errors.New("capture: no graphics device could be created")

	// ErrResourceExhausted marks staging resize/reallocation failures.
	// The session stops itself when it sees one.
	ErrResourceExhausted = errors.New("capture: staging resources exhausted")

	// ErrChannel signals an internal producer/consumer signaling failure.
	ErrChannel = errors.New("capture: frame channel failure")

	ErrAlreadyStarted = errors.New("capture: session already started")
	ErrNotStarted     = errors.New("capture: session not started")
	ErrSessionStopped = errors.New("capture: session is stopped")
	ErrNotSupported   = errors.New("capture: not supported on this platform")
	ErrEmptyRegion    = errors.New("capture: client region is empty")
	ErrNotMapped      = errors.New("capture: frame has no CPU mapping")
)

// BackendError wraps a failure reported by the capture backend or the GPU
// API. Err is surfaced verbatim.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("capture: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}
