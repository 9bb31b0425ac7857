package capture

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable marks transport failures, server errors and rate limiting.
	ErrUnavailable = errors.New("capture: service unavailable")
	// ErrRejected marks requests the capture service refused.
	ErrRejected = errors.New("capture: request rejected")
	// ErrInvalidBooking is returned before sending a booking that fails validation.
	ErrInvalidBooking = errors.New("capture: invalid booking")
)

// ServiceError describes a failed call to the capture service. StatusCode is
// zero when no response was received.
type ServiceError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("capture: %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("capture: %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Unwrap exposes the failure class and the underlying transport error. Only
// 4xx answers other than 429 count as rejections.
func (e *ServiceError) Unwrap() []error {
	class := ErrUnavailable
	if e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError && e.StatusCode != http.StatusTooManyRequests {
		class = ErrRejected
	}
	if e.Err == nil {
		return []error{class}
	}
	return []error{class, e.Err}
}
