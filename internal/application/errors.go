package application

import (
	"errors"
	"fmt"

	"github.com/example/capture-scheduler/internal/persistence"
	"github.com/example/capture-scheduler/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrCaptureService marks failures of the external capture service.
	ErrCaptureService = errors.New("application: capture service failure")
	// ErrPersistence marks failures of the local store.
	ErrPersistence = errors.New("application: persistence failure")
	// ErrNoApprovals is returned when a course has nothing to schedule.
	ErrNoApprovals = scheduler.ErrNoApprovals
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func validateTermID(termID int) error {
	if termID > 0 {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("term_id", "must be a positive integer")
	return vErr
}

// storeError wraps a collaborator failure as ErrPersistence, translating
// missing records to ErrNotFound.
func storeError(step string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%s: %w", step, ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, step, err)
}
