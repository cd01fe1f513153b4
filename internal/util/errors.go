package util

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for the opsrun engine
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrHandlerNotFound indicates no handler is registered for a logical type
	ErrHandlerNotFound = errors.New("no handler registered")

	// ErrCapabilityMissing indicates a handler does not expose the requested capability
	ErrCapabilityMissing = errors.New("handler capability missing")

	// ErrBatchTooLarge indicates a submitted batch exceeds the configured maximum
	ErrBatchTooLarge = errors.New("batch size exceeds maximum")

	// ErrTimeout indicates a task exceeded its allotted duration
	ErrTimeout = errors.New("task timed out")

	// ErrInvalidPlan indicates a malformed execution plan
	ErrInvalidPlan = errors.New("invalid execution plan")

	// ErrJobNotFound indicates a job is not present in the ledger
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob indicates a job ID already exists in the ledger
	ErrDuplicateJob = errors.New("job already recorded")

	// ErrShutdown indicates the system is shutting down
	ErrShutdown = errors.New("system shutting down")
)

// TaskError wraps an error with task context
type TaskError struct {
	TaskID string
	Type   string
	Err    error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s): %v", e.TaskID, e.Type, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *TaskError) Unwrap() error {
	return e.Err
}

// WrapTaskError wraps an error with task context
func WrapTaskError(taskID, logicalType string, err error) error {
	if err == nil {
		return nil
	}
	return &TaskError{
		TaskID: taskID,
		Type:   logicalType,
		Err:    err,
	}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 { // Limit to first 10 errors in the message
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// NewMultiError creates a new MultiError from a slice of errors
// It filters out nil errors
func NewMultiError(errors []error) *MultiError {
	m := &MultiError{
		Errors: make([]error, 0, len(errors)),
	}
	for _, err := range errors {
		if err != nil {
			m.Errors = append(m.Errors, err)
		}
	}
	return m
}

// ValidationError represents a per-item validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsHandlerNotFound checks if an error is a missing-handler error
func IsHandlerNotFound(err error) bool {
	return errors.Is(err, ErrHandlerNotFound)
}

// IsBatchTooLarge checks if an error is a batch-size error
func IsBatchTooLarge(err error) bool {
	return errors.Is(err, ErrBatchTooLarge)
}

// IsJobNotFound checks if an error is a ledger miss
func IsJobNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}

// CombineErrors combines multiple errors into a single error
// Returns nil if all errors are nil
func CombineErrors(errors ...error) error {
	m := NewMultiError(errors)
	return m.ErrorOrNil()
}

// WrapErrorf wraps an error with a formatted message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// FriendlyError converts engine errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case IsTimeout(err):
		return "Task timed out. Increase the task timeout or the --timeout flag."
	case IsHandlerNotFound(err):
		return "No handler is registered for this task type. Check the type name in your job file."
	case IsBatchTooLarge(err):
		return "Batch exceeds the configured maximum. Split the batch or raise maxBatch in your config."
	case IsJobNotFound(err):
		return "Job not found in the ledger. It may have been evicted by the retention sweep."
	case errors.Is(err, ErrInvalidPlan):
		return "Execution plan is malformed. Check the job file for duplicate or incomplete tasks."
	case errors.Is(err, ErrInvalidConfig):
		return "Invalid configuration. Please check your config file and command-line flags."
	default:
		return err.Error()
	}
}
