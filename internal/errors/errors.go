// Package errors provides centralized error definitions and error handling
// utilities for the physics-agent codebase. It defines the error taxonomy the
// scheduler is built on, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides the following semantic errors:
//   - ValidationError: a malformed task graph or invalid input
//   - NotFoundError: resource not found (unknown task id, unknown run)
//   - SectionNotFoundError: a state document is missing an expected section
//   - WorkerError: an external worker or verifier call failed
//   - PersistenceError: a storage read or write failed
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewValidationError("duplicate task id").WithField("id").WithValue("1.2")
//	err := errors.NewWorkerError("derivation_coder", baseErr).WithTaskID("2.1")
//
// Checking errors:
//
//	var valErr *errors.ValidationError
//	if errors.As(err, &valErr) { ... }
//
//	if errors.Is(err, errors.ErrTaskNotFound) { ... }
//
// Validation and persistence failures are fatal to the operation that raised
// them; worker failures are caught per task and downgraded to a blocked task
// record by the orchestrator.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Graph-related sentinel errors
var (
	// ErrGraphInvalid indicates that a task graph failed validation.
	ErrGraphInvalid = New("task graph is invalid")
	// ErrTaskNotFound indicates that a task could not be found in the graph.
	ErrTaskNotFound = New("task not found")
	// ErrUnknownStatus indicates an unrecognized task status value.
	ErrUnknownStatus = New("unknown task status")
)

// Document-related sentinel errors
var (
	// ErrSectionNotFound indicates that a state document is missing a section.
	ErrSectionNotFound = New("section not found")
	// ErrGraphBlockNotFound indicates the Task Graph section holds no YAML block.
	ErrGraphBlockNotFound = New("task graph block not found")
)

// Run-related sentinel errors
var (
	// ErrRunNotFound indicates that a run directory or document is absent.
	ErrRunNotFound = New("run not found")
	// ErrWorkerNotRegistered indicates a task names a worker the registry
	// does not know about. Raised at startup, never mid-cycle.
	ErrWorkerNotRegistered = New("worker not registered")
)

// -----------------------------------------------------------------------------
// ValidationError
// -----------------------------------------------------------------------------

// ValidationError represents a malformed task graph or invalid input.
//
// Example:
//
//	err := errors.NewValidationError("blocked task requires blocked_reason")
//	err = err.WithField("status").WithTaskID("2.3")
type ValidationError struct {
	message string
	cause   error
	Field   string
	Value   any
	TaskID  string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{message: message}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithTaskID adds the offending task id to the error context.
func (e *ValidationError) WithTaskID(id string) *ValidationError {
	e.TaskID = id
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrGraphInvalid) {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// NotFoundError
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("task", "4.2")
//	fmt.Println(err) // "task '4.2' not found"
type NotFoundError struct {
	cause        error
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceID: resourceID}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if e.ResourceType == "task" && errors.Is(target, ErrTaskNotFound) {
		return true
	}
	if e.ResourceType == "run" && errors.Is(target, ErrRunNotFound) {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// SectionNotFoundError
// -----------------------------------------------------------------------------

// SectionNotFoundError indicates a state document is missing an expected
// section. This is a programming-contract failure: a well-formed document
// produced by this codebase always carries all nine sections, so hitting this
// error means the document is corrupted or foreign.
type SectionNotFoundError struct {
	Title string
}

// NewSectionNotFoundError creates a new SectionNotFoundError.
func NewSectionNotFoundError(title string) *SectionNotFoundError {
	return &SectionNotFoundError{Title: title}
}

// Error returns the formatted error message.
func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("section not found: %s", e.Title)
}

// Is checks if this error matches the target.
func (e *SectionNotFoundError) Is(target error) bool {
	if _, ok := target.(*SectionNotFoundError); ok {
		return true
	}
	return errors.Is(target, ErrSectionNotFound)
}

// -----------------------------------------------------------------------------
// WorkerError
// -----------------------------------------------------------------------------

// WorkerError represents a failed external worker or verifier call.
//
// Worker errors are caught per task by the step engine and downgraded to a
// blocked task record; they never abort sibling tasks or the cycle.
//
// Example:
//
//	err := errors.NewWorkerError("derivation_coder", cause).WithTaskID("2.1")
type WorkerError struct {
	cause    error
	message  string
	WorkerID string
	TaskID   string
}

// NewWorkerError creates a new WorkerError.
func NewWorkerError(workerID string, cause error) *WorkerError {
	return &WorkerError{WorkerID: workerID, cause: cause}
}

// WithTaskID adds a task id to the error context.
func (e *WorkerError) WithTaskID(id string) *WorkerError {
	e.TaskID = id
	return e
}

// WithMessage adds a message to the error context.
func (e *WorkerError) WithMessage(message string) *WorkerError {
	e.message = message
	return e
}

// Error returns the formatted error message.
func (e *WorkerError) Error() string {
	var parts []string
	if e.WorkerID != "" {
		parts = append(parts, fmt.Sprintf("worker=%s", e.WorkerID))
	}
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}

	prefix := "worker error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("worker error [%s]", strings.Join(parts, ", "))
	}

	switch {
	case e.message != "" && e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	case e.message != "":
		return fmt.Sprintf("%s: %s", prefix, e.message)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	default:
		return prefix
	}
}

// Unwrap returns the underlying error.
func (e *WorkerError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *WorkerError) Is(target error) bool {
	if _, ok := target.(*WorkerError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// PersistenceError
// -----------------------------------------------------------------------------

// PersistenceError represents a storage read or write failure.
//
// Persistence errors are fatal to the cycle that raised them and propagate to
// the caller; the last successfully written document remains the recoverable
// state.
type PersistenceError struct {
	cause error
	Op    string // "read" or "write"
	Path  string
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op, path string, cause error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, cause: cause}
}

// Error returns the formatted error message.
func (e *PersistenceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("persistence error [%s %s]: %v", e.Op, e.Path, e.cause)
	}
	return fmt.Sprintf("persistence error [%s %s]", e.Op, e.Path)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *PersistenceError) Is(target error) bool {
	if _, ok := target.(*PersistenceError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal returns true if the error should abort the current cycle rather
// than being recorded against a single task. Validation, document-shape, and
// persistence failures are fatal; worker failures are not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var workerErr *WorkerError
	if As(err, &workerErr) {
		return false
	}

	var valErr *ValidationError
	var sectionErr *SectionNotFoundError
	var persistErr *PersistenceError
	return As(err, &valErr) || As(err, &sectionErr) || As(err, &persistErr)
}

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to reconcile task")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
