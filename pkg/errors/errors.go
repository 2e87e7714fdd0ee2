// Package errors provides custom error types for qbank.
// These errors let the procedures tell fatal conditions (configuration,
// connectivity) apart from per-item failures (constraint violations,
// exhausted retries) and from post-condition warnings.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join re-export the standard library helpers so callers only need
// one errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors
var (
	// ErrNotFound indicates that a requested row or table was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates missing or malformed process configuration
	ErrConfig = errors.New("configuration error")

	// ErrUnreachable indicates the store could not be reached at all
	ErrUnreachable = errors.New("store unreachable")

	// ErrStoreUnavailable indicates a transient server-side store failure
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRateLimited indicates that the store rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrConstraint indicates a delete or insert violated a referential constraint
	ErrConstraint = errors.New("constraint violation")

	// ErrMissingColumn indicates a query referenced a column the store does not have
	ErrMissingColumn = errors.New("missing column")

	// ErrVerification indicates a post-condition check found residual rows
	ErrVerification = errors.New("verification mismatch")

	// ErrPartialFailure indicates a run finished with recorded per-item failures
	ErrPartialFailure = errors.New("partial failure")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrAborted indicates the operator declined a destructive action
	ErrAborted = errors.New("aborted by operator")
)

// Postgres SQLSTATE codes the procedures care about.
const (
	SQLStateForeignKeyViolation = "23503"
	SQLStateUndefinedColumn     = "42703"
	SQLStateUndefinedTable      = "42P01"

	// PostgREST reports unknown columns in select/filters with this code.
	PostgRESTUndefinedColumn = "PGRST204"
	// PostgREST reports a table missing from its schema cache with this code.
	PostgRESTUndefinedTable = "PGRST205"
)

// NotFoundError represents an error when a row or table is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// APIError represents an error response from the row store's HTTP API.
// Code carries the PostgREST or Postgres error code when the body had one.
type APIError struct {
	Backend    string
	StatusCode int
	Code       string
	Message    string
	Details    string
	Hint       string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "API error from %s", e.Backend)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d", e.StatusCode)
		if e.Code != "" {
			fmt.Fprintf(&b, ", code %s", e.Code)
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Details != "" {
		fmt.Fprintf(&b, " (%s)", e.Details)
	}
	return b.String()
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConstraint:
		return e.Code == SQLStateForeignKeyViolation
	case ErrMissingColumn:
		return e.Code == SQLStateUndefinedColumn || e.Code == PostgRESTUndefinedColumn
	case ErrRateLimited:
		return e.StatusCode == 429
	case ErrStoreUnavailable:
		return e.StatusCode == 429 || e.StatusCode >= 500
	case ErrNotFound:
		return e.StatusCode == 404 || e.Code == SQLStateUndefinedTable || e.Code == PostgRESTUndefinedTable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(backend string, statusCode int, message string) *APIError {
	return &APIError{
		Backend:    backend,
		StatusCode: statusCode,
		Message:    message,
	}
}

// UnreachableError represents a transport failure before any response arrived.
type UnreachableError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface
func (e *UnreachableError) Error() string {
	return fmt.Sprintf("store unreachable at %s: %v", e.Endpoint, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

// ConstraintError represents a referential constraint violation reported by
// the store. Message keeps the store's raw wording for the operator.
type ConstraintError struct {
	Table   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConstraintError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("constraint violation on %s: %s", e.Table, e.Message)
	}
	return fmt.Sprintf("constraint violation: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

// MissingColumnError reports a column the store does not know about.
type MissingColumnError struct {
	Table   string
	Column  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("column %s.%s does not exist: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("missing column on %s: %s", e.Table, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *MissingColumnError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// VerificationError represents a post-condition that did not hold.
type VerificationError struct {
	Selector         string
	RemainingRows    int
	RemainingAnswers int
}

// Error implements the error interface
func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification for %s found %d remaining questions and %d remaining answer records",
		e.Selector, e.RemainingRows, e.RemainingAnswers)
}

// Is implements errors.Is support
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerification
}

// PartialFailureError reports that a run completed with per-item failures.
type PartialFailureError struct {
	Operation string
	Failed    int
	Total     int
}

// Error implements the error interface
func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d of %d items failed", e.Operation, e.Failed, e.Total)
}

// Is implements errors.Is support
func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

// ResourceError represents an error during a store operation on a resource
type ResourceError struct {
	Operation string // "count", "list", "delete", "insert", "exec"
	Resource  string // "questions", "answers", "schema"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsUnreachable checks if the store could not be reached
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// IsConstraint checks if an error is a referential constraint violation
func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}

// IsMissingColumn checks if an error reports an unknown column
func IsMissingColumn(err error) bool {
	return errors.Is(err, ErrMissingColumn)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable reports whether repeating the same call could succeed.
// Constraint violations, invalid input, missing columns and cancellation are
// final; everything else is treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case IsConstraint(err), IsValidationError(err), IsMissingColumn(err), IsNotFound(err), IsCanceled(err), IsConfigError(err):
		return false
	}
	return true
}

// Helper wrapping functions for common patterns

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}
