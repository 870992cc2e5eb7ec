// Package errors provides custom error types for the tagsync system.
// These errors enable programmatic error checking so that the reconciler
// can map every failed external call to its degrade-and-continue policy.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are the standard library functions, re-exported so callers
// need only one errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the tagsync system
var (
	// ErrNotFound indicates that a requested object was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrThrottled indicates that the cloud API throttled the request
	ErrThrottled = errors.New("throttled")

	// ErrAccessDenied indicates that the caller lacks permission for the call
	ErrAccessDenied = errors.New("access denied")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrListing indicates that enumerating objects failed
	ErrListing = errors.New("listing failed")

	// ErrLabelFetch indicates that reading an object's labels failed
	ErrLabelFetch = errors.New("label fetch failed")

	// ErrApply indicates that writing labels to a target failed
	ErrApply = errors.New("apply failed")
)

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

// APIError represents an error returned by a cloud service API.
type APIError struct {
	Service   string // "iam", "cloudformation", "tagging"
	Operation string // API operation name, e.g. "ListPolicies"
	Code      string // service error code, e.g. "Throttling"
	Message   string
	Err       error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s failed (%s): %s", e.Service, e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case "Throttling", "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
		return target == ErrThrottled
	case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
		return target == ErrAccessDenied
	case "NoSuchEntity", "NoSuchEntityException", "StackNotFoundException":
		return target == ErrNotFound
	}
	return false
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

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ListingError represents a failed enumeration of source or target objects.
// Scope names what was being listed ("policies", "stacks", "roles for policy").
type ListingError struct {
	Scope string
	ID    string // parent object, empty for top-level listings
	Err   error
}

// Error implements the error interface
func (e *ListingError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("listing %s of %s: %v", e.Scope, e.ID, e.Err)
	}
	return fmt.Sprintf("listing %s: %v", e.Scope, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ListingError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ListingError) Is(target error) bool {
	return target == ErrListing
}

// NewListingError creates a new ListingError
func NewListingError(scope, id string, err error) *ListingError {
	return &ListingError{Scope: scope, ID: id, Err: err}
}

// LabelFetchError represents a failed read of one object's labels.
type LabelFetchError struct {
	Kind string
	ID   string
	Err  error
}

// Error implements the error interface
func (e *LabelFetchError) Error() string {
	return fmt.Sprintf("fetching labels of %s %s: %v", e.Kind, e.ID, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *LabelFetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *LabelFetchError) Is(target error) bool {
	return target == ErrLabelFetch
}

// NewLabelFetchError creates a new LabelFetchError
func NewLabelFetchError(kind, id string, err error) *LabelFetchError {
	return &LabelFetchError{Kind: kind, ID: id, Err: err}
}

// ApplyError represents a failed label write to a target object.
type ApplyError struct {
	Kind string
	ID   string
	Keys []string
	Err  error
}

// Error implements the error interface
func (e *ApplyError) Error() string {
	if len(e.Keys) > 0 {
		return fmt.Sprintf("applying labels %v to %s %s: %v", e.Keys, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("applying labels to %s %s: %v", e.Kind, e.ID, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ApplyError) Is(target error) bool {
	return target == ErrApply
}

// NewApplyError creates a new ApplyError
func NewApplyError(kind, id string, keys []string, err error) *ApplyError {
	return &ApplyError{Kind: kind, ID: id, Keys: keys, Err: err}
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

// IsThrottled checks if an error is a throttling error
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsAccessDenied checks if an error is an authorization error
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsListing checks if an error is a listing failure
func IsListing(err error) bool {
	return errors.Is(err, ErrListing)
}

// IsLabelFetch checks if an error is a label fetch failure
func IsLabelFetch(err error) bool {
	return errors.Is(err, ErrLabelFetch)
}

// IsApply checks if an error is an apply failure
func IsApply(err error) bool {
	return errors.Is(err, ErrApply)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapListing wraps an error as a ListingError
func WrapListing(scope, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewListingError(scope, id, err)
}

// WrapLabelFetch wraps an error as a LabelFetchError
func WrapLabelFetch(kind, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewLabelFetchError(kind, id, err)
}

// WrapApply wraps an error as an ApplyError
func WrapApply(kind, id string, keys []string, err error) error {
	if err == nil {
		return nil
	}
	return NewApplyError(kind, id, keys, err)
}
