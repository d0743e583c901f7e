package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the base interface for all application errors
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// ParseError represents malformed query or formula syntax. It is always
// client-facing and carries the offending input for context.
type ParseError struct {
	Query   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("malformed query: %s (query: %s)", e.Message, e.Query)
	}
	return fmt.Sprintf("malformed query: %s", e.Message)
}

func (e *ParseError) HTTPStatus() int { return http.StatusBadRequest }
func (e *ParseError) Code() string    { return "MALFORMED_QUERY" }

// NewParseError creates a new ParseError
func NewParseError(query, message string) *ParseError {
	return &ParseError{Query: query, Message: message}
}

// PermissionError represents an object-permission or FLS-driven rejection.
// Never retried, never downgraded to an empty result set.
type PermissionError struct {
	Action string
	Object string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("insufficient access: cannot %s %s", e.Action, e.Object)
}

func (e *PermissionError) HTTPStatus() int { return http.StatusForbidden }
func (e *PermissionError) Code() string    { return "INSUFFICIENT_ACCESS" }

// NewPermissionError creates a new PermissionError
func NewPermissionError(action, object string) *PermissionError {
	return &PermissionError{Action: action, Object: object}
}

// ValidationError carries one message per failing validation rule. A record
// failing any active rule is never persisted.
type ValidationError struct {
	Field    string
	Messages []string
}

func (e *ValidationError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, msg)
	}
	return fmt.Sprintf("validation error: %s", msg)
}

func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }
func (e *ValidationError) Code() string    { return "VALIDATION_ERROR" }

// NewValidationError creates a single-message ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Messages: []string{message}}
}

// NewValidationErrors wraps the messages of multiple failing rules
func NewValidationErrors(messages []string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// InvalidLocatorError signals a pagination cache miss or expiry. The caller
// must re-issue the original query rather than retry the locator.
type InvalidLocatorError struct {
	Locator string
}

func (e *InvalidLocatorError) Error() string {
	return fmt.Sprintf("invalid query locator '%s': expired or already consumed", e.Locator)
}

func (e *InvalidLocatorError) HTTPStatus() int { return http.StatusBadRequest }
func (e *InvalidLocatorError) Code() string    { return "INVALID_QUERY_LOCATOR" }

// NewInvalidLocatorError creates a new InvalidLocatorError
func NewInvalidLocatorError(locator string) *InvalidLocatorError {
	return &InvalidLocatorError{Locator: locator}
}

// NotFoundError represents a resource that was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }
func (e *NotFoundError) Code() string    { return "NOT_FOUND" }

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// UnauthorizedError represents authentication failures
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unauthorized: %s", e.Reason)
	}
	return "unauthorized"
}

func (e *UnauthorizedError) HTTPStatus() int { return http.StatusUnauthorized }
func (e *UnauthorizedError) Code() string    { return "UNAUTHORIZED" }

// NewUnauthorizedError creates a new UnauthorizedError
func NewUnauthorizedError(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

// StoreError wraps a failure from the record store. Logged with collection
// and operation context, never with record contents.
type StoreError struct {
	Collection string
	Operation  string
	Cause      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s on %s: %v", e.Operation, e.Collection, e.Cause)
}

func (e *StoreError) HTTPStatus() int { return http.StatusInternalServerError }
func (e *StoreError) Code() string    { return "STORE_ERROR" }
func (e *StoreError) Unwrap() error   { return e.Cause }

// NewStoreError creates a new StoreError
func NewStoreError(collection, operation string, cause error) *StoreError {
	return &StoreError{Collection: collection, Operation: operation, Cause: cause}
}

// Helper functions for error checking

func IsParse(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsInvalidLocator(err error) bool {
	var target *InvalidLocatorError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// GetHTTPStatus returns the HTTP status code for an error.
// Returns 500 if the error doesn't implement AppError.
func GetHTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error.
// Returns "UNKNOWN_ERROR" if the error doesn't implement AppError.
func GetErrorCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "UNKNOWN_ERROR"
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ToResponse converts an error to an ErrorResponse
func ToResponse(err error) ErrorResponse {
	return ErrorResponse{
		Code:    GetErrorCode(err),
		Message: err.Error(),
	}
}
