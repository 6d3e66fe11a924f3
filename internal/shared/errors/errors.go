package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeInfrastructure ErrorType = "INFRASTRUCTURE_ERROR"
	ErrorTypeAuthentication ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
)

// Fixture loading errors. Every failure surfaced by the loader wraps exactly one of these.
var (
	ErrConnection              = errors.New("connection error")
	ErrResourceNotFound        = errors.New("fixture resource not found")
	ErrInvalidFixtureShape     = errors.New("invalid fixture shape")
	ErrUnsupportedFixtureInput = errors.New("unsupported fixture input")
	ErrClear                   = errors.New("clear failed")
	ErrModifier                = errors.New("modifier failed")
	ErrInsert                  = errors.New("insert failed")
	ErrInvalidIdentifierFormat = errors.New("invalid identifier format")
	ErrInvalidArgumentType     = errors.New("invalid argument type")
	ErrNoActiveConnection      = errors.New("no active connection")
	ErrLoaderClosed            = errors.New("loader is closed")
)

// Common application errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

// AppError represents an application error with context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewInfrastructureError creates an infrastructure error
func NewInfrastructureError(message string) *AppError {
	return NewAppError(ErrorTypeInfrastructure, message, http.StatusBadGateway)
}

// NewAuthenticationError creates an authentication error
func NewAuthenticationError(message string) *AppError {
	return NewAppError(ErrorTypeAuthentication, message, http.StatusUnauthorized)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// Classify maps a loader error onto an AppError, keeping err as the cause.
// Errors that already are AppErrors are returned unchanged.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrResourceNotFound):
		return NewAppError(ErrorTypeNotFound, "fixture resource not found", http.StatusNotFound).
			WithCode("RESOURCE_NOT_FOUND").WithCause(err)
	case errors.Is(err, ErrInvalidFixtureShape):
		return NewValidationError("invalid fixture shape").WithCode("INVALID_FIXTURE_SHAPE").WithCause(err)
	case errors.Is(err, ErrUnsupportedFixtureInput):
		return NewValidationError("unsupported fixture input").WithCode("UNSUPPORTED_FIXTURE_INPUT").WithCause(err)
	case errors.Is(err, ErrInvalidIdentifierFormat), errors.Is(err, ErrInvalidArgumentType):
		return NewValidationError("invalid identifier").WithCode("INVALID_IDENTIFIER").WithCause(err)
	case errors.Is(err, ErrModifier):
		return NewValidationError("modifier failed").WithCode("MODIFIER_FAILED").WithCause(err)
	case errors.Is(err, ErrConnection):
		return NewInfrastructureError("database connection failed").WithCode("CONNECTION_FAILED").WithCause(err)
	case errors.Is(err, ErrClear):
		return NewInfrastructureError("clear failed").WithCode("CLEAR_FAILED").WithCause(err)
	case errors.Is(err, ErrInsert):
		return NewInfrastructureError("insert failed").WithCode("INSERT_FAILED").WithCause(err)
	case errors.Is(err, ErrLoaderClosed), errors.Is(err, ErrNoActiveConnection):
		return NewAppError(ErrorTypeInternal, "loader unavailable", http.StatusServiceUnavailable).
			WithCode("LOADER_UNAVAILABLE").WithCause(err)
	default:
		return NewInternalError("internal error").WithCause(err)
	}
}

// HTTPStatus returns the HTTP status associated with err
func HTTPStatus(err error) int {
	if appErr := Classify(err); appErr != nil && appErr.HTTPCode != 0 {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeNotFound
	}
	return errors.Is(err, ErrResourceNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Type == ErrorTypeValidation
}
