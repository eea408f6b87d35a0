package apierrors

import (
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeNotConfigured       = "NOT_CONFIGURED"
	CodeNotSupported        = "NOT_SUPPORTED"
	CodeCallAutomationError = "CALL_AUTOMATION_ERROR"
	CodeCarrierError        = "CARRIER_ERROR"
	CodeAIServiceError      = "AI_SERVICE_ERROR"
)

// APIError is an error with the HTTP status and client-safe message it maps to.
// Internal holds the cause for logging and is never sent to the client.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Internal   error
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func BadRequest(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, Code: code, Message: message}
}

func NotFound(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, Code: code, Message: message}
}

func Unauthorized(message string) *APIError {
	return &APIError{StatusCode: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

func NotImplemented(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusNotImplemented, Code: code, Message: message}
}

// ServiceUnavailable is used when a downstream service failed.
func ServiceUnavailable(code, message string, internal error) *APIError {
	return &APIError{StatusCode: http.StatusServiceUnavailable, Code: code, Message: message, Internal: internal}
}

// InternalError never exposes internal details.
func InternalError(internal error) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    "An internal error occurred. Please try again later.",
		Internal:   internal,
	}
}
