package apierrors

import (
	"callautomation-server/internal/callautomation"
	ivrProcessor "callautomation-server/internal/ivr/processor"
	"errors"
	"strings"
)

// MapError converts domain errors to APIErrors. Unknown errors become a
// sanitized 500.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, ivrProcessor.ErrNoTarget):
		return ServiceUnavailable(CodeNotConfigured, "No target phone number is configured", err)

	case errors.Is(err, callautomation.ErrUnsupported):
		return NotImplemented(CodeNotSupported, "Operation is not supported by the configured carrier")

	case errors.Is(err, ivrProcessor.ErrPlaceCallFailed),
		errors.Is(err, callautomation.ErrRequestFailed):
		return ServiceUnavailable(CodeCallAutomationError, "Call automation service is temporarily unavailable. Please try again later.", err)

	default:
		return mapExternalServiceError(err)
	}
}

// mapExternalServiceError recognizes vendor SDK errors by message content.
func mapExternalServiceError(err error) *APIError {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "twilio") {
		return ServiceUnavailable(CodeCarrierError, "Carrier is temporarily unavailable. Please try again later.", err)
	}

	if strings.Contains(errMsg, "openai") || strings.Contains(errMsg, "gemini") || strings.Contains(errMsg, "realtime") {
		return ServiceUnavailable(CodeAIServiceError, "AI service is temporarily unavailable. Please try again later.", err)
	}

	return InternalError(err)
}
