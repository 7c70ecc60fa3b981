package api

import "fmt"

// ErrorType classifies an APIError. The HTTP status is derived from it.
type ErrorType string

const (
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeBackendError    ErrorType = "backend_error"
	ErrorTypeServerError     ErrorType = "server_error"
)

// APIError is the body of every error answer of the web API.
type APIError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`

	// Param names the offending request field, if any.
	Param string `json:"param,omitempty"`
}

func (e *APIError) Error() string {
	if e.Param == "" {
		return string(e.Type) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
}

// ErrorResponse is the {"error": {...}} envelope.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError reports a malformed request; param names the field.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Param: param, Message: message}
}

// NewNotFoundError reports an unknown conversation or resource.
func NewNotFoundError(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

// NewTooManyRequestsError reports that the inference endpoint is rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{Type: ErrorTypeTooManyRequests, Message: message}
}

// NewBackendError reports an inference endpoint that could not be used.
func NewBackendError(message string) *APIError {
	return &APIError{Type: ErrorTypeBackendError, Message: message}
}

// NewServerError reports a failure inside funcall itself.
func NewServerError(message string) *APIError {
	return &APIError{Type: ErrorTypeServerError, Message: message}
}
