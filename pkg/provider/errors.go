package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrorBody bounds the response body kept on a TransportError.
const maxErrorBody = 4096

// TransportError describes a failed exchange with the inference endpoint.
// HTTP failures carry StatusCode and Body; network failures carry Err and a
// zero StatusCode.
type TransportError struct {
	// Endpoint is the URL path that was called (e.g., "/v1/chat/completions").
	Endpoint string

	// StatusCode is the HTTP status, or 0 for network failures.
	StatusCode int

	// Body is the (truncated) response body of an HTTP failure.
	Body string

	// Err is the underlying connectivity or decoding error. A decoding
	// error comes with the (successful) StatusCode of the response.
	Err error
}

// NewHTTPError creates a TransportError for a non-2xx response.
func NewHTTPError(endpoint string, status int, body []byte) *TransportError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &TransportError{Endpoint: endpoint, StatusCode: status, Body: string(body)}
}

// NewNetworkError creates a TransportError for a failed round trip.
func NewNetworkError(endpoint string, err error) *TransportError {
	return &TransportError{Endpoint: endpoint, Err: err}
}

// NewDecodeError creates a TransportError for a 2xx response whose body
// could not be interpreted.
func NewDecodeError(endpoint string, status int, err error) *TransportError {
	return &TransportError{Endpoint: endpoint, StatusCode: status, Err: err}
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 && e.Err != nil {
		return fmt.Sprintf("%s: invalid backend response (HTTP %d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	if e.StatusCode != 0 {
		if e.Body == "" {
			return fmt.Sprintf("%s: backend returned HTTP %d", e.Endpoint, e.StatusCode)
		}
		return fmt.Sprintf("%s: backend returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: backend connection error: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError reports a 5xx response.
func (e *TransportError) ServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// RouteMissing reports a 404 or 405, i.e. an endpoint that does not serve
// the requested route.
func (e *TransportError) RouteMissing() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusMethodNotAllowed
}

// Terminal reports an answer no other dialect can fix: missing or rejected
// credentials (401, 403) or rate limiting (429).
func (e *TransportError) Terminal() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// Network reports a failure before any HTTP status was received.
func (e *TransportError) Network() bool {
	return e.StatusCode == 0
}

// AsTransportError unwraps err into a *TransportError.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
