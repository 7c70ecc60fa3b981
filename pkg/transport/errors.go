package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/funcall/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type)
// are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeBackendError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsAPIError returns err as an APIError, wrapping unknown errors as
// server errors.
func AsAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError(err.Error())
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	WriteJSON(w, statusCode, api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteError writes any error, mapping it to an APIError first.
func WriteError(w http.ResponseWriter, err error) {
	WriteAPIError(w, AsAPIError(err))
}
