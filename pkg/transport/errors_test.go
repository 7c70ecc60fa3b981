package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/funcall/pkg/api"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		errType api.ErrorType
		want    int
	}{
		{api.ErrorTypeInvalidRequest, http.StatusBadRequest},
		{api.ErrorTypeNotFound, http.StatusNotFound},
		{api.ErrorTypeTooManyRequests, http.StatusTooManyRequests},
		{api.ErrorTypeBackendError, http.StatusBadGateway},
		{api.ErrorTypeServerError, http.StatusInternalServerError},
		{api.ErrorType("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			got := HTTPStatusFromError(&api.APIError{Type: tt.errType})
			if got != tt.want {
				t.Errorf("HTTPStatusFromError(%s) = %d, want %d", tt.errType, got, tt.want)
			}
		})
	}
}

func TestAsAPIError(t *testing.T) {
	notFound := api.NewNotFoundError("conversation x not found")
	if got := AsAPIError(fmt.Errorf("wrapped: %w", notFound)); got != notFound {
		t.Errorf("wrapped APIError not unwrapped: %+v", got)
	}

	got := AsAPIError(errors.New("disk full"))
	if got.Type != api.ErrorTypeServerError || got.Message != "disk full" {
		t.Errorf("plain error mapped to %+v", got)
	}
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, api.NewInvalidRequestError("message", "message must not be empty"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error == nil || body.Error.Param != "message" || body.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("body = %s", rec.Body.String())
	}
}
