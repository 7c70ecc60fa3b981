package openaicompat

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rhuss/funcall/pkg/provider"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4096

// MapHTTPError converts a non-2xx response into a *provider.TransportError
// carrying the status code and the (truncated) body.
func MapHTTPError(endpoint string, resp *http.Response) *provider.TransportError {
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	}
	return provider.NewHTTPError(endpoint, resp.StatusCode, body)
}

// MapNetworkError converts a network-level error (connection refused,
// timeout, DNS resolution failure) into a *provider.TransportError.
func MapNetworkError(endpoint string, err error) *provider.TransportError {
	return provider.NewNetworkError(endpoint, err)
}

// ExtractErrorMessage returns the error message of a ChatErrorResponse
// body, or the body itself when it is not in that format.
func ExtractErrorMessage(body string) string {
	var errResp ChatErrorResponse
	if err := json.Unmarshal([]byte(body), &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return body
}
