package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/funcall/pkg/provider"
)

// Endpoint paths relative to the base URL.
const (
	ChatPath       = "/v1/chat/completions"
	CompletionPath = "/v1/completions"
	ModelsPath     = "/v1/models"
)

// Client performs HTTP requests against an OpenAI-compatible backend. It
// owns one *http.Client whose connection pool is shared by all requests.
//
// Every failure of the exchange itself is returned as a
// *provider.TransportError.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a new Client for an OpenAI-compatible backend.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	// Normalize: remove trailing slash from base URL.
	baseURL = strings.TrimRight(baseURL, "/")

	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ChatCompletion posts req to /v1/chat/completions.
func (c *Client) ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var resp ChatCompletionResponse
	if err := c.do(ctx, http.MethodPost, ChatPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TextCompletion posts req to /v1/completions.
func (c *Client) TextCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	var resp CompletionResponse
	if err := c.do(ctx, http.MethodPost, CompletionPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListModels returns available models from the backend by querying
// the /v1/models endpoint.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	var modelsResp ChatModelsResponse
	if err := c.do(ctx, http.MethodGet, ModelsPath, nil, &modelsResp); err != nil {
		return nil, err
	}

	models := make([]provider.ModelInfo, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		models = append(models, provider.ModelInfo{
			ID:      m.ID,
			Object:  m.Object,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return MapNetworkError(path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return MapHTTPError(path, httpResp)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return provider.NewDecodeError(path, httpResp.StatusCode, err)
	}
	return nil
}
