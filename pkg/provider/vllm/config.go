package vllm

import "time"

// Config holds configuration for the vLLM gateway.
type Config struct {
	// BaseURL is the vLLM server URL (e.g., "http://localhost:8000").
	BaseURL string

	// Model is the served model name sent with every request.
	Model string

	// APIKey for vLLM authentication (optional).
	APIKey string

	// MaxTokens caps the completion length. Zero leaves it to the server.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// Timeout for individual HTTP requests. Defaults to 60s.
	Timeout time.Duration

	// LegacyFallback retries a request whose chat dialect failed with a
	// server error using functions/function_call.
	LegacyFallback bool

	// CompletionFallback retries a failed request against /v1/completions
	// with a flattened prompt.
	CompletionFallback bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(baseURL, model string) Config {
	return Config{
		BaseURL:            baseURL,
		Model:              model,
		MaxTokens:          1000,
		Temperature:        0.7,
		Timeout:            60 * time.Second,
		LegacyFallback:     true,
		CompletionFallback: true,
	}
}
