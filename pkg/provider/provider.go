package provider

import (
	"context"
)

// Gateway abstracts an inference endpoint speaking the OpenAI-compatible
// chat-completions protocol. Implementations hide protocol fallbacks
// (legacy function calling, plain text completions) behind a single
// Complete call and always return a normalized Response.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Gateway interface {
	// Name returns the gateway identifier (e.g., "vllm").
	Name() string

	// Capabilities reports which protocol dialects the gateway may use.
	Capabilities() Capabilities

	// Complete sends the transcript and capability catalog to the endpoint
	// and returns the normalized answer. When every dialect fails the error
	// is a *TransportError describing the last attempt.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// ListModels returns the models served by the endpoint.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases gateway resources (HTTP clients, connections).
	Close() error
}
