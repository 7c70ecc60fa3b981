package transport

import (
	"context"

	"github.com/rhuss/funcall/pkg/api"
)

// ChatHandler runs one user message through a conversation. Conversational
// failures (an unreachable backend, a failing capability) are reported in
// the ChatResponse; the error return is for requests that could not be
// processed at all.
type ChatHandler interface {
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
}

// ChatHandlerFunc is an adapter that allows using an ordinary function
// as a ChatHandler.
type ChatHandlerFunc func(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)

// Chat calls f(ctx, req).
func (f ChatHandlerFunc) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	return f(ctx, req)
}

// Service is the full contract served by the HTTP adapter.
type Service interface {
	ChatHandler

	// Conversation returns the rendered history of a conversation. Returns
	// a not_found APIError for unknown ids.
	Conversation(ctx context.Context, id string) (*api.ConversationResponse, error)

	// ResetConversation truncates a conversation to its system turn.
	ResetConversation(ctx context.Context, id string) error

	// Tools lists the registered capabilities sorted by name.
	Tools(ctx context.Context) []api.ToolInfo

	// Models lists the models served by the inference endpoint.
	Models(ctx context.Context) ([]api.ModelEntry, error)

	// Health probes the inference endpoint.
	Health(ctx context.Context) *api.HealthResponse

	// Info describes the running service.
	Info(ctx context.Context) *api.InfoResponse
}
