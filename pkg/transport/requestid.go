package transport

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rhuss/funcall/pkg/api"
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithRequestID stores id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID makes sure every chat request carries an ID. An ID taken from
// the X-Request-ID header by the HTTP adapter is kept.
func RequestID() Middleware {
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, GenerateRequestID())
			}
			return next.Chat(ctx, req)
		})
	}
}

// GenerateRequestID returns a random ID of 32 hex characters.
func GenerateRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
