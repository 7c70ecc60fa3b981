package transport

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/funcall/pkg/api"
)

// Recovery turns a panic inside the chat path into a server_error so that
// one broken conversation cannot take the process down. The panic value is
// logged with its stack; the client only sees a generic message.
func Recovery() Middleware {
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest) (resp *api.ChatResponse, err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				slog.Error("panic in chat handler",
					"request_id", RequestIDFromContext(ctx),
					"conversation_id", req.ConversationID,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				resp, err = nil, api.NewServerError("internal error while processing the message")
			}()
			return next.Chat(ctx, req)
		})
	}
}
