package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/funcall/pkg/api"
)

// Logging returns middleware that emits one structured log entry per chat
// request with the request ID, conversation, outcome and duration.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
			start := time.Now()

			resp, err := next.Chat(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.Int("message_length", len(req.Message)),
				slog.Bool("clear_history", req.ClearHistory),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "chat request failed", attrs...)
				return resp, err
			}

			attrs = append(attrs,
				slog.String("conversation_id", resp.ConversationID),
				slog.String("state", resp.State),
				slog.Int("iterations", resp.Iterations),
				slog.Any("tools_used", resp.ToolsUsed),
			)
			logger.LogAttrs(ctx, slog.LevelInfo, "chat request completed", attrs...)
			return resp, nil
		})
	}
}
