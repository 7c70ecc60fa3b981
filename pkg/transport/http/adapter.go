package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/funcall/pkg/api"
	"github.com/rhuss/funcall/pkg/observability"
	"github.com/rhuss/funcall/pkg/transport"
)

// Adapter serves the funcall web API over HTTP.
// It routes requests to the Service and serializes responses.
type Adapter struct {
	svc    transport.Service
	chat   transport.ChatHandler // svc wrapped in middleware
	mux    *http.ServeMux
	config Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// MetricsPath mounts the Prometheus handler. Empty disables it.
	MetricsPath string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
		MetricsPath: "/metrics",
	}
}

// NewAdapter creates an HTTP adapter for svc. Middleware is applied to the
// chat path in the given order.
func NewAdapter(svc transport.Service, cfg Config, middlewares ...transport.Middleware) *Adapter {
	var chat transport.ChatHandler = svc
	if len(middlewares) > 0 {
		chat = transport.Chain(middlewares...)(chat)
	}

	a := &Adapter{
		svc:    svc,
		chat:   chat,
		mux:    http.NewServeMux(),
		config: cfg,
	}

	a.mux.HandleFunc("POST /api/chat", a.handleChat)
	a.mux.HandleFunc("GET /api/tools", a.handleTools)
	a.mux.HandleFunc("GET /api/conversation", a.handleGetConversation)
	a.mux.HandleFunc("DELETE /api/conversation", a.handleResetConversation)
	a.mux.HandleFunc("GET /api/info", a.handleInfo)
	a.mux.HandleFunc("GET /api/models", a.handleModels)
	a.mux.HandleFunc("GET /health", a.handleHealth)
	a.mux.HandleFunc("GET /healthz", handleLiveness)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation and request metrics.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(observability.MetricsMiddleware(a.mux))
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. A client-supplied id is kept; otherwise one is
// generated. The id is echoed in the response headers.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// handleChat handles POST /api/chat.
func (a *Adapter) handleChat(w http.ResponseWriter, r *http.Request) {
	// Validate Content-Type.
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	// Limit body size.
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if apiErr := req.Validate(); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	resp, err := a.chat.Chat(r.Context(), &req)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

// handleTools handles GET /api/tools.
func (a *Adapter) handleTools(w http.ResponseWriter, r *http.Request) {
	tools := a.svc.Tools(r.Context())
	if tools == nil {
		tools = []api.ToolInfo{}
	}
	transport.WriteJSON(w, http.StatusOK, tools)
}

// conversationID reads the required conversation_id query parameter.
func conversationID(r *http.Request) (string, *api.APIError) {
	id := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	if id == "" {
		return "", api.NewInvalidRequestError("conversation_id", "conversation_id is required")
	}
	return id, nil
}

// handleGetConversation handles GET /api/conversation.
func (a *Adapter) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, apiErr := conversationID(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	conv, err := a.svc.Conversation(r.Context(), id)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, conv)
}

// handleResetConversation handles DELETE /api/conversation.
func (a *Adapter) handleResetConversation(w http.ResponseWriter, r *http.Request) {
	id, apiErr := conversationID(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	if err := a.svc.ResetConversation(r.Context(), id); err != nil {
		transport.WriteError(w, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.StatusResponse{
		Status:  "ok",
		Message: "conversation history cleared",
	})
}

// handleInfo handles GET /api/info.
func (a *Adapter) handleInfo(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, a.svc.Info(r.Context()))
}

// handleModels handles GET /api/models.
func (a *Adapter) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := a.svc.Models(r.Context())
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	if models == nil {
		models = []api.ModelEntry{}
	}
	transport.WriteJSON(w, http.StatusOK, api.ModelsResponse{Models: models})
}

// handleHealth handles GET /health. It always answers 200; the backend
// state is reported in the body.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, a.svc.Health(r.Context()))
}

// handleLiveness handles GET /healthz.
func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}
