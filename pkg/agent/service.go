package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/funcall/pkg/api"
	"github.com/rhuss/funcall/pkg/engine"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/session"
	"github.com/rhuss/funcall/pkg/tools"
	"github.com/rhuss/funcall/pkg/transport"
)

// DefaultHealthTimeout bounds the backend probe of Health.
const DefaultHealthTimeout = 5 * time.Second

// Info describes the running service for /api/info and /health.
type Info struct {
	Service     string
	Version     string
	Environment string
	BaseURL     string
	Model       string

	// HealthTimeout bounds the backend probe. Zero means 5 seconds.
	HealthTimeout time.Duration
}

// Service implements transport.Service on top of the orchestration engine.
type Service struct {
	engine   *engine.Engine
	sessions *session.Store
	invoker  tools.Invoker
	gateway  provider.Gateway
	info     Info
}

// Ensure Service implements transport.Service at compile time.
var _ transport.Service = (*Service)(nil)

// New creates a Service. All collaborators are required.
func New(eng *engine.Engine, sessions *session.Store, inv tools.Invoker, gw provider.Gateway, info Info) (*Service, error) {
	if eng == nil || sessions == nil || inv == nil || gw == nil {
		return nil, errors.New("agent: engine, session store, invoker and gateway are required")
	}
	if info.HealthTimeout <= 0 {
		info.HealthTimeout = DefaultHealthTimeout
	}
	return &Service{
		engine:   eng,
		sessions: sessions,
		invoker:  inv,
		gateway:  gw,
		info:     info,
	}, nil
}

// Chat runs req.Message through the selected conversation, creating it
// when needed. The conversation is locked for the whole call.
func (s *Service) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	conv, created := s.sessions.Open(req.ConversationID)
	if created {
		slog.Debug("conversation created", "conversation_id", conv.ID)
	}

	conv.Lock()
	defer conv.Unlock()

	tr := conv.Transcript()
	if req.ClearHistory {
		tr.Reset()
	}

	res, err := s.engine.Converse(ctx, tr, req.Message)
	if err != nil {
		return nil, api.NewServerError(err.Error())
	}

	toolsUsed := res.ToolsUsed
	if toolsUsed == nil {
		toolsUsed = []string{}
	}
	return &api.ChatResponse{
		Response:       res.Text,
		ConversationID: conv.ID,
		ToolsUsed:      toolsUsed,
		State:          res.State.String(),
		Iterations:     res.Iterations,
	}, nil
}

// Conversation renders the history of an existing conversation.
func (s *Service) Conversation(_ context.Context, id string) (*api.ConversationResponse, error) {
	conv, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	conv.Lock()
	history := renderHistory(conv.Transcript())
	conv.Unlock()

	return &api.ConversationResponse{
		ConversationID:      conv.ID,
		ConversationHistory: history,
		ToolsCount:          len(s.invoker.Catalog()),
	}, nil
}

// ResetConversation truncates an existing conversation to its system turn.
func (s *Service) ResetConversation(_ context.Context, id string) error {
	conv, err := s.lookup(id)
	if err != nil {
		return err
	}

	conv.Lock()
	conv.Transcript().Reset()
	conv.Unlock()

	slog.Info("conversation reset", "conversation_id", id)
	return nil
}

func (s *Service) lookup(id string) (*session.Conversation, error) {
	conv, err := s.sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, api.NewNotFoundError("conversation " + id + " not found")
	}
	return conv, err
}

// Tools lists the registered capabilities.
func (s *Service) Tools(context.Context) []api.ToolInfo {
	catalog := s.invoker.Catalog()
	infos := make([]api.ToolInfo, 0, len(catalog))
	for _, d := range catalog {
		infos = append(infos, api.ToolInfo{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
			Type:        d.Kind.String(),
		})
	}
	return infos
}

// Models lists the models served by the inference endpoint.
func (s *Service) Models(ctx context.Context) ([]api.ModelEntry, error) {
	models, err := s.gateway.ListModels(ctx)
	if err != nil {
		slog.Warn("listing models failed", "error", err)
		return nil, backendError(err)
	}

	entries := make([]api.ModelEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, api.ModelEntry{ID: m.ID, OwnedBy: m.OwnedBy})
	}
	return entries, nil
}

// backendError maps a gateway failure to an APIError. A rate-limited
// backend is passed through as 429.
func backendError(err error) *api.APIError {
	if te, ok := provider.AsTransportError(err); ok && te.StatusCode == http.StatusTooManyRequests {
		return api.NewTooManyRequestsError(err.Error())
	}
	return api.NewBackendError(err.Error())
}

// Health probes the inference endpoint with a short timeout and reports
// "degraded" when it does not answer.
func (s *Service) Health(ctx context.Context) *api.HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, s.info.HealthTimeout)
	defer cancel()

	_, err := s.gateway.ListModels(ctx)
	connected := err == nil
	status := "healthy"
	if !connected {
		status = "degraded"
		slog.Debug("backend probe failed", "error", err)
	}

	return &api.HealthResponse{
		Status:           status,
		Service:          s.info.Service,
		Version:          s.info.Version,
		BackendConnected: connected,
		ToolsCount:       len(s.invoker.Catalog()),
	}
}

// Info describes the running service.
func (s *Service) Info(context.Context) *api.InfoResponse {
	dialects := s.gateway.Capabilities().Dialects(true)
	names := make([]string, 0, len(dialects))
	for _, d := range dialects {
		names = append(names, string(d))
	}

	return &api.InfoResponse{
		Service:     s.info.Service,
		Version:     s.info.Version,
		Environment: s.info.Environment,
		BaseURL:     s.info.BaseURL,
		Model:       s.info.Model,
		Dialects:    names,
	}
}
