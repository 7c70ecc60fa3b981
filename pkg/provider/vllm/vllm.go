package vllm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/funcall/pkg/debug"
	"github.com/rhuss/funcall/pkg/observability"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/provider/openaicompat"
)

// Gateway implements provider.Gateway for vLLM and other OpenAI-compatible
// backends. Complete walks the fallback ladder chat → legacy functions →
// text completion and stops at the first success.
type Gateway struct {
	cfg    Config
	client *openaicompat.Client
	caps   provider.Capabilities
}

// Ensure Gateway implements provider.Gateway at compile time.
var _ provider.Gateway = (*Gateway)(nil)

// New creates a new Gateway with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Gateway, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vllm: BaseURL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("vllm: Model is required")
	}

	// Apply default timeout if not set.
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := openaicompat.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	cfg.BaseURL = client.BaseURL()

	return &Gateway{
		cfg:    cfg,
		client: client,
		caps: provider.Capabilities{
			ToolCalling:     true,
			LegacyFunctions: cfg.LegacyFallback,
			TextCompletion:  cfg.CompletionFallback,
		},
	}, nil
}

// Name returns the gateway identifier.
func (g *Gateway) Name() string {
	return "vllm"
}

// Capabilities returns the dialects this gateway may use.
func (g *Gateway) Capabilities() provider.Capabilities {
	return g.caps
}

// Model returns the configured model name.
func (g *Gateway) Model() string {
	return g.cfg.Model
}

// BaseURL returns the normalized endpoint URL.
func (g *Gateway) BaseURL() string {
	return g.cfg.BaseURL
}

// Complete sends req using the first dialect of the fallback ladder that
// succeeds. After the chat request a server error moves on to legacy
// functions, and a server error, missing route (404/405) or network failure
// moves on to text completion. Once the legacy request has been tried, any
// HTTP or network failure moves on to text completion, since a server that
// rejects the deprecated fields answers with a client error. The ladder
// ends on context cancellation, an undecodable 2xx answer, and
// authentication or rate-limit answers (401, 403, 429). The error of the
// last attempt is returned.
func (g *Gateway) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req == nil {
		return nil, errors.New("vllm: nil request")
	}

	ladder := g.caps.Dialects(len(req.Catalog) > 0)

	var (
		lastErr     error
		lastDialect provider.Dialect
	)
	for _, dialect := range ladder {
		if lastErr != nil {
			te, ok := fallbackCandidate(ctx, lastErr, lastDialect)
			if !ok {
				break
			}
			if dialect == provider.DialectFunctions && !te.ServerError() {
				continue
			}
			slog.Warn("inference endpoint failed, falling back",
				"from", lastDialect, "to", dialect, "error", lastErr)
			observability.ProviderFallbacksTotal.WithLabelValues(g.Name(), string(lastDialect), string(dialect)).Inc()
		}

		resp, err := g.attempt(ctx, dialect, req)
		if err == nil {
			observability.ObserveTokens(g.Name(), resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			return resp, nil
		}
		lastErr, lastDialect = err, dialect
	}

	return nil, lastErr
}

// fallbackCandidate reports whether err, returned by the from dialect,
// allows another rung of the ladder.
func fallbackCandidate(ctx context.Context, err error, from provider.Dialect) (*provider.TransportError, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	te, ok := provider.AsTransportError(err)
	if !ok {
		return nil, false
	}
	if te.Err != nil && te.StatusCode != 0 {
		// Undecodable 2xx answer.
		return nil, false
	}
	if te.Terminal() {
		return nil, false
	}
	if from != provider.DialectChat {
		return te, true
	}
	return te, te.ServerError() || te.RouteMissing() || te.Network()
}

func (g *Gateway) params(req *provider.Request) openaicompat.Params {
	p := openaicompat.Params{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}
	if req.MaxTokens > 0 {
		p.MaxTokens = req.MaxTokens
	}
	return p
}

// attempt performs one exchange in the given dialect.
func (g *Gateway) attempt(ctx context.Context, dialect provider.Dialect, req *provider.Request) (*provider.Response, error) {
	debug.Log("providers", "inference request",
		"dialect", dialect, "turns", len(req.Turns), "tools", len(req.Catalog), "forced", req.ForcedTool)

	start := time.Now()
	var (
		resp *provider.Response
		err  error
		path string
	)

	switch dialect {
	case provider.DialectChat, provider.DialectFunctions:
		path = openaicompat.ChatPath
		var cr openaicompat.ChatCompletionRequest
		if dialect == provider.DialectChat {
			cr = openaicompat.TranslateToChat(g.params(req), req)
		} else {
			cr = openaicompat.TranslateToFunctions(g.params(req), req)
		}
		var chatResp *openaicompat.ChatCompletionResponse
		chatResp, err = g.client.ChatCompletion(ctx, &cr)
		if err == nil {
			resp, err = openaicompat.NormalizeChat(chatResp, dialect)
		}

	case provider.DialectCompletion:
		path = openaicompat.CompletionPath
		cr := openaicompat.TranslateToCompletion(g.params(req), req)
		var compResp *openaicompat.CompletionResponse
		compResp, err = g.client.TextCompletion(ctx, &cr)
		if err == nil {
			resp, err = openaicompat.NormalizeCompletion(compResp)
		}

	default:
		return nil, fmt.Errorf("vllm: unknown dialect %q", dialect)
	}

	if errors.Is(err, openaicompat.ErrNoChoices) {
		err = provider.NewDecodeError(path, 200, err)
	}
	observability.ObserveProviderRequest(g.Name(), string(dialect), statusOf(err), time.Since(start))

	if err != nil {
		debug.Log("providers", "inference request failed", "dialect", dialect, "error", err)
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = g.cfg.Model
	}

	debug.Log("providers", "inference response",
		"dialect", dialect, "tool_calls", len(resp.ToolCalls), "finish_reason", resp.FinishReason,
		"duration", time.Since(start))
	debug.Trace("providers", "inference response content", "content", resp.Content)
	return resp, nil
}

func statusOf(err error) int {
	if err == nil {
		return 200
	}
	if te, ok := provider.AsTransportError(err); ok {
		return te.StatusCode
	}
	return 0
}

// ListModels returns the models served by the backend.
func (g *Gateway) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return g.client.ListModels(ctx)
}

// Close releases gateway resources.
func (g *Gateway) Close() error {
	return g.client.Close()
}
