package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rhuss/funcall/pkg/conversation"
	"github.com/rhuss/funcall/pkg/debug"
	"github.com/rhuss/funcall/pkg/extract"
	"github.com/rhuss/funcall/pkg/observability"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/tools"
)

// Fixed assistant messages recorded when the loop cannot produce an answer.
const (
	AbortMessage  = "Sorry, this request needed too many steps to complete."
	apologyPrefix = "Sorry, something went wrong while processing your request: "
)

// ErrNilTranscript is returned by Converse when called without a
// transcript.
var ErrNilTranscript = errors.New("engine: transcript must not be nil")

// Result reports the outcome of one Converse call.
type Result struct {
	// Text is the final assistant text.
	Text string

	// State is StateCompleted or StateAborted.
	State State

	// Iterations counts the inference calls made.
	Iterations int

	// ToolsUsed lists invoked capability names in invocation order.
	ToolsUsed []string
}

// Engine runs the orchestration loop against a gateway and an invoker.
// It holds no per-conversation state and is safe for concurrent use with
// distinct transcripts.
type Engine struct {
	gateway provider.Gateway
	invoker tools.Invoker
	cfg     Config
}

// New creates an Engine. Both the gateway and the invoker are required.
func New(g provider.Gateway, inv tools.Invoker, cfg Config) (*Engine, error) {
	if g == nil {
		return nil, errors.New("engine: gateway must not be nil")
	}
	if inv == nil {
		return nil, errors.New("engine: invoker must not be nil")
	}
	return &Engine{
		gateway: g,
		invoker: inv,
		cfg:     cfg,
	}, nil
}

// Converse appends message to tr and runs the loop until the model answers
// in prose, the backend fails, or the iteration budget is spent. The
// transcript must not be used concurrently; callers serialize access.
func (e *Engine) Converse(ctx context.Context, tr *conversation.Transcript, message string) (*Result, error) {
	if tr == nil {
		return nil, ErrNilTranscript
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.timeout())
	defer cancel()

	observability.ActiveConversations.Inc()
	defer observability.ActiveConversations.Dec()

	res := e.run(ctx, tr, message)

	observability.ConversationsTotal.WithLabelValues(res.State.String()).Inc()
	observability.ConversationIterations.Observe(float64(res.Iterations))
	slog.Info("conversation turn finished",
		"state", res.State.String(),
		"iterations", res.Iterations,
		"tools_used", len(res.ToolsUsed),
	)
	return res, nil
}

func (e *Engine) run(ctx context.Context, tr *conversation.Transcript, message string) *Result {
	res := &Result{State: StateAwaitingModel}
	tr.AppendUser(message)

	catalog := e.invoker.Catalog()
	forced := e.forcedTool(message, catalog)

	for res.Iterations < e.cfg.maxIterations() {
		res.Iterations++
		req := &provider.Request{
			Turns:   tr.Turns(),
			Catalog: catalog,
		}
		if res.Iterations == 1 {
			req.ForcedTool = forced
		}

		debug.Log("engine", "calling gateway",
			"iteration", res.Iterations,
			"turns", len(req.Turns),
			"catalog", len(req.Catalog),
			"forced", req.ForcedTool,
		)
		resp, err := e.gateway.Complete(ctx, req)
		if err != nil {
			slog.Error("inference gateway failed", "iteration", res.Iterations, "error", err)
			return e.finish(tr, res, apologyPrefix+err.Error(), StateCompleted)
		}

		res.State = StateInterpretingTurn
		found := extract.Extract(resp)
		if found.Encoding == extract.None {
			return e.finish(tr, res, resp.Content, StateCompleted)
		}

		debug.Log("engine", "call intents extracted",
			"encoding", found.Encoding.String(),
			"calls", len(found.Calls),
		)

		res.State = StateDispatching
		tr.AppendAssistant(conversation.AssistantTurn{Content: resp.Content, Calls: found.Calls})

		for _, out := range e.dispatch(ctx, found.Calls) {
			res.ToolsUsed = append(res.ToolsUsed, out.Name)
			err := tr.AppendToolResult(conversation.ToolResultTurn{
				CallID:  out.CallID,
				Name:    out.Name,
				Content: out.Content(),
			})
			if err != nil {
				// Every outcome answers a call of the turn appended above.
				slog.Error("dropping invocation outcome", "call_id", out.CallID, "error", err)
			}
		}
		res.State = StateAwaitingModel
	}

	slog.Warn("iteration budget exhausted", "max_iterations", e.cfg.maxIterations())
	return e.finish(tr, res, AbortMessage, StateAborted)
}

// finish records the final assistant turn and moves to a terminal state.
func (e *Engine) finish(tr *conversation.Transcript, res *Result, text string, state State) *Result {
	res.State = StateFinalizing
	tr.AppendAssistant(conversation.AssistantTurn{Content: text})
	res.Text = text
	res.State = state
	return res
}

// forcedTool returns the capability to force for message, or "" when no
// hint matches a registered capability.
func (e *Engine) forcedTool(message string, catalog []tools.Definition) string {
	if len(e.cfg.Hints) == 0 || len(catalog) == 0 {
		return ""
	}
	lower := strings.ToLower(message)
	for _, h := range e.cfg.Hints {
		if !inCatalog(catalog, h.Tool) {
			continue
		}
		for _, kw := range h.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return h.Tool
			}
		}
	}
	return ""
}

func inCatalog(catalog []tools.Definition, name string) bool {
	for _, d := range catalog {
		if d.Name == name {
			return true
		}
	}
	return false
}
