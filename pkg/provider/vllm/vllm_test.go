package vllm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rhuss/funcall/pkg/conversation"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/provider/openaicompat"
	"github.com/rhuss/funcall/pkg/tools"
)

// backend is a scripted OpenAI-compatible server. Each handler field
// answers one kind of request; a nil handler answers 404.
type backend struct {
	mu    sync.Mutex
	calls []string

	chat       func(w http.ResponseWriter, req openaicompat.ChatCompletionRequest)
	legacy     func(w http.ResponseWriter, req openaicompat.ChatCompletionRequest)
	completion func(w http.ResponseWriter, req openaicompat.CompletionRequest)
}

func (b *backend) record(kind string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, kind)
}

func (b *backend) recorded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case openaicompat.ChatPath:
		var req openaicompat.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Functions) > 0 {
			b.record("functions")
			if b.legacy == nil {
				http.NotFound(w, r)
				return
			}
			b.legacy(w, req)
			return
		}
		b.record("chat")
		if b.chat == nil {
			http.NotFound(w, r)
			return
		}
		b.chat(w, req)
	case openaicompat.CompletionPath:
		var req openaicompat.CompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.record("completion")
		if b.completion == nil {
			http.NotFound(w, r)
			return
		}
		b.completion(w, req)
	case openaicompat.ModelsPath:
		w.Write([]byte(`{"object":"list","data":[{"id":"test-model","object":"model","owned_by":"vllm"}]}`))
	default:
		http.NotFound(w, r)
	}
}

func status(code int) func(w http.ResponseWriter, _ openaicompat.ChatCompletionRequest) {
	return func(w http.ResponseWriter, _ openaicompat.ChatCompletionRequest) {
		w.WriteHeader(code)
		w.Write([]byte(`{"error":{"message":"scripted failure"}}`))
	}
}

func textAnswer(text string) func(w http.ResponseWriter, _ openaicompat.ChatCompletionRequest) {
	return func(w http.ResponseWriter, _ openaicompat.ChatCompletionRequest) {
		json.NewEncoder(w).Encode(openaicompat.ChatCompletionResponse{
			Model: "test-model",
			Choices: []openaicompat.ChatChoice{{
				Message:      openaicompat.ChatMessage{Role: "assistant", Content: &text},
				FinishReason: "stop",
			}},
			Usage: &openaicompat.ChatUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
		})
	}
}

func completionAnswer(text string) func(w http.ResponseWriter, _ openaicompat.CompletionRequest) {
	return func(w http.ResponseWriter, _ openaicompat.CompletionRequest) {
		json.NewEncoder(w).Encode(openaicompat.CompletionResponse{
			Model:   "test-model",
			Choices: []openaicompat.CompletionChoice{{Text: text, FinishReason: "stop"}},
		})
	}
}

func newGateway(t *testing.T, b *backend) *Gateway {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	g, err := New(DefaultConfig(srv.URL, "test-model"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func request(withCatalog bool) *provider.Request {
	req := &provider.Request{
		Turns: []conversation.Turn{
			conversation.SystemTurn{Content: "You are helpful."},
			conversation.UserTurn{Content: "What time is it?"},
		},
	}
	if withCatalog {
		req.Catalog = []tools.Definition{{
			Name:        "get_current_time",
			Description: "Returns the current time",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"timezone":{"type":"string"}}}`),
		}}
	}
	return req
}

func assertCalls(t *testing.T, b *backend, want ...string) {
	t.Helper()
	got := b.recorded()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("backend calls = %v, want %v", got, want)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Model: "m"}); err == nil {
		t.Error("expected error for missing BaseURL")
	}
	if _, err := New(Config{BaseURL: "http://localhost:8000"}); err == nil {
		t.Error("expected error for missing Model")
	}

	g, err := New(Config{BaseURL: "http://localhost:8000/", Model: "m"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.BaseURL() != "http://localhost:8000" {
		t.Errorf("BaseURL() = %q", g.BaseURL())
	}
	if g.Name() != "vllm" || g.Model() != "m" {
		t.Errorf("Name/Model = %q/%q", g.Name(), g.Model())
	}
}

func TestComplete_ChatWithTools(t *testing.T) {
	var seen openaicompat.ChatCompletionRequest
	b := &backend{
		chat: func(w http.ResponseWriter, req openaicompat.ChatCompletionRequest) {
			seen = req
			json.NewEncoder(w).Encode(openaicompat.ChatCompletionResponse{
				Model: "test-model",
				Choices: []openaicompat.ChatChoice{{
					Message: openaicompat.ChatMessage{
						Role: "assistant",
						ToolCalls: []openaicompat.ChatToolCall{{
							ID: "call_1", Type: "function",
							Function: openaicompat.ChatFunctionCall{Name: "get_current_time", Arguments: `{}`},
						}},
					},
					FinishReason: "tool_calls",
				}},
			})
		},
	}
	g := newGateway(t, b)

	resp, err := g.Complete(context.Background(), request(true))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	assertCalls(t, b, "chat")
	if resp.Dialect != provider.DialectChat {
		t.Errorf("dialect = %q", resp.Dialect)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_1" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
	if seen.Model != "test-model" || len(seen.Tools) != 1 || seen.ToolChoice != "auto" {
		t.Errorf("unexpected request: model=%q tools=%d tool_choice=%v", seen.Model, len(seen.Tools), seen.ToolChoice)
	}
	if seen.MaxTokens == nil || *seen.MaxTokens != 1000 {
		t.Errorf("max_tokens = %v, want 1000", seen.MaxTokens)
	}
}

func TestComplete_NoCatalogOmitsTools(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		textAnswer("hello")(w, openaicompat.ChatCompletionRequest{})
	}))
	defer srv.Close()

	g, err := New(DefaultConfig(srv.URL, "test-model"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := g.Complete(context.Background(), request(false))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q", resp.Content)
	}
	if _, ok := raw["tools"]; ok {
		t.Error("tools must be omitted without a catalog")
	}
	if _, ok := raw["tool_choice"]; ok {
		t.Error("tool_choice must be omitted without a catalog")
	}
}

func TestComplete_ForcedToolChoice(t *testing.T) {
	var choice any
	b := &backend{
		chat: func(w http.ResponseWriter, req openaicompat.ChatCompletionRequest) {
			choice = req.ToolChoice
			textAnswer("ok")(w, req)
		},
	}
	g := newGateway(t, b)

	req := request(true)
	req.ForcedTool = "get_current_time"
	if _, err := g.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	m, ok := choice.(map[string]any)
	if !ok {
		t.Fatalf("tool_choice = %#v, want object", choice)
	}
	fn, _ := m["function"].(map[string]any)
	if m["type"] != "function" || fn["name"] != "get_current_time" {
		t.Errorf("tool_choice = %#v", m)
	}
}

func TestComplete_ServerErrorFallsBackToLegacy(t *testing.T) {
	var legacyReq openaicompat.ChatCompletionRequest
	b := &backend{
		chat: status(http.StatusInternalServerError),
		legacy: func(w http.ResponseWriter, req openaicompat.ChatCompletionRequest) {
			legacyReq = req
			json.NewEncoder(w).Encode(openaicompat.ChatCompletionResponse{
				Choices: []openaicompat.ChatChoice{{
					Message: openaicompat.ChatMessage{
						Role:     "assistant",
						Function: &openaicompat.ChatFunctionCall{Name: "get_current_time", Arguments: `{"timezone":"UTC"}`},
					},
					FinishReason: "function_call",
				}},
			})
		},
	}
	g := newGateway(t, b)

	resp, err := g.Complete(context.Background(), request(true))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	assertCalls(t, b, "chat", "functions")
	if resp.Dialect != provider.DialectFunctions {
		t.Errorf("dialect = %q", resp.Dialect)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "get_current_time" || resp.ToolCalls[0].ID == "" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
	if len(legacyReq.Tools) != 0 || legacyReq.FunctionCall != "auto" {
		t.Errorf("legacy request should use functions/function_call: %+v", legacyReq)
	}
	if resp.Model != "test-model" {
		t.Errorf("missing model should default to the configured one, got %q", resp.Model)
	}
}

func TestComplete_CompletionFallbackAfterChatAndLegacyFail(t *testing.T) {
	var prompt string
	b := &backend{
		chat:   status(http.StatusInternalServerError),
		legacy: status(http.StatusBadGateway),
		completion: func(w http.ResponseWriter, req openaicompat.CompletionRequest) {
			prompt = req.Prompt
			completionAnswer(" It is noon.")(w, req)
		},
	}
	g := newGateway(t, b)

	resp, err := g.Complete(context.Background(), request(true))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	assertCalls(t, b, "chat", "functions", "completion")
	if resp.Dialect != provider.DialectCompletion || resp.Content != "It is noon." {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("completion dialect must not yield tool calls")
	}
	if prompt != "System: You are helpful.\nUser: What time is it?\nAssistant:" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestComplete_MissingChatRouteSkipsLegacy(t *testing.T) {
	b := &backend{
		chat:       status(http.StatusNotFound),
		legacy:     textAnswer("should not be used"),
		completion: completionAnswer("from completions"),
	}
	g := newGateway(t, b)

	resp, err := g.Complete(context.Background(), request(true))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	assertCalls(t, b, "chat", "completion")
	if resp.Content != "from completions" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestComplete_NoCatalogFallsBackToCompletion(t *testing.T) {
	b := &backend{
		chat:       status(http.StatusServiceUnavailable),
		completion: completionAnswer("plain"),
	}
	g := newGateway(t, b)

	resp, err := g.Complete(context.Background(), request(false))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	assertCalls(t, b, "chat", "completion")
	if resp.Content != "plain" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestComplete_ClientErrorStopsLadder(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			b := &backend{
				chat:       status(code),
				completion: completionAnswer("unused"),
			}
			g := newGateway(t, b)

			_, err := g.Complete(context.Background(), request(false))
			te, ok := provider.AsTransportError(err)
			if !ok {
				t.Fatalf("expected TransportError, got %T: %v", err, err)
			}
			if te.StatusCode != code {
				t.Errorf("status = %d, want %d", te.StatusCode, code)
			}
			assertCalls(t, b, "chat")
		})
	}
}

func TestComplete_RejectedLegacyFieldsFallBackToCompletion(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			b := &backend{
				chat: status(http.StatusInternalServerError),
				legacy: func(w http.ResponseWriter, _ openaicompat.ChatCompletionRequest) {
					w.WriteHeader(code)
					w.Write([]byte(`{"error":{"message":"functions is not a valid field"}}`))
				},
				completion: completionAnswer("It is noon."),
			}
			g := newGateway(t, b)

			resp, err := g.Complete(context.Background(), request(true))
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			assertCalls(t, b, "chat", "functions", "completion")
			if resp.Dialect != provider.DialectCompletion || resp.Content != "It is noon." {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestComplete_LegacyAuthFailureStopsLadder(t *testing.T) {
	b := &backend{
		chat:       status(http.StatusInternalServerError),
		legacy:     status(http.StatusUnauthorized),
		completion: completionAnswer("unused"),
	}
	g := newGateway(t, b)

	_, err := g.Complete(context.Background(), request(true))
	te, ok := provider.AsTransportError(err)
	if !ok || te.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 TransportError, got %v", err)
	}
	assertCalls(t, b, "chat", "functions")
}

func TestComplete_ChatClientErrorWithCatalogStops(t *testing.T) {
	b := &backend{
		chat:       status(http.StatusBadRequest),
		legacy:     textAnswer("unused"),
		completion: completionAnswer("unused"),
	}
	g := newGateway(t, b)

	if _, err := g.Complete(context.Background(), request(true)); err == nil {
		t.Fatal("expected error")
	}
	assertCalls(t, b, "chat")
}

func TestComplete_AllDialectsFail(t *testing.T) {
	b := &backend{
		chat:   status(http.StatusInternalServerError),
		legacy: status(http.StatusInternalServerError),
		completion: func(w http.ResponseWriter, _ openaicompat.CompletionRequest) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("model is loading"))
		},
	}
	g := newGateway(t, b)

	resp, err := g.Complete(context.Background(), request(true))
	if resp != nil {
		t.Errorf("expected nil response, got %+v", resp)
	}
	te, ok := provider.AsTransportError(err)
	if !ok {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if te.StatusCode != http.StatusServiceUnavailable || te.Endpoint != openaicompat.CompletionPath {
		t.Errorf("should report the last attempt, got %+v", te)
	}
	if te.Body != "model is loading" {
		t.Errorf("body = %q", te.Body)
	}
	assertCalls(t, b, "chat", "functions", "completion")
}

func TestComplete_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g, err := New(DefaultConfig(url, "test-model"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = g.Complete(context.Background(), request(true))
	te, ok := provider.AsTransportError(err)
	if !ok {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if !te.Network() {
		t.Errorf("expected network failure, got %+v", te)
	}
	if te.Endpoint != openaicompat.CompletionPath {
		t.Errorf("network failure should reach the completion step, last endpoint = %q", te.Endpoint)
	}
}

func TestComplete_FallbacksDisabled(t *testing.T) {
	b := &backend{
		chat:       status(http.StatusInternalServerError),
		legacy:     textAnswer("unused"),
		completion: completionAnswer("unused"),
	}
	srv := httptest.NewServer(b)
	defer srv.Close()

	cfg := DefaultConfig(srv.URL, "test-model")
	cfg.LegacyFallback = false
	cfg.CompletionFallback = false
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := g.Complete(context.Background(), request(true)); err == nil {
		t.Fatal("expected error")
	}
	assertCalls(t, b, "chat")
}

func TestComplete_CancelledContextStopsLadder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &backend{
		chat: func(w http.ResponseWriter, req openaicompat.ChatCompletionRequest) {
			cancel()
			status(http.StatusInternalServerError)(w, req)
		},
		legacy:     textAnswer("unused"),
		completion: completionAnswer("unused"),
	}
	g := newGateway(t, b)

	if _, err := g.Complete(ctx, request(true)); err == nil {
		t.Fatal("expected error")
	}
	assertCalls(t, b, "chat")
}

func TestComplete_EmptyChoicesIsAnError(t *testing.T) {
	b := &backend{
		chat: func(w http.ResponseWriter, _ openaicompat.ChatCompletionRequest) {
			w.Write([]byte(`{"id":"x","choices":[]}`))
		},
		completion: completionAnswer("unused"),
	}
	g := newGateway(t, b)

	_, err := g.Complete(context.Background(), request(false))
	te, ok := provider.AsTransportError(err)
	if !ok || te.Err == nil {
		t.Fatalf("expected decode TransportError, got %v", err)
	}
	assertCalls(t, b, "chat")
}

func TestListModels(t *testing.T) {
	g := newGateway(t, &backend{})

	models, err := g.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0].ID != "test-model" {
		t.Errorf("models = %+v", models)
	}
}

func TestComplete_RequestMaxTokensOverride(t *testing.T) {
	var seen openaicompat.ChatCompletionRequest
	b := &backend{
		chat: func(w http.ResponseWriter, req openaicompat.ChatCompletionRequest) {
			seen = req
			textAnswer("short")(w, req)
		},
	}
	g := newGateway(t, b)

	req := request(false)
	req.MaxTokens = 50
	if _, err := g.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if seen.MaxTokens == nil || *seen.MaxTokens != 50 {
		t.Errorf("max_tokens = %v, want 50", seen.MaxTokens)
	}
}
