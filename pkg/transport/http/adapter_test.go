package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rhuss/funcall/pkg/api"
	"github.com/rhuss/funcall/pkg/transport"
)

// fakeService implements transport.Service with canned data.
type fakeService struct {
	mu        sync.Mutex
	chats     []*api.ChatRequest
	chatErr   error
	resets    []string
	models    []api.ModelEntry
	modelsErr error
	panicMsg  string
}

var _ transport.Service = (*fakeService)(nil)

func (f *fakeService) Chat(_ context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.mu.Lock()
	f.chats = append(f.chats, req)
	f.mu.Unlock()
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	id := req.ConversationID
	if id == "" {
		id = "generated-id"
	}
	return &api.ChatResponse{
		Response:       "echo: " + req.Message,
		ConversationID: id,
		ToolsUsed:      []string{"get_current_time"},
		State:          "completed",
		Iterations:     2,
	}, nil
}

func (f *fakeService) Conversation(_ context.Context, id string) (*api.ConversationResponse, error) {
	if id != "known" {
		return nil, api.NewNotFoundError("conversation " + id + " not found")
	}
	return &api.ConversationResponse{
		ConversationID: id,
		ConversationHistory: []api.HistoryMessage{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "hi"},
		},
		ToolsCount: 3,
	}, nil
}

func (f *fakeService) ResetConversation(_ context.Context, id string) error {
	if id != "known" {
		return api.NewNotFoundError("conversation " + id + " not found")
	}
	f.resets = append(f.resets, id)
	return nil
}

func (f *fakeService) Tools(context.Context) []api.ToolInfo {
	return []api.ToolInfo{{Name: "calculate", Description: "math", Parameters: json.RawMessage(`{"type":"object"}`), Type: "function"}}
}

func (f *fakeService) Models(context.Context) ([]api.ModelEntry, error) {
	return f.models, f.modelsErr
}

func (f *fakeService) Health(context.Context) *api.HealthResponse {
	return &api.HealthResponse{Status: "healthy", Service: "funcall", Version: "test", BackendConnected: true, ToolsCount: 3}
}

func (f *fakeService) Info(context.Context) *api.InfoResponse {
	return &api.InfoResponse{Service: "funcall", Version: "test", Environment: "development", Model: "qwen"}
}

func newTestAdapter(svc *fakeService) gohttp.Handler {
	return NewAdapter(svc, DefaultConfig(),
		transport.Recovery(),
		transport.RequestID(),
	).Handler()
}

func do(t *testing.T, h gohttp.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *gohttp.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *api.APIError {
	t.Helper()
	var body api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body %q: %v", rec.Body.String(), err)
	}
	if body.Error == nil {
		t.Fatalf("no error in body %q", rec.Body.String())
	}
	return body.Error
}

func TestChat_RoundTrip(t *testing.T) {
	svc := &fakeService{}
	h := newTestAdapter(svc)

	rec := do(t, h, gohttp.MethodPost, "/api/chat", `{"message":"hello","clear_history":true,"conversation_id":"c1"}`)
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp api.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Response != "echo: hello" || resp.ConversationID != "c1" || resp.State != "completed" || resp.Iterations != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if len(svc.chats) != 1 || !svc.chats[0].ClearHistory {
		t.Errorf("service saw %+v", svc.chats)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestChat_RequestIDPropagated(t *testing.T) {
	h := newTestAdapter(&fakeService{})
	req := httptest.NewRequest(gohttp.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("X-Request-ID", "client-chosen")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-chosen" {
		t.Errorf("X-Request-ID = %q, want client-chosen", got)
	}
}

func TestChat_Validation(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		wantParam   string
	}{
		{name: "empty message", body: `{"message":""}`, wantStatus: gohttp.StatusBadRequest, wantParam: "message"},
		{name: "blank message", body: `{"message":"   "}`, wantStatus: gohttp.StatusBadRequest, wantParam: "message"},
		{name: "invalid json", body: `{"message":`, wantStatus: gohttp.StatusBadRequest, wantParam: "body"},
		{name: "wrong content type", body: `{"message":"hi"}`, contentType: "text/plain", wantStatus: gohttp.StatusUnsupportedMediaType, wantParam: "content_type"},
		{name: "too large", body: `{"message":"` + strings.Repeat("x", 2<<20) + `"}`, wantStatus: gohttp.StatusRequestEntityTooLarge, wantParam: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			req := httptest.NewRequest(gohttp.MethodPost, "/api/chat", bytes.NewBufferString(tt.body))
			ct := tt.contentType
			if ct == "" {
				ct = "application/json; charset=utf-8"
			}
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			newTestAdapter(svc).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if apiErr := decodeError(t, rec); apiErr.Param != tt.wantParam {
				t.Errorf("param = %q, want %q", apiErr.Param, tt.wantParam)
			}
			if len(svc.chats) != 0 {
				t.Error("service called for invalid request")
			}
		})
	}
}

func TestChat_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		svc        *fakeService
		wantStatus int
		wantType   api.ErrorType
	}{
		{
			name:       "backend error",
			svc:        &fakeService{chatErr: api.NewBackendError("backend unreachable")},
			wantStatus: gohttp.StatusBadGateway,
			wantType:   api.ErrorTypeBackendError,
		},
		{
			name:       "plain error",
			svc:        &fakeService{chatErr: errors.New("unexpected")},
			wantStatus: gohttp.StatusInternalServerError,
			wantType:   api.ErrorTypeServerError,
		},
		{
			name:       "panic recovered",
			svc:        &fakeService{panicMsg: "kaboom"},
			wantStatus: gohttp.StatusInternalServerError,
			wantType:   api.ErrorTypeServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestAdapter(tt.svc), gohttp.MethodPost, "/api/chat", `{"message":"hi"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeError(t, rec).Type; got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func TestTools(t *testing.T) {
	rec := do(t, newTestAdapter(&fakeService{}), gohttp.MethodGet, "/api/tools", "")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var tools []api.ToolInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &tools); err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 || tools[0].Name != "calculate" || tools[0].Type != "function" {
		t.Errorf("tools = %+v", tools)
	}
}

func TestConversation_GetAndReset(t *testing.T) {
	svc := &fakeService{}
	h := newTestAdapter(svc)

	rec := do(t, h, gohttp.MethodGet, "/api/conversation?conversation_id=known", "")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var conv api.ConversationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatal(err)
	}
	if conv.ConversationID != "known" || len(conv.ConversationHistory) != 2 || conv.ToolsCount != 3 {
		t.Errorf("conversation = %+v", conv)
	}

	rec = do(t, h, gohttp.MethodDelete, "/api/conversation?conversation_id=known", "")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if len(svc.resets) != 1 {
		t.Errorf("resets = %v", svc.resets)
	}

	rec = do(t, h, gohttp.MethodGet, "/api/conversation?conversation_id=unknown", "")
	if rec.Code != gohttp.StatusNotFound {
		t.Errorf("unknown GET status = %d, want 404", rec.Code)
	}
	rec = do(t, h, gohttp.MethodDelete, "/api/conversation?conversation_id=unknown", "")
	if rec.Code != gohttp.StatusNotFound {
		t.Errorf("unknown DELETE status = %d, want 404", rec.Code)
	}

	rec = do(t, h, gohttp.MethodGet, "/api/conversation", "")
	if rec.Code != gohttp.StatusBadRequest || decodeError(t, rec).Param != "conversation_id" {
		t.Errorf("missing id: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestModels(t *testing.T) {
	svc := &fakeService{models: []api.ModelEntry{{ID: "qwen", OwnedBy: "vllm"}}}
	rec := do(t, newTestAdapter(svc), gohttp.MethodGet, "/api/models", "")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var models api.ModelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &models); err != nil {
		t.Fatal(err)
	}
	if len(models.Models) != 1 || models.Models[0].ID != "qwen" {
		t.Errorf("models = %+v", models)
	}

	failing := &fakeService{modelsErr: api.NewBackendError("connection refused")}
	rec = do(t, newTestAdapter(failing), gohttp.MethodGet, "/api/models", "")
	if rec.Code != gohttp.StatusBadGateway {
		t.Errorf("failing status = %d, want 502", rec.Code)
	}

	empty := &fakeService{}
	rec = do(t, newTestAdapter(empty), gohttp.MethodGet, "/api/models", "")
	if !strings.Contains(rec.Body.String(), `"models":[]`) {
		t.Errorf("empty list body = %s", rec.Body.String())
	}
}

func TestHealthInfoAndLiveness(t *testing.T) {
	h := newTestAdapter(&fakeService{})

	rec := do(t, h, gohttp.MethodGet, "/health", "")
	var health api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if rec.Code != gohttp.StatusOK || health.Status != "healthy" || !health.BackendConnected {
		t.Errorf("health = %d %+v", rec.Code, health)
	}

	rec = do(t, h, gohttp.MethodGet, "/api/info", "")
	var info api.InfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Service != "funcall" || info.Model != "qwen" {
		t.Errorf("info = %+v", info)
	}

	rec = do(t, h, gohttp.MethodGet, "/healthz", "")
	if rec.Code != gohttp.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestAdapter(&fakeService{})
	_ = do(t, h, gohttp.MethodGet, "/healthz", "")

	rec := do(t, h, gohttp.MethodGet, "/metrics", "")
	if rec.Code != gohttp.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "funcall_requests_total") {
		t.Error("metrics output missing funcall_requests_total")
	}

	disabled := NewAdapter(&fakeService{}, Config{MaxBodySize: 1 << 20}).Handler()
	rec = do(t, disabled, gohttp.MethodGet, "/metrics", "")
	if rec.Code != gohttp.StatusNotFound {
		t.Errorf("disabled metrics status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestAdapter(&fakeService{}), gohttp.MethodPut, "/api/chat", `{"message":"hi"}`)
	if rec.Code != gohttp.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
