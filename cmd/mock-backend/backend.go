package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/rhuss/funcall/pkg/provider/openaicompat"
)

// Modes.
const (
	modeTools  = "tools"
	modeLegacy = "legacy"
	modeText   = "text"
)

// backend answers from a fixed script: a request for the time calls
// get_current_time, "calculate <expr>" calls calculate, a tool result is
// reported back, anything else is echoed.
type backend struct {
	mode  string
	model string
	seq   atomic.Int64
}

func newBackend(mode, model string) (*backend, error) {
	switch mode {
	case modeTools, modeLegacy, modeText:
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	return &backend{mode: mode, model: model}, nil
}

func (b *backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+openaicompat.ModelsPath, b.handleModels)
	if b.mode != modeText {
		mux.HandleFunc("POST "+openaicompat.ChatPath, b.handleChat)
	}
	mux.HandleFunc("POST "+openaicompat.CompletionPath, b.handleCompletion)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return mux
}

// exchange is the part of a request the script looks at.
type exchange struct {
	user       string
	toolName   string
	toolResult string
	afterTool  bool
}

// reply is the scripted answer: either text or one invocation.
type reply struct {
	text string
	tool string
	args string
}

func script(x exchange) reply {
	if x.afterTool {
		return reply{text: fmt.Sprintf("The result of %s is: %s", x.toolName, x.toolResult)}
	}
	lower := strings.ToLower(x.user)
	if i := strings.Index(lower, "calculate "); i >= 0 {
		args, _ := json.Marshal(map[string]string{"expression": strings.TrimSpace(x.user[i+len("calculate "):])})
		return reply{tool: "calculate", args: string(args)}
	}
	if strings.Contains(lower, "time") {
		return reply{tool: "get_current_time", args: "{}"}
	}
	return reply{text: "Echo: " + x.user}
}

func (b *backend) handleChat(w http.ResponseWriter, r *http.Request) {
	var req openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if b.mode == modeLegacy && len(req.Tools) > 0 {
		writeError(w, http.StatusInternalServerError, "tools are not supported by this server")
		return
	}

	x := exchange{}
	for _, m := range req.Messages {
		content := ""
		if m.Content != nil {
			content = *m.Content
		}
		switch m.Role {
		case "user":
			x = exchange{user: content}
		case "tool", "function":
			x.afterTool, x.toolName, x.toolResult = true, m.Name, content
		}
	}
	rep := script(x)

	msg := openaicompat.ChatMessage{Role: "assistant"}
	finish := "stop"
	switch {
	case rep.tool == "":
		msg.Content = &rep.text
	case len(req.Functions) > 0:
		msg.Function = &openaicompat.ChatFunctionCall{Name: rep.tool, Arguments: rep.args}
		finish = "function_call"
	case len(req.Tools) > 0:
		msg.ToolCalls = []openaicompat.ChatToolCall{{
			ID:       fmt.Sprintf("call_mock_%d", b.seq.Add(1)),
			Type:     "function",
			Function: openaicompat.ChatFunctionCall{Name: rep.tool, Arguments: rep.args},
		}}
		finish = "tool_calls"
	default:
		text := fenced(rep)
		msg.Content = &text
	}

	writeJSON(w, openaicompat.ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-mock-%d", b.seq.Add(1)),
		Object:  "chat.completion",
		Model:   b.model,
		Choices: []openaicompat.ChatChoice{{Message: msg, FinishReason: finish}},
		Usage:   &openaicompat.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	})
}

func (b *backend) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req openaicompat.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	x := exchange{}
	for _, line := range strings.Split(req.Prompt, "\n") {
		switch {
		case strings.HasPrefix(line, "User: "):
			x = exchange{user: strings.TrimPrefix(line, "User: ")}
		case strings.HasPrefix(line, "Tool ("):
			name, result, ok := strings.Cut(strings.TrimPrefix(line, "Tool ("), "): ")
			if ok {
				x.afterTool, x.toolName, x.toolResult = true, name, result
			}
		}
	}
	rep := script(x)
	text := rep.text
	if rep.tool != "" {
		text = fenced(rep)
	}

	writeJSON(w, openaicompat.CompletionResponse{
		ID:      fmt.Sprintf("cmpl-mock-%d", b.seq.Add(1)),
		Object:  "text_completion",
		Model:   b.model,
		Choices: []openaicompat.CompletionChoice{{Text: text, FinishReason: "stop"}},
	})
}

func (b *backend) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, openaicompat.ChatModelsResponse{
		Object: "list",
		Data:   []openaicompat.ChatModel{{ID: b.model, Object: "model", OwnedBy: "mock"}},
	})
}

// fenced renders an invocation the way instruction-following models do when
// they have no native tool support.
func fenced(rep reply) string {
	return fmt.Sprintf("I will use a tool.\n```json\n{\"tool_call\": {\"name\": %q, \"parameters\": %s}}\n```", rep.tool, rep.args)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	var body openaicompat.ChatErrorResponse
	body.Error.Message = message
	body.Error.Type = "server_error"
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
