package openaicompat

import (
	"encoding/json"
	"strings"

	"github.com/rhuss/funcall/pkg/conversation"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/tools"
)

// emptySchema is sent for capabilities that declare no parameters.
var emptySchema = json.RawMessage(`{"type":"object","properties":{}}`)

// Params holds the model selection and sampling parameters applied to
// every dialect.
type Params struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func (p Params) maxTokens() *int {
	if p.MaxTokens <= 0 {
		return nil
	}
	v := p.MaxTokens
	return &v
}

func (p Params) temperature() *float64 {
	v := p.Temperature
	return &v
}

// TranslateToChat builds a chat-completions request with the tools /
// tool_choice fields. Both are omitted when the catalog is empty.
func TranslateToChat(p Params, req *provider.Request) ChatCompletionRequest {
	r := &chatRenderer{}
	for _, t := range req.Turns {
		conversation.Visit(t, r)
	}

	cr := ChatCompletionRequest{
		Model:       p.Model,
		Messages:    r.msgs,
		MaxTokens:   p.maxTokens(),
		Temperature: p.temperature(),
	}

	if len(req.Catalog) == 0 {
		return cr
	}
	for _, def := range req.Catalog {
		cr.Tools = append(cr.Tools, ChatTool{Type: "function", Function: functionDef(def)})
	}
	if req.ForcedTool != "" {
		cr.ToolChoice = ToolChoiceFunction{Type: "function", Function: FunctionName{Name: req.ForcedTool}}
	} else {
		cr.ToolChoice = "auto"
	}
	return cr
}

// TranslateToFunctions builds a chat-completions request in the legacy
// dialect: the catalog travels as functions/function_call, invocation
// requests as assistant function_call messages and results as
// role "function" messages.
func TranslateToFunctions(p Params, req *provider.Request) ChatCompletionRequest {
	r := &legacyRenderer{}
	for _, t := range req.Turns {
		conversation.Visit(t, r)
	}

	cr := ChatCompletionRequest{
		Model:       p.Model,
		Messages:    r.msgs,
		MaxTokens:   p.maxTokens(),
		Temperature: p.temperature(),
	}

	if len(req.Catalog) == 0 {
		return cr
	}
	for _, def := range req.Catalog {
		cr.Functions = append(cr.Functions, functionDef(def))
	}
	if req.ForcedTool != "" {
		cr.FunctionCall = FunctionName{Name: req.ForcedTool}
	} else {
		cr.FunctionCall = "auto"
	}
	return cr
}

// TranslateToCompletion builds a /v1/completions request over the
// flattened transcript. The catalog is not sent.
func TranslateToCompletion(p Params, req *provider.Request) CompletionRequest {
	return CompletionRequest{
		Model:       p.Model,
		Prompt:      FlattenPrompt(req.Turns),
		MaxTokens:   p.maxTokens(),
		Temperature: p.temperature(),
	}
}

// FlattenPrompt renders turns as a role-labelled plain-text prompt ending
// with an open "Assistant:" line:
//
//	System: ...
//	User: ...
//	Assistant: ...
//	Tool (name): ...
//	Assistant:
//
// Invocation requests of assistant turns are rendered in the embedded
// {"tool_call":{...}} encoding so that the model sees a consistent format.
func FlattenPrompt(turns []conversation.Turn) string {
	r := &promptRenderer{}
	for _, t := range turns {
		conversation.Visit(t, r)
	}
	r.lines = append(r.lines, "Assistant:")
	return strings.Join(r.lines, "\n")
}

func functionDef(def tools.Definition) ChatFunctionDef {
	params := def.Parameters
	if len(params) == 0 {
		params = emptySchema
	}
	return ChatFunctionDef{
		Name:        def.Name,
		Description: def.Description,
		Parameters:  params,
	}
}

func strPtr(s string) *string {
	return &s
}

type chatRenderer struct {
	msgs []ChatMessage
}

func (r *chatRenderer) System(t conversation.SystemTurn) {
	r.msgs = append(r.msgs, ChatMessage{Role: "system", Content: strPtr(t.Content)})
}

func (r *chatRenderer) User(t conversation.UserTurn) {
	r.msgs = append(r.msgs, ChatMessage{Role: "user", Content: strPtr(t.Content)})
}

func (r *chatRenderer) Assistant(t conversation.AssistantTurn) {
	msg := ChatMessage{Role: "assistant"}
	if t.Content != "" || !t.HasCalls() {
		msg.Content = strPtr(t.Content)
	}
	for _, c := range t.Calls {
		msg.ToolCalls = append(msg.ToolCalls, ChatToolCall{
			ID:   c.ID,
			Type: "function",
			Function: ChatFunctionCall{
				Name:      c.Name,
				Arguments: c.Arguments,
			},
		})
	}
	r.msgs = append(r.msgs, msg)
}

func (r *chatRenderer) ToolResult(t conversation.ToolResultTurn) {
	r.msgs = append(r.msgs, ChatMessage{
		Role:       "tool",
		ToolCallID: t.CallID,
		Name:       t.Name,
		Content:    strPtr(t.Content),
	})
}

// legacyRenderer emits one assistant message per invocation because the
// legacy dialect carries a single function_call per message.
type legacyRenderer struct {
	msgs []ChatMessage
}

func (r *legacyRenderer) System(t conversation.SystemTurn) {
	r.msgs = append(r.msgs, ChatMessage{Role: "system", Content: strPtr(t.Content)})
}

func (r *legacyRenderer) User(t conversation.UserTurn) {
	r.msgs = append(r.msgs, ChatMessage{Role: "user", Content: strPtr(t.Content)})
}

func (r *legacyRenderer) Assistant(t conversation.AssistantTurn) {
	if !t.HasCalls() {
		r.msgs = append(r.msgs, ChatMessage{Role: "assistant", Content: strPtr(t.Content)})
		return
	}
	for i, c := range t.Calls {
		msg := ChatMessage{
			Role:     "assistant",
			Function: &ChatFunctionCall{Name: c.Name, Arguments: c.Arguments},
		}
		if i == 0 && t.Content != "" {
			msg.Content = strPtr(t.Content)
		}
		r.msgs = append(r.msgs, msg)
	}
}

func (r *legacyRenderer) ToolResult(t conversation.ToolResultTurn) {
	r.msgs = append(r.msgs, ChatMessage{Role: "function", Name: t.Name, Content: strPtr(t.Content)})
}

type promptRenderer struct {
	lines []string
}

func (r *promptRenderer) System(t conversation.SystemTurn) {
	r.lines = append(r.lines, "System: "+t.Content)
}

func (r *promptRenderer) User(t conversation.UserTurn) {
	r.lines = append(r.lines, "User: "+t.Content)
}

func (r *promptRenderer) Assistant(t conversation.AssistantTurn) {
	if t.Content != "" || !t.HasCalls() {
		r.lines = append(r.lines, "Assistant: "+t.Content)
	}
	for _, c := range t.Calls {
		r.lines = append(r.lines, "Assistant: "+embeddedCall(c))
	}
}

func (r *promptRenderer) ToolResult(t conversation.ToolResultTurn) {
	r.lines = append(r.lines, "Tool ("+t.Name+"): "+t.Content)
}

func embeddedCall(c tools.ToolCall) string {
	params := json.RawMessage(c.Arguments)
	if strings.TrimSpace(c.Arguments) == "" || !json.Valid(params) {
		params = json.RawMessage(`{}`)
	}
	type call struct {
		Name       string          `json:"name"`
		Parameters json.RawMessage `json:"parameters"`
	}
	data, err := json.Marshal(struct {
		ToolCall call `json:"tool_call"`
	}{call{Name: c.Name, Parameters: params}})
	if err != nil {
		return c.Name
	}
	return string(data)
}
