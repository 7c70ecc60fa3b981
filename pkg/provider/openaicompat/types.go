package openaicompat

import "encoding/json"

// Chat Completions request/response types. These mirror the OpenAI Chat
// Completions API format, including the legacy functions/function_call
// fields and the plain text /v1/completions endpoint.

// ChatCompletionRequest is the request body for /v1/chat/completions.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`

	// Tools and ToolChoice are only set when a catalog is offered.
	Tools      []ChatTool `json:"tools,omitempty"`
	ToolChoice any        `json:"tool_choice,omitempty"`

	// Functions and FunctionCall carry the catalog in the legacy dialect.
	Functions    []ChatFunctionDef `json:"functions,omitempty"`
	FunctionCall any               `json:"function_call,omitempty"`
}

// ChatMessage represents a message in the Chat Completions format.
type ChatMessage struct {
	Role       string            `json:"role"`
	Content    *string           `json:"content"`
	ToolCalls  []ChatToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Name       string            `json:"name,omitempty"`
	Function   *ChatFunctionCall `json:"function_call,omitempty"`
}

// ChatToolCall represents a tool call in an assistant message.
type ChatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ChatFunctionCall `json:"function"`
}

// ChatFunctionCall holds function name and arguments.
type ChatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatTool represents a tool definition.
type ChatTool struct {
	Type     string          `json:"type"`
	Function ChatFunctionDef `json:"function"`
}

// ChatFunctionDef is a function definition for a tool or a legacy function.
type ChatFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolChoiceFunction forces a specific tool in the chat dialect:
// {"type":"function","function":{"name":...}}.
type ToolChoiceFunction struct {
	Type     string       `json:"type"`
	Function FunctionName `json:"function"`
}

// FunctionName is the {"name":...} object used by tool_choice and the
// legacy function_call selector.
type FunctionName struct {
	Name string `json:"name"`
}

// ChatCompletionResponse is the non-streaming response from /v1/chat/completions.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`
}

// ChatChoice represents one completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage holds token usage from the Chat Completions API.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is the request body for /v1/completions.
type CompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// CompletionResponse is the response from /v1/completions.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *ChatUsage         `json:"usage,omitempty"`
}

// CompletionChoice represents one text completion choice.
type CompletionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

// ChatErrorResponse is the error format returned by Chat Completions backends.
type ChatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// ChatModelsResponse is the response from /v1/models.
type ChatModelsResponse struct {
	Object string      `json:"object"`
	Data   []ChatModel `json:"data"`
}

// ChatModel represents a model in the /v1/models response.
type ChatModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}
