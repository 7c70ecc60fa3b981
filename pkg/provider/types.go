package provider

import (
	"github.com/rhuss/funcall/pkg/conversation"
	"github.com/rhuss/funcall/pkg/tools"
)

// Dialect identifies the wire protocol that produced a response.
type Dialect string

const (
	// DialectChat is the chat-completions protocol with tools/tool_choice.
	DialectChat Dialect = "chat"

	// DialectFunctions is the legacy chat-completions protocol with
	// functions/function_call.
	DialectFunctions Dialect = "functions"

	// DialectCompletion is the plain text completions protocol over a
	// flattened prompt. It never yields structured invocations.
	DialectCompletion Dialect = "completion"
)

// Request is the gateway-facing request: the full transcript, replayed
// verbatim, and the capability catalog offered to the model.
type Request struct {
	Turns []conversation.Turn

	// Catalog is omitted from the wire request when empty.
	Catalog []tools.Definition

	// ForcedTool, when set, names the capability the model must call.
	ForcedTool string

	// MaxTokens overrides the gateway's completion limit when positive.
	MaxTokens int
}

// Response is the normalized answer of one inference round-trip.
type Response struct {
	// Content is the assistant text. It may be empty when the model only
	// requested invocations.
	Content string

	// ToolCalls holds structured invocation requests. Every entry has a
	// non-empty ID; missing ids are synthesized during normalization.
	ToolCalls []tools.ToolCall

	FinishReason string
	Model        string
	Usage        Usage

	// Dialect records which fallback step produced the response.
	Dialect Dialect
}

// Usage holds token counts reported by the endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelInfo holds information about a model served by the endpoint.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
