package api

import (
	"encoding/json"
	"strings"
)

// MaxMessageLength bounds the size of a single user message.
const MaxMessageLength = 32 * 1024

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`

	// ClearHistory resets the conversation to its system turn before the
	// message is processed.
	ClearHistory bool `json:"clear_history,omitempty"`

	// ConversationID selects an existing conversation. A new id is assigned
	// when empty.
	ConversationID string `json:"conversation_id,omitempty"`
}

// Validate checks the request and returns an invalid_request error
// describing the first problem found.
func (r *ChatRequest) Validate() *APIError {
	if strings.TrimSpace(r.Message) == "" {
		return NewInvalidRequestError("message", "message must not be empty")
	}
	if len(r.Message) > MaxMessageLength {
		return NewInvalidRequestError("message", "message exceeds the maximum length")
	}
	return nil
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Response       string   `json:"response"`
	ConversationID string   `json:"conversation_id"`
	ToolsUsed      []string `json:"tools_used"`
	State          string   `json:"state"`
	Iterations     int      `json:"iterations"`
}

// ToolInfo describes one registered capability in GET /api/tools.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Type        string          `json:"type"`
}

// HistoryMessage is one transcript turn rendered for clients.
type HistoryMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []ToolCallInfo `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// ToolCallInfo is an invocation request inside a rendered assistant turn.
type ToolCallInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ConversationResponse is the body of GET /api/conversation.
type ConversationResponse struct {
	ConversationID      string           `json:"conversation_id"`
	ConversationHistory []HistoryMessage `json:"conversation_history"`
	ToolsCount          int              `json:"tools_count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Version          string `json:"version"`
	BackendConnected bool   `json:"backend_connected"`
	ToolsCount       int    `json:"tools_count"`
}

// InfoResponse is the body of GET /api/info.
type InfoResponse struct {
	Service     string   `json:"service"`
	Version     string   `json:"version"`
	Environment string   `json:"environment"`
	BaseURL     string   `json:"base_url"`
	Model       string   `json:"model"`
	Dialects    []string `json:"dialects"`
}

// ModelEntry is one model in GET /api/models.
type ModelEntry struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Models []ModelEntry `json:"models"`
}

// StatusResponse is a minimal acknowledgement body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
