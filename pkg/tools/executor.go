package tools

import (
	"context"
	"encoding/json"
	"time"
)

// ToolKind classifies where a capability is hosted.
type ToolKind int

const (
	// ToolKindFunction is a capability implemented in-process.
	ToolKindFunction ToolKind = iota

	// ToolKindMCP is a capability served by a remote MCP server and
	// proxied through an MCP client session.
	ToolKindMCP
)

// String returns the wire name used when listing capabilities.
func (k ToolKind) String() string {
	switch k {
	case ToolKindMCP:
		return "mcp_tool"
	default:
		return "function"
	}
}

// Invoker dispatches invocation requests to capabilities. The orchestration
// loop depends on this contract rather than on a concrete registry so that
// tests can substitute their own dispatch.
//
// Implementations must be safe for concurrent use.
type Invoker interface {
	// Catalog returns the capability definitions in a stable order.
	Catalog() []Definition

	// Invoke runs one invocation. Failures are reported in the Outcome,
	// never as a Go error.
	Invoke(ctx context.Context, call ToolCall) Outcome
}

// ToolCall represents a model's request to invoke a capability.
type ToolCall struct {
	// ID is the call identifier assigned by the inference endpoint, or
	// synthesized locally when the endpoint did not supply one.
	ID string `json:"id"`

	// Name is the capability name.
	Name string `json:"name"`

	// Arguments is the raw argument payload, expected to be JSON.
	Arguments string `json:"arguments"`
}

// Definition is the protocol-ready description of a capability, as sent to
// the inference endpoint in the tool catalog.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Kind        ToolKind        `json:"-"`
}

// Outcome is the result of running one invocation. It lives only until it
// has been folded into the transcript.
type Outcome struct {
	// CallID matches the originating ToolCall.ID.
	CallID string

	// Name is the capability that was (or would have been) invoked.
	Name string

	// Success reports whether the handler ran and returned without error.
	Success bool

	// Result is the string-serialized handler result on success.
	Result string

	// Error describes the failure when Success is false.
	Error string

	// Duration is the wall time spent on the invocation, including lookup
	// and argument decoding.
	Duration time.Duration
}

// Content renders the outcome as the text folded back into the
// conversation for the model.
func (o Outcome) Content() string {
	if o.Success {
		return o.Result
	}
	return "error: " + o.Error
}
