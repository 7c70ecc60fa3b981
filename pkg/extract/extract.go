package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rhuss/funcall/pkg/api"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/tools"
)

// Encoding identifies how a response expressed invocation intent.
type Encoding int

const (
	// None means the response is a final answer.
	None Encoding = iota

	// Structured means the endpoint returned tool_calls.
	Structured

	// Embedded means the assistant text carried a {"tool_call":...} object.
	Embedded
)

// String returns the lowercase name of the encoding.
func (e Encoding) String() string {
	switch e {
	case Structured:
		return "structured"
	case Embedded:
		return "embedded"
	default:
		return "none"
	}
}

// Result is the outcome of extraction. Calls is empty exactly when
// Encoding is None.
type Result struct {
	Encoding Encoding
	Calls    []tools.ToolCall
}

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

// Extract determines which invocations, if any, resp requests.
//
// Structured tool calls are authoritative and returned unmodified. Without
// them the assistant text is inspected for the embedded encoding: first the
// body of the first ```json fenced block, then the whole trimmed text. The
// text must decode to {"tool_call":{"name":...,"parameters":{...}}}.
// Anything else is a final answer. Extract never fails.
func Extract(resp *provider.Response) Result {
	if resp == nil {
		return Result{Encoding: None}
	}
	if len(resp.ToolCalls) > 0 {
		return Result{Encoding: Structured, Calls: resp.ToolCalls}
	}
	if call, ok := embedded(resp.Content); ok {
		return Result{Encoding: Embedded, Calls: []tools.ToolCall{call}}
	}
	return Result{Encoding: None}
}

// embedded looks for the embedded encoding in content.
func embedded(content string) (tools.ToolCall, bool) {
	if body, ok := fencedBlock(content); ok {
		if call, ok := parseToolCall(body); ok {
			return call, true
		}
	}
	return parseToolCall(strings.TrimSpace(content))
}

// fencedBlock returns the body of the first ```json block. Only the first
// block is considered.
func fencedBlock(content string) (string, bool) {
	start := strings.Index(content, fenceOpen)
	if start < 0 {
		return "", false
	}
	rest := content[start+len(fenceOpen):]
	end := strings.Index(rest, fenceClose)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

type envelope struct {
	ToolCall *struct {
		Name       string          `json:"name"`
		Parameters json.RawMessage `json:"parameters"`
	} `json:"tool_call"`
}

// parseToolCall decodes text as the embedded encoding. A missing
// parameters field means {}; any non-object parameters or an empty name
// is not an invocation.
func parseToolCall(text string) (tools.ToolCall, bool) {
	if !strings.HasPrefix(text, "{") {
		return tools.ToolCall{}, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil || env.ToolCall == nil {
		return tools.ToolCall{}, false
	}
	name := strings.TrimSpace(env.ToolCall.Name)
	if name == "" {
		return tools.ToolCall{}, false
	}

	args := []byte("{}")
	params := bytes.TrimSpace(env.ToolCall.Parameters)
	if len(params) > 0 && !bytes.Equal(params, []byte("null")) {
		if params[0] != '{' {
			return tools.ToolCall{}, false
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, params); err != nil {
			return tools.ToolCall{}, false
		}
		args = compact.Bytes()
	}

	return tools.ToolCall{
		ID:        api.NewCallID(),
		Name:      name,
		Arguments: string(args),
	}, true
}
