package openaicompat

import (
	"errors"
	"strings"

	"github.com/rhuss/funcall/pkg/api"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/tools"
)

// ErrNoChoices is returned when a 2xx response carries no choices.
var ErrNoChoices = errors.New("backend response contains no choices")

// NormalizeChat converts a chat-completions response of either dialect
// into a provider.Response. Only choices[0] is used. Structured tool calls
// without an id, or repeating an id already used in the same message, get a
// synthesized one; a legacy function_call becomes a single tool call.
func NormalizeChat(resp *ChatCompletionResponse, dialect provider.Dialect) (*provider.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	choice := resp.Choices[0]

	pr := &provider.Response{
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		Usage:        mapUsage(resp.Usage),
		Dialect:      dialect,
	}
	if choice.Message.Content != nil {
		pr.Content = *choice.Message.Content
	}

	seen := make(map[string]bool, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if seen[id] {
			id = ""
		}
		call := normalizeCall(id, tc.Function)
		seen[call.ID] = true
		pr.ToolCalls = append(pr.ToolCalls, call)
	}
	if len(pr.ToolCalls) == 0 && choice.Message.Function != nil && choice.Message.Function.Name != "" {
		pr.ToolCalls = append(pr.ToolCalls, normalizeCall("", *choice.Message.Function))
	}

	return pr, nil
}

// NormalizeCompletion converts a /v1/completions response into a
// provider.Response carrying text only.
func NormalizeCompletion(resp *CompletionResponse) (*provider.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	choice := resp.Choices[0]
	return &provider.Response{
		Content:      strings.TrimSpace(choice.Text),
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		Usage:        mapUsage(resp.Usage),
		Dialect:      provider.DialectCompletion,
	}, nil
}

func normalizeCall(id string, fn ChatFunctionCall) tools.ToolCall {
	if id == "" {
		id = api.NewCallID()
	}
	return tools.ToolCall{ID: id, Name: fn.Name, Arguments: fn.Arguments}
}

func mapUsage(u *ChatUsage) provider.Usage {
	if u == nil {
		return provider.Usage{}
	}
	return provider.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
