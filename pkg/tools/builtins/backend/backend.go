// Package backend exposes the inference endpoint itself as capabilities:
// vllm_get_models lists served models and vllm_chat sends a single
// stateless message through the gateway.
package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/funcall/pkg/conversation"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/tools/registry"
)

// DefaultChatMaxTokens is used when vllm_chat is called without max_tokens.
const DefaultChatMaxTokens = 100

var (
	modelsParameters = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)
	chatParameters   = json.RawMessage(`{"type":"object","properties":{"message":{"type":"string","description":"Message to send"},"max_tokens":{"type":"integer","description":"Maximum tokens to generate (default 100)"}},"required":["message"]}`)
)

// Provider serves the backend capabilities.
type Provider struct {
	gateway provider.Gateway
}

var _ registry.Provider = (*Provider)(nil)

// New creates a Provider backed by g.
func New(g provider.Gateway) *Provider {
	return &Provider{gateway: g}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "backend" }

// Capabilities returns the vllm_get_models and vllm_chat descriptors.
func (p *Provider) Capabilities() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "vllm_get_models",
			Description: "Lists the models available on the inference backend.",
			Parameters:  modelsParameters,
			Handler:     p.models,
		},
		{
			Name:        "vllm_chat",
			Description: "Sends a single message to the inference backend and returns its answer.",
			Parameters:  chatParameters,
			Handler:     registry.Typed(p.chat),
		},
	}
}

// Collectors returns nil.
func (p *Provider) Collectors() []prometheus.Collector { return nil }

// Close is a no-op. The gateway is owned by the caller.
func (p *Provider) Close() error { return nil }

type modelList struct {
	Object string               `json:"object"`
	Data   []provider.ModelInfo `json:"data"`
}

func (p *Provider) models(ctx context.Context, _ json.RawMessage) (any, error) {
	models, err := p.gateway.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	return modelList{Object: "list", Data: models}, nil
}

type chatArgs struct {
	Message   string `json:"message"`
	MaxTokens int    `json:"max_tokens"`
}

func (a *chatArgs) Validate() error {
	if err := registry.Required("message", a.Message); err != nil {
		return err
	}
	if a.MaxTokens < 0 {
		return &registry.ArgumentError{Field: "max_tokens", Reason: "must not be negative"}
	}
	return nil
}

func (p *Provider) chat(ctx context.Context, args chatArgs) (any, error) {
	maxTokens := args.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultChatMaxTokens
	}
	resp, err := p.gateway.Complete(ctx, &provider.Request{
		Turns:     []conversation.Turn{conversation.UserTurn{Content: args.Message}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("backend chat: %w", err)
	}
	return resp.Content, nil
}
