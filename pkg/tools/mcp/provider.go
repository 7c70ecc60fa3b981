package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/funcall/pkg/debug"
	"github.com/rhuss/funcall/pkg/tools"
	"github.com/rhuss/funcall/pkg/tools/registry"
)

// Provider exposes the tools of connected MCP servers as capabilities.
type Provider struct {
	clients      []*Client
	capabilities []registry.Descriptor
	calls        *prometheus.CounterVec
}

var _ registry.Provider = (*Provider)(nil)

// Connect connects to every server and discovers its tools. A server that
// cannot be reached is logged and skipped so that the remaining
// capabilities stay available.
func Connect(ctx context.Context, servers []ServerConfig, version string) *Provider {
	clients := make([]*Client, 0, len(servers))
	for _, cfg := range servers {
		c := NewClient(cfg, version)
		if err := c.Connect(ctx); err != nil {
			slog.Error("MCP server unavailable", "server", cfg.Name, "url", cfg.URL, "error", err)
			continue
		}
		clients = append(clients, c)
	}
	return NewProvider(ctx, clients...)
}

// NewProvider discovers the tools of already connected clients. When two
// servers advertise the same tool name the first one wins.
func NewProvider(ctx context.Context, clients ...*Client) *Provider {
	p := &Provider{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funcall_mcp_tool_calls_total",
				Help: "Tool calls proxied to MCP servers",
			},
			[]string{"server", "status"},
		),
	}

	seen := make(map[string]string)
	for _, c := range clients {
		discovered, err := c.ListTools(ctx)
		if err != nil {
			slog.Error("failed to discover tools from MCP server", "server", c.Name(), "error", err)
			_ = c.Close()
			continue
		}
		p.clients = append(p.clients, c)

		for _, t := range discovered {
			if owner, dup := seen[t.Name]; dup {
				slog.Warn("duplicate MCP tool name, using first server",
					"tool", t.Name, "server", c.Name(), "first", owner)
				continue
			}
			d, err := p.descriptor(c, t)
			if err != nil {
				slog.Warn("skipping MCP tool", "tool", t.Name, "server", c.Name(), "error", err)
				continue
			}
			seen[t.Name] = c.Name()
			p.capabilities = append(p.capabilities, d)
		}

		slog.Info("discovered MCP tools", "server", c.Name(), "count", len(discovered))
	}
	return p
}

func (p *Provider) descriptor(c *Client, t *mcp.Tool) (registry.Descriptor, error) {
	var params json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return registry.Descriptor{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		params = data
	}

	name, server := t.Name, c.Name()
	return registry.Descriptor{
		Name:        name,
		Description: t.Description,
		Parameters:  params,
		Kind:        tools.ToolKindMCP,
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			debug.Log("mcp", "calling MCP tool", "tool", name, "server", server)
			out, err := c.CallTool(ctx, name, args)
			if err != nil {
				p.calls.WithLabelValues(server, "error").Inc()
				return nil, err
			}
			p.calls.WithLabelValues(server, "success").Inc()
			return out, nil
		},
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "mcp" }

// Capabilities returns one descriptor per discovered tool.
func (p *Provider) Capabilities() []registry.Descriptor { return p.capabilities }

// Collectors returns the call counter.
func (p *Provider) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.calls}
}

// Close ends every session.
func (p *Provider) Close() error {
	var errs []error
	for _, c := range p.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}
