package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/funcall/pkg/config"
	"github.com/rhuss/funcall/pkg/provider"
	"github.com/rhuss/funcall/pkg/tools/builtins/backend"
	"github.com/rhuss/funcall/pkg/tools/builtins/calculator"
	"github.com/rhuss/funcall/pkg/tools/builtins/clock"
	"github.com/rhuss/funcall/pkg/tools/builtins/cluster"
	"github.com/rhuss/funcall/pkg/tools/builtins/filesystem"
	"github.com/rhuss/funcall/pkg/tools/builtins/httpfetch"
	"github.com/rhuss/funcall/pkg/tools/mcp"
	"github.com/rhuss/funcall/pkg/tools/registry"
)

// buildRegistry registers the capability providers enabled by cfg.
func buildRegistry(ctx context.Context, cfg *config.Config, gw provider.Gateway) (*registry.Registry, error) {
	reg := registry.New(
		registry.WithTimeout(cfg.Tools.Timeout),
		registry.WithArgumentValidation(cfg.Tools.ValidateArguments),
	)
	if !cfg.Tools.Enabled {
		slog.Info("capabilities disabled")
		return reg, nil
	}

	clk, err := clock.New(cfg.Tools.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	reg.RegisterProvider(clk)
	reg.RegisterProvider(calculator.Provider{})
	reg.RegisterProvider(backend.New(gw))

	if cfg.Tools.HTTP.Enabled {
		reg.RegisterProvider(httpfetch.New(httpfetch.Config{
			Timeout:      cfg.Tools.HTTP.Timeout,
			MaxBodyBytes: cfg.Tools.HTTP.MaxBodyBytes,
		}))
	}

	if root := cfg.Tools.Filesystem.Root; root != "" {
		fsp, err := filesystem.New(root)
		if err != nil {
			return nil, err
		}
		reg.RegisterProvider(fsp)
	}

	if cfg.Tools.Cluster.Enabled {
		c, err := cluster.NewClient(cfg.Tools.Cluster.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("cluster capabilities: %w", err)
		}
		reg.RegisterProvider(cluster.New(c, cfg.Tools.Cluster.Namespace))
	}

	if len(cfg.MCP.Servers) > 0 {
		reg.RegisterProvider(mcp.Connect(ctx, mcpServers(cfg.MCP.Servers), version))
	}

	return reg, nil
}

func mcpServers(servers []config.MCPServerConfig) []mcp.ServerConfig {
	out := make([]mcp.ServerConfig, 0, len(servers))
	for _, s := range servers {
		out = append(out, mcp.ServerConfig{
			Name:      s.Name,
			Transport: s.Transport,
			URL:       s.URL,
			Headers:   s.Headers,
			Auth: mcp.AuthConfig{
				Type:         s.Auth.Type,
				Key:          s.Auth.Key,
				TokenURL:     s.Auth.TokenURL,
				ClientID:     s.Auth.ClientID,
				ClientSecret: s.Auth.ClientSecret,
				Scopes:       s.Auth.Scopes,
			},
		})
	}
	return out
}
