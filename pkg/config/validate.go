package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Every problem is reported, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	// backend.base_url and backend.model are required.
	if c.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL))
	}
	if c.Backend.Model == "" {
		errs = append(errs, fmt.Errorf("backend.model is required"))
	}
	if c.Backend.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("backend.max_tokens must be >= 0, got %d", c.Backend.MaxTokens))
	}
	if c.Backend.Temperature < 0 || c.Backend.Temperature > 2 {
		errs = append(errs, fmt.Errorf("backend.temperature must be between 0 and 2, got %g", c.Backend.Temperature))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("backend.timeout must be > 0, got %s", c.Backend.Timeout))
	}

	// server.port must be a valid TCP port.
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be > 0, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("agent.timeout must be > 0, got %s", c.Agent.Timeout))
	}
	if c.Agent.MaxParallelInvocations < 0 {
		errs = append(errs, fmt.Errorf("agent.max_parallel_invocations must be >= 0, got %d", c.Agent.MaxParallelInvocations))
	}
	for i, h := range c.Agent.Hints {
		if h.Tool == "" {
			errs = append(errs, fmt.Errorf("agent.hints[%d].tool is required", i))
		}
		if len(h.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("agent.hints[%d].keywords must not be empty", i))
		}
	}

	if c.Tools.Timeout < 0 {
		errs = append(errs, fmt.Errorf("tools.timeout must be >= 0, got %s", c.Tools.Timeout))
	}

	if c.Session.MaxConversations < 0 {
		errs = append(errs, fmt.Errorf("session.max_conversations must be >= 0, got %d", c.Session.MaxConversations))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	if f := c.Logging.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", f))
	}

	names := make(map[string]bool)
	for i, s := range c.MCP.Servers {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		} else if names[s.Name] {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name %q is duplicated", i, s.Name))
		}
		names[s.Name] = true

		if s.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch s.Transport {
		case "sse", "streamable-http", "":
			// valid
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, s.Transport))
		}
		switch s.Auth.Type {
		case "", "static":
			// valid
		case "oauth_client_credentials":
			if s.Auth.TokenURL == "" {
				errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.token_url is required for oauth_client_credentials", i))
			}
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.type must be \"static\" or \"oauth_client_credentials\", got %q", i, s.Auth.Type))
		}
	}

	return errors.Join(errs...)
}
