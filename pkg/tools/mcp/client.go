package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrNotConnected is returned by Client operations before Connect.
var ErrNotConnected = errors.New("MCP client not connected")

// Client holds the session with a single MCP server.
type Client struct {
	cfg     ServerConfig
	version string
	session *mcp.ClientSession
}

// NewClient creates a Client for cfg. version is reported to the server
// during the handshake. Call Connect before use.
func NewClient(cfg ServerConfig, version string) *Client {
	if version == "" {
		version = "dev"
	}
	return &Client{cfg: cfg, version: version}
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.cfg.Name }

// Connect performs the protocol handshake over the configured transport.
func (c *Client) Connect(ctx context.Context) error {
	transport, err := c.createTransport()
	if err != nil {
		return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
	}
	return c.ConnectWithTransport(ctx, transport)
}

// ConnectWithTransport performs the protocol handshake over transport.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	client := mcp.NewClient(
		&mcp.Implementation{Name: "funcall", Version: c.version},
		&mcp.ClientOptions{Capabilities: &mcp.ClientCapabilities{}},
	)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient, err := c.buildHTTPClient()
	if err != nil {
		return nil, err
	}

	switch c.cfg.Transport {
	case TransportSSE:
		return &mcp.SSEClientTransport{Endpoint: c.cfg.URL, HTTPClient: httpClient}, nil
	case TransportStreamableHTTP, "":
		return &mcp.StreamableClientTransport{Endpoint: c.cfg.URL, HTTPClient: httpClient}, nil
	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns nil when neither headers nor auth are configured,
// which lets the SDK use its default client.
func (c *Client) buildHTTPClient() (*http.Client, error) {
	auth, err := NewAuthProvider(c.cfg.Auth)
	if err != nil {
		return nil, err
	}
	if len(c.cfg.Headers) == 0 && auth == nil {
		return nil, nil
	}
	return &http.Client{
		Transport: &authAwareTransport{
			base:         http.DefaultTransport,
			headers:      c.cfg.Headers,
			authProvider: auth,
		},
	}, nil
}

// authAwareTransport adds static headers and auth headers to every request.
// Auth headers win over static ones.
type authAwareTransport struct {
	base         http.RoundTripper
	headers      map[string]string
	authProvider AuthProvider
}

func (t *authAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	if t.authProvider != nil {
		authHeaders, err := t.authProvider.GetHeaders(req.Context())
		if err != nil {
			return nil, fmt.Errorf("getting auth headers: %w", err)
		}
		for k, v := range authHeaders {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// ListTools returns every tool the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}
	var out []*mcp.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		out = append(out, tool)
	}
	return out, nil
}

// CallTool invokes name with the JSON object args and returns the text
// content of the result. A result flagged as an error is returned as a Go
// error carrying that text.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	if c.session == nil {
		return "", ErrNotConnected
	}

	var params map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return "", fmt.Errorf("invalid arguments JSON: %w", err)
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: params})
	if err != nil {
		return "", fmt.Errorf("MCP server %q: %w", c.cfg.Name, err)
	}

	text := resultText(result)
	if result.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

// Close ends the session.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

// resultText joins the text parts of a result with newlines.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
