package mcp

// Transport names.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// Auth types.
const (
	AuthStatic                 = "static"
	AuthOAuthClientCredentials = "oauth_client_credentials"
)

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name identifies the server in logs and metrics.
	Name string

	// Transport is "sse" or "streamable-http". Empty means streamable-http.
	Transport string

	// URL is the MCP server endpoint.
	URL string

	// Headers are sent with every request.
	Headers map[string]string

	Auth AuthConfig
}

// AuthConfig selects how requests to the server are authenticated.
type AuthConfig struct {
	// Type is "", "static" or "oauth_client_credentials".
	Type string

	// Key is sent as a bearer token when Type is "static".
	Key string

	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}
