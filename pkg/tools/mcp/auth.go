package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenRequestTimeout bounds a single request to the token endpoint.
const tokenRequestTimeout = 10 * time.Second

// AuthProvider supplies authentication headers for MCP server connections.
type AuthProvider interface {
	// GetHeaders returns the HTTP headers to include in MCP requests.
	GetHeaders(ctx context.Context) (map[string]string, error)
}

// NewAuthProvider returns the AuthProvider selected by cfg, or nil when the
// server needs no authentication.
func NewAuthProvider(cfg AuthConfig) (AuthProvider, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case AuthStatic:
		if cfg.Key == "" {
			return nil, fmt.Errorf("static auth requires a key")
		}
		return NewStaticKeyAuth(cfg.Key), nil
	case AuthOAuthClientCredentials:
		if cfg.TokenURL == "" {
			return nil, fmt.Errorf("oauth_client_credentials auth requires a token URL")
		}
		return NewOAuthClientCredentials(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scopes), nil
	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.Type)
	}
}

// StaticKeyAuth sends a fixed bearer key with every request.
type StaticKeyAuth struct {
	headers map[string]string
}

// NewStaticKeyAuth creates a StaticKeyAuth for key.
func NewStaticKeyAuth(key string) *StaticKeyAuth {
	return &StaticKeyAuth{headers: map[string]string{"Authorization": "Bearer " + key}}
}

// GetHeaders returns the Authorization header.
func (a *StaticKeyAuth) GetHeaders(_ context.Context) (map[string]string, error) {
	return a.headers, nil
}

// OAuthClientCredentialsAuth authenticates with tokens from an OAuth 2.0
// client_credentials grant. Tokens are cached and fetched again shortly
// before they expire.
type OAuthClientCredentialsAuth struct {
	source oauth2.TokenSource
}

// NewOAuthClientCredentials creates an OAuthClientCredentialsAuth. The
// client credentials are sent as form parameters.
func NewOAuthClientCredentials(tokenURL, clientID, clientSecret string, scopes []string) *OAuthClientCredentialsAuth {
	return newOAuthClientCredentials(tokenURL, clientID, clientSecret, scopes, &http.Client{Timeout: tokenRequestTimeout})
}

func newOAuthClientCredentials(tokenURL, clientID, clientSecret string, scopes []string, hc *http.Client) *OAuthClientCredentialsAuth {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// The token source outlives any single MCP request, so it gets its own
	// context carrying only the HTTP client.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
	return &OAuthClientCredentialsAuth{source: cfg.TokenSource(ctx)}
}

// GetHeaders returns an Authorization header with a current access token.
func (a *OAuthClientCredentialsAuth) GetHeaders(_ context.Context) (map[string]string, error) {
	tok, err := a.source.Token()
	if err != nil {
		return nil, fmt.Errorf("acquiring OAuth token: %w", err)
	}
	return map[string]string{"Authorization": tok.Type() + " " + tok.AccessToken}, nil
}
