package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type tokenEndpoint struct {
	srv   *httptest.Server
	calls atomic.Int32

	mu   sync.Mutex
	form url.Values
}

// newTokenEndpoint serves client_credentials grants, answering with
// status when it is not 200.
func newTokenEndpoint(t *testing.T, expiresIn, status int) *tokenEndpoint {
	t.Helper()
	te := &tokenEndpoint{}
	te.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := te.calls.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		te.mu.Lock()
		te.form = r.PostForm
		te.mu.Unlock()

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + string(rune('0'+n)),
			"token_type":   "bearer",
			"expires_in":   expiresIn,
		})
	}))
	t.Cleanup(te.srv.Close)
	return te
}

func (te *tokenEndpoint) lastForm() url.Values {
	te.mu.Lock()
	defer te.mu.Unlock()
	return te.form
}

func (te *tokenEndpoint) auth(scopes ...string) *OAuthClientCredentialsAuth {
	return newOAuthClientCredentials(te.srv.URL, "funcall", "s3cret", scopes, te.srv.Client())
}

func TestOAuthClientCredentials_FetchesAndCachesToken(t *testing.T) {
	te := newTokenEndpoint(t, 3600, http.StatusOK)
	auth := te.auth("read", "write")

	for range 3 {
		h, err := auth.GetHeaders(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if h["Authorization"] != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want Bearer tok-1", h["Authorization"])
		}
	}
	if n := te.calls.Load(); n != 1 {
		t.Errorf("token requests = %d, want 1", n)
	}

	form := te.lastForm()
	want := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     "funcall",
		"client_secret": "s3cret",
		"scope":         "read write",
	}
	for k, v := range want {
		if got := form.Get(k); got != v {
			t.Errorf("form %s = %q, want %q", k, got, v)
		}
	}
}

func TestOAuthClientCredentials_RefetchesExpiringToken(t *testing.T) {
	// Tokens this short-lived are already inside the refresh margin.
	te := newTokenEndpoint(t, 5, http.StatusOK)
	auth := te.auth()

	first, err := auth.GetHeaders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := auth.GetHeaders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first["Authorization"] == second["Authorization"] {
		t.Errorf("token was reused: %q", first["Authorization"])
	}
	if n := te.calls.Load(); n != 2 {
		t.Errorf("token requests = %d, want 2", n)
	}
}

func TestOAuthClientCredentials_NoScopesOmitsParam(t *testing.T) {
	te := newTokenEndpoint(t, 3600, http.StatusOK)
	if _, err := te.auth().GetHeaders(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := te.lastForm()["scope"]; ok {
		t.Errorf("scope sent without scopes: %v", te.lastForm())
	}
}

func TestOAuthClientCredentials_EndpointRejects(t *testing.T) {
	te := newTokenEndpoint(t, 3600, http.StatusUnauthorized)
	_, err := te.auth().GetHeaders(context.Background())
	if err == nil || !strings.Contains(err.Error(), "acquiring OAuth token") {
		t.Fatalf("err = %v, want token acquisition error", err)
	}
}

func TestOAuthClientCredentials_ConcurrentCallersShareToken(t *testing.T) {
	te := newTokenEndpoint(t, 3600, http.StatusOK)
	auth := te.auth()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := auth.GetHeaders(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if n := te.calls.Load(); n != 1 {
		t.Errorf("token requests = %d, want 1", n)
	}
}

func TestNewAuthProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuthConfig
		wantNil bool
		wantErr bool
	}{
		{name: "none", cfg: AuthConfig{}, wantNil: true},
		{name: "static", cfg: AuthConfig{Type: AuthStatic, Key: "k"}},
		{name: "static without key", cfg: AuthConfig{Type: AuthStatic}, wantErr: true},
		{name: "oauth", cfg: AuthConfig{Type: AuthOAuthClientCredentials, TokenURL: "http://idp/token"}},
		{name: "oauth without token url", cfg: AuthConfig{Type: AuthOAuthClientCredentials}, wantErr: true},
		{name: "unknown", cfg: AuthConfig{Type: "kerberos"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAuthProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (p == nil) != tt.wantNil {
				t.Errorf("provider = %v, wantNil %v", p, tt.wantNil)
			}
		})
	}
}

func TestAuthAwareTransport_AddsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := NewClient(ServerConfig{
		Name:    "s",
		URL:     srv.URL,
		Headers: map[string]string{"X-Tenant": "acme", "Authorization": "overridden"},
		Auth:    AuthConfig{Type: AuthStatic, Key: "secret"},
	}, "")
	hc, err := c.buildHTTPClient()
	if err != nil || hc == nil {
		t.Fatalf("buildHTTPClient = %v, %v", hc, err)
	}
	resp, err := hc.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got.Get("X-Tenant") != "acme" || got.Get("Authorization") != "Bearer secret" {
		t.Errorf("headers = %v", got)
	}
}

func TestBuildHTTPClient_NoneConfigured(t *testing.T) {
	hc, err := NewClient(ServerConfig{Name: "s"}, "").buildHTTPClient()
	if err != nil || hc != nil {
		t.Errorf("got %v, %v; want nil client", hc, err)
	}
}
