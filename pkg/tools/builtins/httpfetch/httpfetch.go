// Package httpfetch provides the http_get and http_post capabilities.
// JSON response bodies are pretty-printed; other bodies are returned as
// text. A non-2xx status is reported as a handler error.
package httpfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/funcall/pkg/debug"
	"github.com/rhuss/funcall/pkg/tools/registry"
)

// Default limits.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 64 << 10
)

const truncatedMarker = "\n[truncated]"

var (
	getParameters  = json.RawMessage(`{"type":"object","properties":{"url":{"type":"string","description":"URL to request"},"headers":{"type":"object","description":"Request headers","additionalProperties":{"type":"string"}}},"required":["url"]}`)
	postParameters = json.RawMessage(`{"type":"object","properties":{"url":{"type":"string","description":"URL to request"},"data":{"type":"object","description":"JSON request body"},"headers":{"type":"object","description":"Request headers","additionalProperties":{"type":"string"}}},"required":["url"]}`)
)

// Config configures the Provider.
type Config struct {
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxBodyBytes caps the response body returned to the model. Zero
	// means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Provider performs outbound HTTP requests on behalf of the model.
type Provider struct {
	client   *http.Client
	maxBody  int64
	requests *prometheus.CounterVec
}

var _ registry.Provider = (*Provider)(nil)

// New creates a Provider.
func New(cfg Config) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Provider{
		client:  &http.Client{Timeout: cfg.Timeout},
		maxBody: cfg.MaxBodyBytes,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funcall_http_tool_requests_total",
				Help: "Outbound HTTP requests made by the http_get and http_post capabilities",
			},
			[]string{"method", "status"},
		),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "httpfetch" }

// Capabilities returns the http_get and http_post descriptors.
func (p *Provider) Capabilities() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "http_get",
			Description: "Performs an HTTP GET request and returns the response body.",
			Parameters:  getParameters,
			Handler: registry.Typed(func(ctx context.Context, args getArgs) (any, error) {
				return p.do(ctx, http.MethodGet, args.URL, nil, args.Headers)
			}),
		},
		{
			Name:        "http_post",
			Description: "Performs an HTTP POST request with a JSON body and returns the response body.",
			Parameters:  postParameters,
			Handler: registry.Typed(func(ctx context.Context, args postArgs) (any, error) {
				body := args.Data
				if len(body) == 0 || string(body) == "null" {
					body = json.RawMessage(`{}`)
				}
				return p.do(ctx, http.MethodPost, args.URL, body, args.Headers)
			}),
		},
	}
}

// Collectors returns the request counter.
func (p *Provider) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.requests}
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

type getArgs struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

func (a *getArgs) Validate() error { return validURL(a.URL) }

type postArgs struct {
	URL     string            `json:"url"`
	Data    json.RawMessage   `json:"data"`
	Headers map[string]string `json:"headers"`
}

func (a *postArgs) Validate() error { return validURL(a.URL) }

func validURL(raw string) error {
	if err := registry.Required("url", raw); err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &registry.ArgumentError{Field: "url", Reason: "must be an absolute http or https URL"}
	}
	return nil
}

func (p *Provider) do(ctx context.Context, method, target string, body []byte, headers map[string]string) (string, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	debug.Log("tools", "outbound http request", "method", method, "url", target)
	resp, err := p.client.Do(req)
	if err != nil {
		p.requests.WithLabelValues(method, "error").Inc()
		return "", fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	p.requests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("%s %s: reading body: %w", method, target, err)
	}
	truncated := int64(len(data)) > p.maxBody
	if truncated {
		data = data[:p.maxBody]
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, debug.Truncate(string(data), 200))
	}

	if !truncated && strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, data, "", "  "); err == nil {
			return pretty.String(), nil
		}
	}
	if truncated {
		return string(data) + truncatedMarker, nil
	}
	return string(data), nil
}
