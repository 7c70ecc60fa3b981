// Package config provides unified configuration for the funcall server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (VLLM_*, AGENT_* and friends)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"strings"
	"time"
)

// Config holds all configuration for the funcall server.
type Config struct {
	Env           string              `yaml:"env"` // default: "development"
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Agent         AgentConfig         `yaml:"agent"`
	Tools         ToolsConfig         `yaml:"tools"`
	MCP           MCPConfig           `yaml:"mcp"`
	Session       SessionConfig       `yaml:"session"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`             // default: "0.0.0.0"
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 330s, longer than agent.timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 15s
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`   // default: 1 MiB
}

// BackendConfig holds inference endpoint settings.
type BackendConfig struct {
	BaseURL            string        `yaml:"base_url"`     // required
	Model              string        `yaml:"model"`        // required
	APIKey             string        `yaml:"api_key"`      // optional
	APIKeyFile         string        `yaml:"api_key_file"` // _file variant for api_key
	MaxTokens          int           `yaml:"max_tokens"`   // default: 1000
	Temperature        float64       `yaml:"temperature"`  // default: 0.7
	Timeout            time.Duration `yaml:"timeout"`      // default: 60s
	LegacyFallback     bool          `yaml:"legacy_fallback"`
	CompletionFallback bool          `yaml:"completion_fallback"`
}

// AgentConfig holds orchestration loop settings.
type AgentConfig struct {
	MaxIterations          int           `yaml:"max_iterations"` // default: 10
	Timeout                time.Duration `yaml:"timeout"`        // default: 300s
	SystemPrompt           string        `yaml:"system_prompt"`  // empty selects the built-in prompt
	ParallelInvocations    bool          `yaml:"parallel_invocations"`
	MaxParallelInvocations int           `yaml:"max_parallel_invocations"` // default: 4
	Hints                  []HintConfig  `yaml:"hints"`
}

// HintConfig forces a capability when the user message contains one of
// the keywords.
type HintConfig struct {
	Tool     string   `yaml:"tool" json:"tool"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// ToolsConfig holds settings for the built-in capabilities.
type ToolsConfig struct {
	Enabled           bool             `yaml:"enabled"`            // default: true
	Timeout           time.Duration    `yaml:"timeout"`            // default: 30s
	ValidateArguments bool             `yaml:"validate_arguments"` // default: false
	DefaultTimezone   string           `yaml:"default_timezone"`   // default: "UTC"
	HTTP              HTTPToolConfig   `yaml:"http"`
	Filesystem        FilesystemConfig `yaml:"filesystem"`
	Cluster           ClusterConfig    `yaml:"cluster"`
}

// HTTPToolConfig configures http_get and http_post.
type HTTPToolConfig struct {
	Enabled      bool          `yaml:"enabled"`        // default: true
	Timeout      time.Duration `yaml:"timeout"`        // default: 30s
	MaxBodyBytes int64         `yaml:"max_body_bytes"` // default: 64 KiB
}

// FilesystemConfig configures list_directory and read_file.
type FilesystemConfig struct {
	Root string `yaml:"root"` // empty disables the capabilities
}

// ClusterConfig configures the Kubernetes inspection capabilities.
type ClusterConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Namespace  string `yaml:"namespace"`  // default namespace when the model omits one
	Kubeconfig string `yaml:"kubeconfig"` // empty uses in-cluster or default loading rules
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name" json:"name"`
	Transport string            `yaml:"transport" json:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url" json:"url"`
	Headers   map[string]string `yaml:"headers" json:"headers,omitempty"`
	Auth      MCPAuthConfig     `yaml:"auth" json:"auth,omitempty"`
}

// MCPAuthConfig holds authentication settings for an MCP server.
type MCPAuthConfig struct {
	Type             string   `yaml:"type" json:"type,omitempty"` // "", "static" or "oauth_client_credentials"
	Key              string   `yaml:"key" json:"key,omitempty"`
	KeyFile          string   `yaml:"key_file" json:"key_file,omitempty"`
	TokenURL         string   `yaml:"token_url" json:"token_url,omitempty"`
	ClientID         string   `yaml:"client_id" json:"client_id,omitempty"`
	ClientIDFile     string   `yaml:"client_id_file" json:"client_id_file,omitempty"`
	ClientSecret     string   `yaml:"client_secret" json:"client_secret,omitempty"`
	ClientSecretFile string   `yaml:"client_secret_file" json:"client_secret_file,omitempty"`
	Scopes           []string `yaml:"scopes" json:"scopes,omitempty"`
}

// SessionConfig holds conversation store settings.
type SessionConfig struct {
	MaxConversations int `yaml:"max_conversations"` // default: 1000, 0 = unlimited
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log level, output format and debug category settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Format string `yaml:"format"` // "text" (default) or "json"
	Debug  string `yaml:"debug"`  // comma-separated debug categories, "all" enables every category
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Env: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    330 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Backend: BackendConfig{
			MaxTokens:          1000,
			Temperature:        0.7,
			Timeout:            60 * time.Second,
			LegacyFallback:     true,
			CompletionFallback: true,
		},
		Agent: AgentConfig{
			MaxIterations:          10,
			Timeout:                300 * time.Second,
			MaxParallelInvocations: 4,
		},
		Tools: ToolsConfig{
			Enabled:         true,
			Timeout:         30 * time.Second,
			DefaultTimezone: "UTC",
			HTTP: HTTPToolConfig{
				Enabled:      true,
				Timeout:      30 * time.Second,
				MaxBodyBytes: 64 << 10,
			},
		},
		Session: SessionConfig{
			MaxConversations: 1000,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// IsDevelopment reports whether the server runs in the development
// environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// IsProduction reports whether the server runs in the production
// environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
