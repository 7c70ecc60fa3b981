package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, FUNCALL_CONFIG env, ./config.yaml, /etc/funcall/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. FUNCALL_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/funcall/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("FUNCALL_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/funcall/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// envParser collects parse failures so that every malformed variable is
// reported at once.
type envParser struct {
	errs []error
}

func (p *envParser) setString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func (p *envParser) setInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", name, v))
		return
	}
	*dst = n
}

func (p *envParser) setFloat(name string, dst *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a number", name, v))
		return
	}
	*dst = f
}

func (p *envParser) setBool(name string, dst *bool) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", name, v))
		return
	}
	*dst = b
}

// setSeconds reads a duration given in whole seconds, or in Go duration
// syntax ("90s", "2m").
func (p *envParser) setSeconds(name string, dst *time.Duration) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", name, v))
		return
	}
	*dst = d
}

// applyEnvOverrides maps environment variables to config fields. The
// VLLM_*, AGENT_*, HOST, PORT, ENV and LOG_LEVEL names are kept from the
// service this one replaces.
func applyEnvOverrides(cfg *Config) error {
	p := &envParser{}

	p.setString("ENV", &cfg.Env)
	p.setString("HOST", &cfg.Server.Host)
	p.setInt("PORT", &cfg.Server.Port)

	p.setString("VLLM_BASE_URL", &cfg.Backend.BaseURL)
	p.setString("VLLM_MODEL", &cfg.Backend.Model)
	p.setString("VLLM_API_KEY", &cfg.Backend.APIKey)
	p.setInt("VLLM_MAX_TOKENS", &cfg.Backend.MaxTokens)
	p.setFloat("VLLM_TEMPERATURE", &cfg.Backend.Temperature)
	p.setSeconds("VLLM_TIMEOUT", &cfg.Backend.Timeout)

	p.setInt("AGENT_MAX_ITERATIONS", &cfg.Agent.MaxIterations)
	p.setSeconds("AGENT_TIMEOUT", &cfg.Agent.Timeout)
	p.setString("AGENT_SYSTEM_PROMPT", &cfg.Agent.SystemPrompt)

	p.setBool("MCP_TOOLS_ENABLED", &cfg.Tools.Enabled)
	p.setString("TOOLS_FILESYSTEM_ROOT", &cfg.Tools.Filesystem.Root)
	p.setBool("TOOLS_CLUSTER_ENABLED", &cfg.Tools.Cluster.Enabled)

	p.setInt("SESSION_MAX_CONVERSATIONS", &cfg.Session.MaxConversations)

	p.setString("LOG_LEVEL", &cfg.Logging.Level)
	p.setString("LOG_FORMAT", &cfg.Logging.Format)
	p.setString("FUNCALL_DEBUG", &cfg.Logging.Debug)

	// FUNCALL_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("FUNCALL_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err != nil {
			p.errs = append(p.errs, err)
		} else {
			cfg.MCP.Servers = servers
		}
	}

	// FUNCALL_HINTS: JSON array of {tool, keywords}.
	if v := os.Getenv("FUNCALL_HINTS"); v != "" {
		var hints []HintConfig
		if err := json.Unmarshal([]byte(v), &hints); err != nil {
			p.errs = append(p.errs, fmt.Errorf("parsing hints JSON: %w", err))
		} else {
			cfg.Agent.Hints = hints
		}
	}

	return errors.Join(p.errs...)
}

// parseMCPServersJSON parses a JSON array of MCP server configurations.
func parseMCPServersJSON(jsonStr string) ([]MCPServerConfig, error) {
	var servers []MCPServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &servers); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	return servers, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// backend.api_key_file -> backend.api_key
	if cfg.Backend.APIKeyFile != "" && cfg.Backend.APIKey == "" {
		val, err := readSecretFile(cfg.Backend.APIKeyFile)
		if err != nil {
			return fmt.Errorf("backend.api_key_file: %w", err)
		}
		cfg.Backend.APIKey = val
	}

	for i := range cfg.MCP.Servers {
		auth := &cfg.MCP.Servers[i].Auth
		refs := []struct {
			name string
			file string
			dst  *string
		}{
			{"key_file", auth.KeyFile, &auth.Key},
			{"client_id_file", auth.ClientIDFile, &auth.ClientID},
			{"client_secret_file", auth.ClientSecretFile, &auth.ClientSecret},
		}
		for _, ref := range refs {
			if ref.file == "" || *ref.dst != "" {
				continue
			}
			val, err := readSecretFile(ref.file)
			if err != nil {
				return fmt.Errorf("mcp.servers[%d].auth.%s: %w", i, ref.name, err)
			}
			*ref.dst = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
