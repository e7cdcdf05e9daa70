package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort       = 8080
	DefaultResultsTTL     = 5 * time.Minute
	DefaultStreamInterval = 5 * time.Second
	DefaultExportBuffer   = 1000
	DefaultRuleCooldown   = 15 * time.Minute
)

// Config is the top-level mvakit service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Export   ExportConfig   `yaml:"export"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// ServerConfig holds the HTTP/WebSocket serving settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// Auth configures how incoming API clients authenticate.
	Auth AuthConfig `yaml:"auth"`

	// Results controls in-memory result retention.
	Results ResultsConfig `yaml:"results"`

	// StreamInterval is how often the WebSocket hub broadcasts the recent
	// results to connected clients.
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// AuthConfig controls client authentication for the HTTP API.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable holding the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header the key is read from. Defaults to
	// "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default
// "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// ResultsConfig controls in-memory result retention.
type ResultsConfig struct {
	// TTL is how long an event's result remains readable after evaluation.
	TTL time.Duration `yaml:"ttl"`
}

// PipelineConfig lists the stages to build, in evaluation order.
type PipelineConfig struct {
	Stages []StageConfig `yaml:"stages"`
}

// StageConfig describes one pipeline stage.
type StageConfig struct {
	// Name is the unique stage instance name; it also names the stage's
	// output slots.
	Name string `yaml:"name"`

	// Kind is the processor kind: likelihood | normalize.
	Kind string `yaml:"kind"`

	// Calibration is the path of the stage's calibration YAML file.
	Calibration string `yaml:"calibration"`
}

// ExportConfig controls forwarding of results to a downstream endpoint.
// An empty endpoint disables export.
type ExportConfig struct {
	// Endpoint is the URL results are POSTed to as JSON.
	Endpoint string `yaml:"endpoint"`

	// BufferSize is the maximum number of results held in memory while the
	// endpoint is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// Auth configures outgoing authentication: apikey | bearer | none.
	Auth ExportAuth `yaml:"auth"`
}

// ExportAuth specifies outgoing authentication for the export endpoint.
type ExportAuth struct {
	Mode     string `yaml:"mode"`
	Header   string `yaml:"header"`
	KeyEnv   string `yaml:"key_env"`
	TokenEnv string `yaml:"token_env"`
}

// Key returns the outgoing API key resolved from the environment.
func (a ExportAuth) Key() string { return os.Getenv(a.KeyEnv) }

// Token returns the outgoing bearer token resolved from the environment.
func (a ExportAuth) Token() string { return os.Getenv(a.TokenEnv) }

// MonitorConfig holds abstention/throughput rules and webhook targets.
type MonitorConfig struct {
	// Window is the sliding window rates are computed over. Defaults to 5m.
	Window time.Duration `yaml:"window"`

	Rules    []RuleConfig    `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// RuleConfig defines one threshold-based monitoring rule.
type RuleConfig struct {
	// Name is the human-readable rule identifier, used as the
	// deduplication key.
	Name string `yaml:"name"`

	// Stage scopes the rule to one stage's outputs; empty means overall.
	Stage string `yaml:"stage"`

	// Condition is a simple expression: "abstain_pct > 20",
	// "events_pm < 100".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after a rule fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			Results:        ResultsConfig{TTL: DefaultResultsTTL},
			StreamInterval: DefaultStreamInterval,
		},
		Export: ExportConfig{
			BufferSize: DefaultExportBuffer,
		},
		Monitor: MonitorConfig{
			Window: DefaultResultsTTL,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Results.TTL < 0 {
		return fmt.Errorf("server.results.ttl must not be negative")
	}
	if cfg.Server.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}

	seen := map[string]bool{}
	for i, st := range cfg.Pipeline.Stages {
		if st.Name == "" {
			return fmt.Errorf("pipeline.stages[%d].name is required", i)
		}
		if seen[st.Name] {
			return fmt.Errorf("pipeline.stages[%d]: duplicate name %q", i, st.Name)
		}
		seen[st.Name] = true
		if st.Kind == "" {
			return fmt.Errorf("pipeline.stages[%d].kind is required", i)
		}
		if st.Calibration == "" {
			return fmt.Errorf("pipeline.stages[%d].calibration is required", i)
		}
	}

	if cfg.Export.Endpoint != "" && cfg.Export.BufferSize <= 0 {
		return fmt.Errorf("export.buffer_size must be positive")
	}

	if cfg.Monitor.Window <= 0 {
		return fmt.Errorf("monitor.window must be positive")
	}
	for i, r := range cfg.Monitor.Rules {
		if r.Name == "" {
			return fmt.Errorf("monitor.rules[%d].name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("monitor.rules[%d].condition is required", i)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("monitor.rules[%d].severity %q unknown: want critical|warning|info", i, r.Severity)
		}
	}

	return nil
}
