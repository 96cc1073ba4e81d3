package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultBlueprintsIntervalMS = 5000
	DefaultRequestTimeout       = 10 * time.Second
	DefaultHTTPPort             = 8090
	DefaultSnapshotTTL          = 5 * time.Minute
	DefaultAlertHistory         = 200
	DefaultLogLevel             = "info"
)

// Config is the top-level configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	API    APIConfig    `yaml:"api"`
	Timers TimersConfig `yaml:"timers"`
	Server ServerConfig `yaml:"server"`
	Alerts AlertsConfig `yaml:"alerts"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error. Applied live on reload.
	Level string `yaml:"level"`
}

// SlogLevel converts Level to a slog.Level. Unknown values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// APIConfig describes the upstream blueprints endpoint.
type APIConfig struct {
	// BlueprintsURL is the full URL polled for the blueprint collection.
	BlueprintsURL string `yaml:"blueprints_url"`

	// Auth configures how requests to the endpoint are authenticated.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`

	// Timeout bounds a single fetch, including reading the body.
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig specifies the authentication mode for the upstream API.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// API key fields, used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv holds the bearer token variable name, used when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields, used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the upstream API.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// TimersConfig holds polling periods.
type TimersConfig struct {
	// BlueprintsIntervalMS is the poll period of the blueprints endpoint.
	BlueprintsIntervalMS int `yaml:"blueprints_interval_ms"`
}

// BlueprintsInterval returns BlueprintsIntervalMS as a Duration.
func (t TimersConfig) BlueprintsInterval() time.Duration {
	return time.Duration(t.BlueprintsIntervalMS) * time.Millisecond
}

// ServerConfig holds the dashboard's own listeners.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort is the port of the gRPC health service. 0 disables it.
	GRPCPort int `yaml:"grpc_port"`

	// SnapshotTTL is how long the last good collection is served after the
	// upstream stops answering.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`

	// Auth configures how inbound REST, WebSocket and gRPC clients authenticate.
	Auth ServerAuthConfig `yaml:"auth"`
}

// ServerAuthConfig configures inbound authentication.
type ServerAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable holding the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header / gRPC metadata key. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a ServerAuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a ServerAuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// AlertsConfig holds alert retention and webhook targets.
type AlertsConfig struct {
	// History is the number of recent alerts kept for GET /api/v1/alerts.
	History int `yaml:"history"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
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

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
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
		Log: LogConfig{Level: DefaultLogLevel},
		API: APIConfig{Timeout: DefaultRequestTimeout},
		Timers: TimersConfig{
			BlueprintsIntervalMS: DefaultBlueprintsIntervalMS,
		},
		Server: ServerConfig{
			HTTPPort:    DefaultHTTPPort,
			SnapshotTTL: DefaultSnapshotTTL,
		},
		Alerts: AlertsConfig{History: DefaultAlertHistory},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.API.BlueprintsURL == "" {
		return fmt.Errorf("api.blueprints_url is required")
	}
	if !strings.HasPrefix(cfg.API.BlueprintsURL, "http://") && !strings.HasPrefix(cfg.API.BlueprintsURL, "https://") {
		return fmt.Errorf("api.blueprints_url %q must be an http(s) URL", cfg.API.BlueprintsURL)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	switch cfg.API.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("api.auth.mode %q unknown: want mtls|apikey|bearer|basic|none", cfg.API.Auth.Mode)
	}
	if cfg.API.Auth.Mode == "apikey" && cfg.API.Auth.Header == "" {
		return fmt.Errorf("api.auth.header is required for apikey mode")
	}
	if cfg.API.Auth.Mode == "mtls" && (cfg.API.Auth.CertFile == "" || cfg.API.Auth.KeyFile == "") {
		return fmt.Errorf("api.auth.cert_file and key_file are required for mtls mode")
	}
	if cfg.Timers.BlueprintsIntervalMS <= 0 {
		return fmt.Errorf("timers.blueprints_interval_ms must be positive")
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", cfg.Server.GRPCPort)
	}
	if cfg.Server.SnapshotTTL <= 0 {
		return fmt.Errorf("server.snapshot_ttl must be positive")
	}
	if cfg.Server.SnapshotTTL < cfg.Timers.BlueprintsInterval() {
		return fmt.Errorf("server.snapshot_ttl %v is shorter than the poll interval %v",
			cfg.Server.SnapshotTTL, cfg.Timers.BlueprintsInterval())
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Alerts.History <= 0 {
		return fmt.Errorf("alerts.history must be positive")
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
	}
	return nil
}
