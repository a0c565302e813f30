package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTarget              = "8.8.8.8"
	DefaultMaxPoints           = 60
	DefaultNumWindows          = 10
	DefaultMaxOutages          = 100
	DefaultProbeInterval       = time.Second
	DefaultProbeTimeout        = time.Second
	DefaultHost                = "0.0.0.0"
	DefaultPort                = 5000
	DefaultAPIURL              = "http://localhost:5000"
	DefaultAutoRefreshInterval = time.Second
	DefaultMetricsPath         = "/metrics"
	DefaultAlertInterval       = 10 * time.Second
	DefaultAlertCooldown       = 15 * time.Minute
)

// Probe methods.
const (
	ProbeMethodICMP = "icmp"
	ProbeMethodExec = "exec"
)

// Environment variables that override file values.
const (
	EnvTarget     = "PINGWATCH_TARGET"
	EnvPort       = "PINGWATCH_PORT"
	EnvMaxPoints  = "PINGWATCH_MAX_POINTS"
	EnvNumWindows = "PINGWATCH_NUM_WINDOWS"
	EnvLogLevel   = "PINGWATCH_LOG_LEVEL"
)

// Duration is a time.Duration that also accepts a bare number of seconds in YAML.
type Duration time.Duration

// UnmarshalYAML accepts "1s"-style strings and integer or float seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	switch value.Tag {
	case "!!int", "!!float":
		var secs float64
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	default:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if raw == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
}

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the top-level pingwatch configuration. Fields map 1:1 to config.yaml.
type Config struct {
	// Target is the probed host name or address.
	Target string `yaml:"target"`

	Probe   ProbeConfig   `yaml:"probe"`
	Stats   StatsConfig   `yaml:"stats"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// ProbeConfig controls how a single probe is executed.
type ProbeConfig struct {
	// Method is one of: icmp | exec. Defaults to icmp.
	Method string `yaml:"method"`

	// Interval is the wait between the end of one probe and the next.
	Interval Duration `yaml:"interval"`

	// Timeout bounds one probe.
	Timeout Duration `yaml:"timeout"`

	// Privileged selects raw ICMP sockets. Unprivileged mode uses UDP ICMP
	// sockets, which on Linux requires net.ipv4.ping_group_range.
	Privileged bool `yaml:"privileged"`

	// Size is the ICMP payload size in bytes.
	Size int `yaml:"size"`

	// Interface binds ICMP probes to a network interface.
	Interface string `yaml:"interface"`

	// Binary is the ping executable used by the exec method.
	Binary string `yaml:"binary"`

	// Autostart begins polling at process start instead of on the first API request.
	Autostart bool `yaml:"autostart"`
}

// StatsConfig sizes the statistics engine.
type StatsConfig struct {
	// MaxPoints is the ring buffer capacity and the accounting window size.
	MaxPoints int `yaml:"max_points"`

	// NumWindows is how many completed windows are averaged.
	NumWindows int `yaml:"num_windows"`

	// MaxOutages bounds the retained outage history.
	MaxOutages int `yaml:"max_outages"`
}

// ServerConfig holds the HTTP listener and client-facing settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// APIURL is advertised to clients through /api/config.
	APIURL string `yaml:"api_url"`

	// AutoRefreshInterval is how often clients should poll, and how often the
	// WebSocket hub pushes data.
	AutoRefreshInterval Duration `yaml:"auto_refresh_interval"`

	// CORSOrigin is sent as Access-Control-Allow-Origin. Empty disables CORS headers.
	CORSOrigin string `yaml:"cors_origin"`

	// Auth protects mutating endpoints.
	Auth AuthConfig `yaml:"auth"`
}

// Addr returns the listen address host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig controls client authentication on mutating endpoints.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// LogConfig selects the log handler.
type LogConfig struct {
	// Format is one of: json | text.
	Format string `yaml:"format"`

	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	// Interval is how often rules are evaluated.
	Interval Duration `yaml:"interval"`

	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "failure_rate > 5",
	// "avg_ping_time >= 150", "consecutive_failures >= 3".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads the config file at path, applies environment overrides and
// validates the result. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Target: DefaultTarget,
		Probe: ProbeConfig{
			Method:   ProbeMethodICMP,
			Interval: Duration(DefaultProbeInterval),
			Timeout:  Duration(DefaultProbeTimeout),
		},
		Stats: StatsConfig{
			MaxPoints:  DefaultMaxPoints,
			NumWindows: DefaultNumWindows,
			MaxOutages: DefaultMaxOutages,
		},
		Server: ServerConfig{
			Host:                DefaultHost,
			Port:                DefaultPort,
			APIURL:              DefaultAPIURL,
			AutoRefreshInterval: Duration(DefaultAutoRefreshInterval),
			CORSOrigin:          "*",
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Alerts: AlertsConfig{
			Interval: Duration(DefaultAlertInterval),
		},
	}
}

// applyEnv overlays PINGWATCH_* variables onto cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvTarget); ok && v != "" {
		cfg.Target = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvPort, &cfg.Server.Port},
		{EnvMaxPoints, &cfg.Stats.MaxPoints},
		{EnvNumWindows, &cfg.Stats.NumWindows},
	}
	for _, e := range ints {
		v, ok := lookup(e.name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not an integer", e.name, v)
		}
		*e.dst = n
	}
	return nil
}

// Validate checks cfg after in-process changes such as command-line overrides.
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Target == "" {
		return fmt.Errorf("target is required")
	}
	switch cfg.Probe.Method {
	case ProbeMethodICMP, ProbeMethodExec:
	default:
		return fmt.Errorf("probe.method %q unknown: want icmp|exec", cfg.Probe.Method)
	}
	if cfg.Probe.Interval <= 0 {
		return fmt.Errorf("probe.interval must be positive")
	}
	if cfg.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	if cfg.Probe.Size < 0 {
		return fmt.Errorf("probe.size must not be negative")
	}
	if cfg.Stats.MaxPoints < 1 {
		return fmt.Errorf("stats.max_points %d must be at least 1", cfg.Stats.MaxPoints)
	}
	if cfg.Stats.NumWindows < 1 {
		return fmt.Errorf("stats.num_windows %d must be at least 1", cfg.Stats.NumWindows)
	}
	if cfg.Stats.MaxOutages < 1 {
		return fmt.Errorf("stats.max_outages %d must be at least 1", cfg.Stats.MaxOutages)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [1, 65535]", cfg.Server.Port)
	}
	if cfg.Server.AutoRefreshInterval <= 0 {
		return fmt.Errorf("server.auto_refresh_interval must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.KeyEnv == "" {
		return fmt.Errorf("server.auth.key_env is required when mode is apikey")
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", cfg.Metrics.Path)
	}
	if cfg.Alerts.Interval <= 0 {
		return fmt.Errorf("alerts.interval must be positive")
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: type %q unknown: want slack|teams|http", i, w.Type)
		}
	}
	return nil
}

// RestartRequired lists the settings that differ between old and next and
// only take effect after a restart.
func RestartRequired(old, next *Config) []string {
	var changed []string
	if old.Target != next.Target {
		changed = append(changed, "target")
	}
	if old.Probe != next.Probe {
		changed = append(changed, "probe")
	}
	if old.Stats != next.Stats {
		changed = append(changed, "stats")
	}
	if old.Server.Host != next.Server.Host || old.Server.Port != next.Server.Port {
		changed = append(changed, "server.listen")
	}
	if old.Server.Auth != next.Server.Auth {
		changed = append(changed, "server.auth")
	}
	if old.Metrics != next.Metrics {
		changed = append(changed, "metrics")
	}
	if old.Log.Format != next.Log.Format {
		changed = append(changed, "log.format")
	}
	if old.Alerts.Interval != next.Alerts.Interval {
		changed = append(changed, "alerts.interval")
	}
	return changed
}
