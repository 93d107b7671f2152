package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/painless-params/painless/pkg/param"
)

// Default values for the configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultBaseDir           = param.DefaultDir
	DefaultCommandsPerSecond = 20
	DefaultBurst             = 40
	DefaultLogLevel          = LogLevelInfo
	DefaultLogFormat         = LogFormatJSON
)

// Log levels and formats accepted by Log.Level and Log.Format.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Environment variables that override file values.
const (
	EnvBaseDir   = "PAINLESS_DIR"
	EnvHTTPPort  = "PAINLESS_HTTP_PORT"
	EnvWatch     = "PAINLESS_WATCH"
	EnvLogLevel  = "PAINLESS_LOG_LEVEL"
	EnvLogFormat = "PAINLESS_LOG_FORMAT"
)

// Config is the full configuration tree.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the HTTP listener and storage settings.
type ServerConfig struct {
	// HTTPPort is the port the page, socket and API listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// BaseDir is the directory holding one file per parameter.
	BaseDir string `yaml:"base_dir"`
}

// RealtimeConfig controls the push channel.
type RealtimeConfig struct {
	// Watch starts the filesystem watcher so that changes made outside the
	// UI are pushed to clients. Handler-triggered broadcasts happen either way.
	Watch bool `yaml:"watch"`

	// CommandsPerSecond limits update/remove commands per connected client.
	// Zero disables the limit.
	CommandsPerSecond float64 `yaml:"commands_per_second"`

	// Burst is the number of commands a client may send back to back.
	Burst int `yaml:"burst"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds the configuration. When path is empty only defaults and the
// environment are used; a non-empty path must exist.
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

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config holding only default values.
func Default() *Config {
	return defaults()
}

// Validate checks c after callers changed it, e.g. from command-line flags.
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			BaseDir:  DefaultBaseDir,
		},
		Realtime: RealtimeConfig{
			Watch:             true,
			CommandsPerSecond: DefaultCommandsPerSecond,
			Burst:             DefaultBurst,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// applyEnv overrides file values with PAINLESS_* variables that are set.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvBaseDir); v != "" {
		cfg.Server.BaseDir = v
	}
	if v := os.Getenv(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a number", EnvHTTPPort, v)
		}
		cfg.Server.HTTPPort = port
	}
	if v := os.Getenv(EnvWatch); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a boolean", EnvWatch, v)
		}
		cfg.Realtime.Watch = watch
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.BaseDir == "" {
		return fmt.Errorf("server.base_dir must not be empty")
	}
	if cfg.Realtime.CommandsPerSecond < 0 {
		return fmt.Errorf("realtime.commands_per_second must not be negative")
	}
	if cfg.Realtime.Burst < 0 {
		return fmt.Errorf("realtime.burst must not be negative")
	}
	switch cfg.Log.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	return nil
}
