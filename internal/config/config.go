package config

import (
	"time"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink"
)

// Config represents the complete application configuration.
// Layer 1: built-in defaults (setDefaults)
// Layer 2: user config file (~/.config/genimage/config.yaml or --config)
// Layer 3: environment variables and runtime overrides
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	AILink  ailink.Config `mapstructure:"ailink"`
	Studio  StudioConfig  `mapstructure:"studio"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxBodyBytes bounds request bodies; image edits carry base64 uploads.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// StoreConfig contains database configuration.
//
// Driver "libsql" (default) supports local files and Turso URLs; driver
// "sqlite" is a pure-Go local file store.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// StudioConfig controls prompt and image workflows.
type StudioConfig struct {
	// Roles route each workflow to an AILink provider.
	DecomposeRole string `mapstructure:"decompose_role"`
	OptionsRole   string `mapstructure:"options_role"`
	TranslateRole string `mapstructure:"translate_role"`
	ImageRole     string `mapstructure:"image_role"`

	TargetLanguage string        `mapstructure:"target_language"`
	TranslateDelay time.Duration `mapstructure:"translate_delay"`
	ImageSize      string        `mapstructure:"image_size"`

	// PreviewMode selects the synthesizer used for previews: simplified or rich.
	PreviewMode string `mapstructure:"preview_mode"`

	// ImageRateLimit caps image requests per owner per minute; 0 disables it.
	ImageRateLimit int `mapstructure:"image_rate_limit"`

	// DefaultOwner is used by the CLI when --owner is not given.
	DefaultOwner string `mapstructure:"default_owner"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
