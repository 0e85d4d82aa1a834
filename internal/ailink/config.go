package ailink

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is the ailink section of the studio config.
type Config struct {
	// DefaultProvider serves roles with no routing entry.
	DefaultProvider string `mapstructure:"default_provider"`
	// DefaultTimeout bounds each provider call, retries included.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`

	// MaxRetries bounds extra attempts after a provider 5xx or network
	// failure; RetryDelay is the first backoff step.
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// PromptsDir replaces the built-in prompts when set.
	PromptsDir string      `mapstructure:"prompts_dir"`
	Debug      DebugConfig `mapstructure:"debug"`

	// Providers are keyed by an operator-chosen id such as "studio-openai".
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`
	// Routing maps a role (decompose, options, translate, image) to a
	// provider id.
	Routing map[string]string `mapstructure:"routing"`
}

// DebugConfig enables raw model output on decode failures.
type DebugConfig struct {
	CaptureRawEnabled  bool `mapstructure:"capture_raw_enabled"`
	CaptureRawMaxBytes int  `mapstructure:"capture_raw_max_bytes"`
}

// ProviderInstanceConfig is one configured provider.
type ProviderInstanceConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AIProvider string `mapstructure:"ai_provider"` // openai, openai-sdk or xai
	BaseURL    string `mapstructure:"base_url"`

	// Models maps a tier ("default", "image") to a model name.
	Models       map[string]string `mapstructure:"models"`
	Roles        []string          `mapstructure:"roles"`
	Capabilities Capabilities      `mapstructure:"capabilities"`

	// SelectionPolicy is "priority" (default) or "round_robin".
	// DefaultCredential pins a credential label and falls back to the
	// policy when no enabled credential carries it.
	SelectionPolicy   string             `mapstructure:"selection_policy"`
	DefaultCredential string             `mapstructure:"default_credential"`
	Credentials       []CredentialConfig `mapstructure:"credentials"`
}

type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}

// Capabilities marks what a provider may be routed for implicitly.
type Capabilities struct {
	Images bool `mapstructure:"images"`
}

// Validate reports every structural problem in cfg at once: unknown
// drivers on enabled providers, routes to missing providers and negative
// retry settings. Missing API keys are left to the drivers.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative"))
	}
	if cfg.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry_delay must not be negative"))
	}

	ids := make([]string, 0, len(cfg.Providers))
	for id := range cfg.Providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p := cfg.Providers[id]
		if !p.Enabled {
			continue
		}
		kind := strings.ToLower(strings.TrimSpace(p.AIProvider))
		if _, ok := driverFactories[kind]; !ok {
			errs = append(errs, fmt.Errorf("provider %q: unsupported ai_provider %q", id, p.AIProvider))
		}
		if policy := strings.ToLower(strings.TrimSpace(p.SelectionPolicy)); policy != "" && policy != "priority" && policy != "round_robin" {
			errs = append(errs, fmt.Errorf("provider %q: unknown selection_policy %q", id, p.SelectionPolicy))
		}
	}

	roles := make([]string, 0, len(cfg.Routing))
	for role := range cfg.Routing {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	for _, role := range roles {
		target := strings.TrimSpace(cfg.Routing[role])
		if _, ok := cfg.Providers[target]; target != "" && !ok {
			errs = append(errs, fmt.Errorf("routing %q: provider %q not configured", role, target))
		}
	}
	if id := strings.TrimSpace(cfg.DefaultProvider); id != "" {
		if _, ok := cfg.Providers[id]; !ok {
			errs = append(errs, fmt.Errorf("default_provider %q not configured", id))
		}
	}
	return errors.Join(errs...)
}
