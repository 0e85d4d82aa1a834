// Package config provides centralized configuration management for genimage.
// It layers built-in defaults, an optional YAML config file, GENIMAGE_*
// environment variables and runtime overrides, then decodes the result into
// a typed Config.
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the XDG config and data directories.
	AppName = "genimage"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "GENIMAGE_"
)

var (
	configMu   sync.RWMutex
	current    *Config
	configFile string
)

// SetConfigFile pins the config file read by Load. An empty path restores
// discovery in the XDG config directory and ./config.
func SetConfigFile(path string) {
	configMu.Lock()
	configFile = strings.TrimSpace(path)
	configMu.Unlock()
}

// ConfigFile returns the explicitly configured file, if any.
func ConfigFile() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return configFile
}

// GetConfig returns the configuration produced by the last successful Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return current
}

// Load builds the configuration from defaults, the config file, environment
// variables and runtimeOverrides, in increasing precedence. It may be called
// again to reload.
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	if err := readConfigFile(v, ConfigFile()); err != nil {
		return nil, err
	}

	env, err := envLayer()
	if err != nil {
		return nil, err
	}
	for _, layer := range append([]map[string]any{env}, runtimeOverrides...) {
		if len(layer) == 0 {
			continue
		}
		if err := v.MergeConfigMap(layer); err != nil {
			return nil, fmt.Errorf("failed to merge config overrides: %w", err)
		}
	}

	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	configMu.Lock()
	current = cfg
	configMu.Unlock()
	return cfg, nil
}

// envLayer collects the static GENIMAGE_* mappings plus the per-provider
// and routing variables, which have open-ended names.
func envLayer() (map[string]any, error) {
	env, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if env == nil {
		env = map[string]any{}
	}
	applyAILinkDynamicEnvOverrides(EnvPrefix, env)
	return env, nil
}

func decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", explicit, err)
		}
		return nil
	}

	if dir := strings.TrimSpace(gfconfig.GetAppConfigDir(AppName)); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	dir := strings.TrimSpace(gfconfig.GetAppConfigDir(AppName))
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the database file inside DefaultDataDir, or
// ./genimage.db when no data directory can be determined.
func DefaultStorePath() string {
	name := AppName + ".db"
	if dir := strings.TrimSpace(DefaultDataDir()); dir != "" {
		return filepath.Join(dir, name)
	}
	return "./" + name
}
