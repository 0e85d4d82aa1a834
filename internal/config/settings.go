package config

import (
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/spf13/viper"
)

// EnvVarSpec maps one GENIMAGE_* variable onto a config path.
type EnvVarSpec = gfconfig.EnvVarSpec

const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// setting is one config key with its default and, when env is set, the
// variable suffix after EnvPrefix. A nil def leaves the key without a default.
type setting struct {
	key string
	def any
	env string
}

func (s setting) envSpec() EnvVarSpec {
	spec := EnvVarSpec{Name: EnvPrefix + s.env, Path: strings.Split(s.key, "."), Type: EnvString}
	switch s.def.(type) {
	case bool:
		spec.Type = EnvBool
	case int:
		spec.Type = EnvInt
	}
	return spec
}

// settings lists every scalar key. Durations are strings; the decode hook
// converts them.
func settings() []setting {
	return []setting{
		{"server.host", "localhost", "HOST"},
		{"server.port", 8080, "PORT"},
		{"server.read_timeout", "30s", "READ_TIMEOUT"},
		{"server.write_timeout", "120s", "WRITE_TIMEOUT"},
		{"server.idle_timeout", "120s", "IDLE_TIMEOUT"},
		{"server.shutdown_timeout", "10s", "SHUTDOWN_TIMEOUT"},
		{"server.max_body_bytes", 32 << 20, "MAX_BODY_BYTES"},

		{"logging.level", "info", "LOG_LEVEL"},
		{"logging.profile", "SIMPLE", "LOG_PROFILE"},

		{"store.driver", "libsql", "DB_DRIVER"},
		{"store.path", DefaultStorePath(), "DB_PATH"},
		{"store.url", "", "DB_URL"},
		{"store.auth_token", "", "DB_AUTH_TOKEN"},

		{"ailink.default_provider", nil, "AILINK_DEFAULT_PROVIDER"},
		{"ailink.default_timeout", "120s", "AILINK_DEFAULT_TIMEOUT"},
		{"ailink.max_retries", 2, "AILINK_MAX_RETRIES"},
		{"ailink.retry_delay", "500ms", "AILINK_RETRY_DELAY"},
		{"ailink.prompts_dir", nil, "AILINK_PROMPTS_DIR"},
		{"ailink.debug.capture_raw_enabled", false, "AILINK_DEBUG_CAPTURE_RAW_ENABLED"},
		{"ailink.debug.capture_raw_max_bytes", 65536, "AILINK_DEBUG_CAPTURE_RAW_MAX_BYTES"},

		{"studio.decompose_role", "decompose", "STUDIO_DECOMPOSE_ROLE"},
		{"studio.options_role", "options", "STUDIO_OPTIONS_ROLE"},
		{"studio.translate_role", "translate", "STUDIO_TRANSLATE_ROLE"},
		{"studio.image_role", "image", "STUDIO_IMAGE_ROLE"},
		{"studio.target_language", "Japanese", "STUDIO_TARGET_LANGUAGE"},
		{"studio.translate_delay", "1s", "STUDIO_TRANSLATE_DELAY"},
		{"studio.image_size", "1024x1024", "STUDIO_IMAGE_SIZE"},
		{"studio.preview_mode", "rich", "STUDIO_PREVIEW_MODE"},
		{"studio.image_rate_limit", 10, "STUDIO_IMAGE_RATE_LIMIT"},
		{"studio.default_owner", "local", "STUDIO_DEFAULT_OWNER"},

		{"metrics.enabled", true, "METRICS_ENABLED"},
		{"metrics.port", 9090, "METRICS_PORT"},
		{"health.enabled", true, "HEALTH_ENABLED"},
		{"debug.enabled", false, "DEBUG_ENABLED"},
	}
}

func setDefaults(v *viper.Viper) {
	for _, s := range settings() {
		if s.def != nil {
			v.SetDefault(s.key, s.def)
		}
	}
}

func getEnvSpecs() []EnvVarSpec {
	all := settings()
	specs := make([]EnvVarSpec, 0, len(all))
	for _, s := range all {
		if s.env != "" {
			specs = append(specs, s.envSpec())
		}
	}
	return specs
}
