package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"debug":   "DEBUG",
		"INFO":    "INFO",
		" warn ":  "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"loud":    "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestServerLoggerConfig(t *testing.T) {
	t.Setenv(EnvironmentVar, "Staging")

	cfg := serverLoggerConfig("genimage", "debug", "genimage-api")
	assert.Equal(t, logging.ProfileStructured, cfg.Profile)
	assert.Equal(t, "DEBUG", cfg.DefaultLevel)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "genimage-api", cfg.StaticFields["namespace"])
	require.Len(t, cfg.Sinks, 1)
	assert.Equal(t, "json", cfg.Sinks[0].Format)

	t.Setenv(EnvironmentVar, "")
	cfg = serverLoggerConfig("genimage", "info", "")
	assert.Equal(t, "production", cfg.Environment)
	assert.Empty(t, cfg.StaticFields)
}

func TestInitLoggers(t *testing.T) {
	require.NoError(t, InitCLILogger("genimage-test", true))
	require.NotNil(t, CLILogger)
	CLILogger.Debug("cli logger ready", zap.String("component", "test"))

	require.NoError(t, InitServerLogger("genimage-test", "info", "test"))
	require.NotNil(t, ServerLogger)
	ServerLogger.Info("server logger ready", zap.Int("port", 8080))
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("[::]:9464")
	require.NoError(t, err)
	assert.Equal(t, 9464, port)

	_, err = resolvePort("no-port")
	require.Error(t, err)
}
