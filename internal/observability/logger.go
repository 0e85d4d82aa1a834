// Package observability owns the process-wide loggers and the telemetry
// system. Both are installed once at startup and read everywhere else.
package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
)

// EnvironmentVar names the deployment environment stamped on server logs.
const EnvironmentVar = "GENIMAGE_ENV"

var (
	// CLILogger backs CLI commands and the field editor.
	CLILogger *logging.Logger

	// ServerLogger backs the HTTP API and writes JSON to stderr.
	ServerLogger *logging.Logger
)

var levelNames = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// InitCLILogger installs CLILogger. verbose lowers the level to DEBUG.
func InitCLILogger(serviceName string, verbose bool) error {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		return fmt.Errorf("init cli logger: %w", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
	return nil
}

// InitServerLogger installs ServerLogger. A non-empty namespace is attached
// to every entry.
func InitServerLogger(serviceName, level, namespace string) error {
	logger, err := logging.New(serverLoggerConfig(serviceName, level, namespace))
	if err != nil {
		return fmt.Errorf("init server logger: %w", err)
	}
	ServerLogger = logger
	return nil
}

func serverLoggerConfig(serviceName, level, namespace string) *logging.LoggerConfig {
	static := map[string]any{}
	if namespace != "" {
		static["namespace"] = namespace
	}

	console := logging.SinkConfig{
		Type:    "console",
		Format:  "json",
		Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
	}
	correlation := logging.MiddlewareConfig{
		Name:    "correlation",
		Enabled: true,
		Order:   100,
		Config:  map[string]any{},
	}

	return &logging.LoggerConfig{
		Profile:          logging.ProfileStructured,
		DefaultLevel:     parseLogLevel(level),
		Service:          serviceName,
		Environment:      environment(),
		StaticFields:     static,
		Middleware:       []logging.MiddlewareConfig{correlation},
		Sinks:            []logging.SinkConfig{console},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

func environment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(EnvironmentVar)))
	if env == "" {
		return "production"
	}
	return env
}

// parseLogLevel maps a config level onto a gofulmen severity name. Unknown
// values log at INFO.
func parseLogLevel(level string) string {
	if name, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return name
	}
	return "INFO"
}
