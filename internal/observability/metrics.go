package observability

import (
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// fallbackMetricsPort is reported when the exporter address cannot be read.
const fallbackMetricsPort = 9090

var (
	// TelemetrySystem is nil until InitMetrics runs; recorders check it.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the scrape page that /metrics proxies.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort atomic.Int64
)

// InitMetrics starts the Prometheus exporter and installs TelemetrySystem.
// port 0 picks a free port. Metric names are prefixed with namespace, or
// with serviceName when namespace is empty.
func InitMetrics(serviceName string, port int, namespace string) error {
	if namespace == "" {
		namespace = serviceName
	}
	port = max(port, 0)

	exporter := exporters.NewPrometheusExporter(namespace, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	bound, err := resolvePort(exporter.GetAddr())
	switch {
	case err == nil:
		port = bound
	case port == 0:
		port = fallbackMetricsPort
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	metricsPort.Store(int64(port))
	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the exporter's listening port, or 0 before
// InitMetrics.
func GetMetricsPort() int {
	return int(metricsPort.Load())
}

func resolvePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
