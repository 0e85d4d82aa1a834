// Package metrics names the studio's counters and histograms. Every
// recorder is a no-op until observability.InitMetrics has run.
package metrics

import (
	"time"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
)

// Studio metric names.
const (
	OperationsTotal       = "studio_operations_total"
	OperationsErrorsTotal = "studio_operations_errors_total"
	OperationDuration     = "studio_operation_duration_ms"

	ImagesGeneratedTotal     = "studio_images_generated_total"
	PersistenceWarningsTotal = "studio_persistence_warnings_total"
	TranslationFallbackTotal = "studio_translation_fallback_total"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
)

func count(name string, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, labels)
	}
}

func observe(name string, duration time.Duration, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, duration, labels)
	}
}

func outcome(ok bool, good, bad string) string {
	if ok {
		return good
	}
	return bad
}

// RecordOperation counts one studio operation (decompose, synthesize,
// generate, ...) and its latency.
func RecordOperation(operation string, success bool, duration time.Duration) {
	count(OperationsTotal, map[string]string{
		"operation": operation,
		"status":    outcome(success, "success", "failure"),
	})
	observe(OperationDuration, duration, map[string]string{"operation": operation})
}

func RecordOperationError(operation string, errorCode string) {
	count(OperationsErrorsTotal, map[string]string{
		"operation":  operation,
		"error_code": errorCode,
	})
}

// RecordImageGenerated counts a generated image by mode (new or edit) and provider.
func RecordImageGenerated(mode string, provider string) {
	if provider == "" {
		provider = "unknown"
	}
	count(ImagesGeneratedTotal, map[string]string{"mode": mode, "provider": provider})
}

// RecordPersistenceWarning counts a store failure that was surfaced as a
// warning instead of failing the request.
func RecordPersistenceWarning(entity string) {
	count(PersistenceWarningsTotal, map[string]string{"entity": entity})
}

// RecordTranslationFallback counts translations answered with the original document.
func RecordTranslationFallback() {
	count(TranslationFallbackTotal, nil)
}

func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	count(HealthCheckTotal, map[string]string{
		"check":  checkName,
		"status": outcome(healthy, "healthy", "unhealthy"),
	})
	observe(HealthCheckDuration, duration, map[string]string{"check": checkName})
}

// SetServerStartTime records the server start as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}
