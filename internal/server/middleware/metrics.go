package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
)

// statusRecorder captures the status code and body size written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// EndpointLabel returns the chi route pattern so ids in paths such as
// /api/v1/styles/{id} never become label values.
func EndpointLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case path == "/version", path == "/metrics", path == "/":
		return path
	default:
		return "/unknown"
	}
}

// areaLabel groups API routes by studio surface: prompts, options,
// documents, images, history, styles or templates.
func areaLabel(endpoint string) string {
	rest, ok := strings.CutPrefix(endpoint, "/api/v1/")
	if !ok {
		return "system"
	}
	area, _, _ := strings.Cut(rest, "/")
	if area == "" || area == "*" {
		return "api"
	}
	return area
}

// RequestMetrics emits request counters, latency and size gauges, then logs
// the request. Owner ids are logged; metrics only record whether one was sent.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		endpoint := EndpointLabel(r)
		owner := GetOwnerID(r.Context())
		requestSize := max(r.ContentLength, 0)
		emitRequestMetrics(r.Method, endpoint, owner != "", rec.status, duration, requestSize, rec.size)

		if logger := observability.ServerLogger; logger != nil {
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.status),
				zap.Duration("duration", duration),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", rec.size),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("owner_id", owner),
			}
			if rec.status >= http.StatusInternalServerError {
				logger.Warn("HTTP request failed", fields...)
			} else {
				logger.Info("HTTP request completed", fields...)
			}
		}
	})
}

func emitRequestMetrics(method, endpoint string, hasOwner bool, status int, duration time.Duration, requestSize, responseSize int64) {
	sys := observability.TelemetrySystem
	labels := map[string]string{
		"method":    method,
		"endpoint":  endpoint,
		"area":      areaLabel(endpoint),
		"status":    strconv.Itoa(status),
		"has_owner": strconv.FormatBool(hasOwner),
	}
	sizeLabels := map[string]string{"method": method, "endpoint": endpoint}

	_ = sys.Counter("http_requests_total", 1, labels)
	_ = sys.Histogram("http_request_duration_ms", duration, labels)
	// Image edits upload the source image, so request size matters here.
	_ = sys.Gauge("http_request_size_bytes", float64(requestSize), sizeLabels)
	_ = sys.Gauge("http_response_size_bytes", float64(responseSize), sizeLabels)

	if status >= http.StatusBadRequest {
		errorType := "client_error"
		if status >= http.StatusInternalServerError {
			errorType = "server_error"
		}
		_ = sys.Counter("http_errors_total", 1, map[string]string{
			"method":     method,
			"endpoint":   endpoint,
			"status":     strconv.Itoa(status),
			"error_type": errorType,
		})
	}
}
