package errors

import (
	"encoding/json"
	"maps"
	"net/http"
	"strconv"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/metrics"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/server/middleware"
)

// HTTPErrorDetail is the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError maps err with FromError and writes it.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}
	ctx := r.Context()
	env := FromError(ctx, err)
	if env.CorrelationID == "" {
		env = correlate(ctx, env)
	}

	status := HTTPStatusFromEnvelope(env)
	logEnvelope(env, status)
	metrics.RecordError(env.Code, status)
	metrics.RecordErrorByEndpoint(middleware.EndpointLabel(r), env.Code)

	w.Header().Set("Content-Type", "application/json")
	if seconds, ok := env.Context["retry_after_seconds"].(int); ok && seconds > 0 && status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: HTTPErrorDetail{
		Code:      env.Code,
		Message:   env.Message,
		Details:   responseDetails(env),
		RequestID: env.CorrelationID,
	}})
}

// responseDetails merges envelope details with context; details win.
func responseDetails(env *gferrors.ErrorEnvelope) map[string]interface{} {
	details := maps.Clone(env.Context)
	if details == nil {
		details = map[string]interface{}{}
	}
	for key, value := range env.Details {
		details[key] = value
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func logEnvelope(env *gferrors.ErrorEnvelope, status int) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", env.Code),
		zap.Int("http_status", status),
		zap.String("request_id", env.CorrelationID),
	}
	if env.Severity != "" {
		fields = append(fields, zap.String("severity", string(env.Severity)))
	}
	for key, value := range env.Context {
		fields = append(fields, zap.Any(key, value))
	}

	switch env.Severity {
	case gferrors.SeverityCritical, gferrors.SeverityHigh:
		logger.Error(env.Message, fields...)
	case gferrors.SeverityMedium:
		logger.Warn(env.Message, fields...)
	default:
		logger.Info(env.Message, fields...)
	}
}
