package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/metrics"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
)

// ErrorResponse is the API error body. internal/errors writes the same
// shape but imports this package, so Recovery encodes its own.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Recovery turns a handler panic into a 500 INTERNAL_ERROR body. The panic
// value is logged with the stack but never returned to the caller.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", "internal server error").
				WithCorrelationID(GetRequestID(r.Context()))
			envelope, _ = envelope.WithSeverity(errors.SeverityCritical)

			metrics.RecordPanic()
			if logger := observability.ServerLogger; logger != nil {
				logger.Error("Recovered from handler panic",
					zap.String("panic", fmt.Sprint(recovered)),
					zap.String("method", r.Method),
					zap.String("endpoint", EndpointLabel(r)),
					zap.String("request_id", envelope.CorrelationID),
					zap.String("severity", string(envelope.Severity)),
					zap.ByteString("stack_trace", debug.Stack()))
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{
				Code:      envelope.Code,
				Message:   envelope.Message,
				RequestID: envelope.CorrelationID,
			}})
		}()

		next.ServeHTTP(w, r)
	})
}
