package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestIDHeader is read from requests and echoed on every response.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestID stores a request id in the context and echoes it back. chi's
// RequestID middleware wins when mounted earlier; otherwise a well-formed
// X-Request-ID is reused and anything else is replaced with a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id == "" {
			id = acceptRequestID(r.Header.Get(RequestIDHeader))
		}
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// acceptRequestID returns raw when it is short printable ASCII without
// spaces, and "" otherwise. Ids end up in logs and error bodies.
func acceptRequestID(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxRequestIDLength {
		return ""
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] <= ' ' || raw[i] > '~' {
			return ""
		}
	}
	return raw
}

// GetRequestID returns the id stored by RequestID, then chi's, then "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return middleware.GetReqID(ctx)
}
