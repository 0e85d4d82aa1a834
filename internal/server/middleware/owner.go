package middleware

import (
	"context"
	"net/http"
	"strings"
)

// OwnerIDHeader carries the opaque owner id. Authentication happens upstream;
// the value is trusted as given.
const OwnerIDHeader = "X-Owner-ID"

type ownerIDContextKey struct{}

// maxOwnerIDLength bounds the header value stored with persisted entities.
const maxOwnerIDLength = 128

// OwnerID copies a trimmed X-Owner-ID header into the request context.
// Requests without the header pass through; handlers that need an owner
// reject them.
func OwnerID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerIDHeader))
		if owner == "" || len(owner) > maxOwnerIDLength {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ownerIDContextKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOwnerID returns the owner id set by OwnerID, or "".
func GetOwnerID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	owner, _ := ctx.Value(ownerIDContextKey{}).(string)
	return owner
}
