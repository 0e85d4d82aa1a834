package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerIDStoresTrimmedHeader(t *testing.T) {
	var seen string
	handler := OwnerID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetOwnerID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/styles", nil)
	req.Header.Set(OwnerIDHeader, "  user-1 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "user-1", seen)
}

func TestOwnerIDIgnoresMissingOrOversizedHeader(t *testing.T) {
	var seen string
	handler := OwnerID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetOwnerID(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(OwnerIDHeader, strings.Repeat("x", maxOwnerIDLength+1))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, seen)
}

func TestRecoveryWritesInternalErrorEnvelope(t *testing.T) {
	handler := RequestID(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "req-42", body.Error.RequestID)
	assert.NotContains(t, body.Error.Message, "boom")
}
