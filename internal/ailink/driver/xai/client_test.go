package xai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
)

func TestCompleteDowngradesJSONSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		format := payload["response_format"].(map[string]any)
		require.Equal(t, "json_object", format["type"])
		_, hasSchema := format["json_schema"]
		require.False(t, hasSchema)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model:    "grok-3",
		Messages: []content.Message{content.Text("user", "hi")},
		ResponseFormat: &driver.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &driver.JSONSchema{Name: "x", Schema: map[string]any{"type": "object"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, resp.Content[0].Text)
}

func TestGenerateImageStripsDataURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, defaultImageModel, payload["model"])
		require.Equal(t, "b64_json", payload["response_format"])

		_, _ = w.Write([]byte(`{"created":1,"data":[{"b64_json":"data:image/jpeg;base64,aGVsbG8="}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.GenerateImage(context.Background(), &driver.ImageRequest{Prompt: "a fox"})
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)
	require.Equal(t, content.ContentTypeJPEG, resp.Images[0].Type)
	require.Equal(t, []byte("hello"), resp.Images[0].Data)
}

func TestEditImageUnsupported(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.EditImage(context.Background(), &driver.ImageEditRequest{})

	var unsupported *driver.UnsupportedError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "xai", unsupported.Provider)
}
