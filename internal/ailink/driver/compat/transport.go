// Package compat speaks the OpenAI-compatible HTTP shape shared by the
// openai and xai drivers: chat completions, image generations and image
// edits.
package compat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
)

// Transport posts requests to one provider base URL. Drivers embed it so
// the connection fields are set directly on the client.
type Transport struct {
	Provider   string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewTransport trims the inputs and falls back to defaultBaseURL.
func NewTransport(provider, baseURL, defaultBaseURL, apiKey string) Transport {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = defaultBaseURL
	}
	return Transport{Provider: provider, BaseURL: baseURL, APIKey: strings.TrimSpace(apiKey)}
}

// Chat runs a chat completion. Without schema support, structured requests
// degrade to json_object.
func (t *Transport) Chat(ctx context.Context, req *driver.Request, schemaSupport bool) (*driver.Response, error) {
	payload, err := BuildChatRequest(req, schemaSupport)
	if err != nil {
		return nil, err
	}
	body, err := t.PostJSON(ctx, "complete", "/chat/completions", payload.Model, payload)
	if err != nil {
		return nil, err
	}
	return DecodeChatResponse(body)
}

// PostJSON encodes payload and posts it to path.
func (t *Transport) PostJSON(ctx context.Context, operation, path, model string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return t.do(ctx, call{operation: operation, path: path, model: model, contentType: "application/json", body: body})
}

// PostMultipart posts a prepared multipart body to path.
func (t *Transport) PostMultipart(ctx context.Context, operation, path, model, contentType string, body []byte) ([]byte, error) {
	return t.do(ctx, call{operation: operation, path: path, model: model, contentType: contentType, body: body})
}

type call struct {
	operation   string
	path        string
	model       string
	contentType string
	body        []byte
}

func (t *Transport) do(ctx context.Context, c call) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("client not configured")
	}
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	url := strings.TrimRight(t.BaseURL, "/") + c.path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(c.body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.APIKey)
	httpReq.Header.Set("Content-Type", c.contentType)

	trace := driver.TraceEntry{
		Driver:      t.Provider,
		Operation:   c.operation,
		Endpoint:    url,
		Method:      http.MethodPost,
		Model:       c.model,
		RequestBody: c.body,
	}
	defer func(start time.Time) {
		trace.DurationMs = time.Since(start).Milliseconds()
		driver.Trace(trace)
	}(time.Now())

	respBody, status, err := t.roundTrip(httpReq)
	if err != nil {
		trace.Error = err.Error()
		return nil, err
	}
	trace.StatusCode = status
	trace.Response = respBody

	if status/100 != 2 {
		return nil, &driver.ProviderError{
			Provider:    t.Provider,
			Endpoint:    c.path,
			StatusCode:  status,
			Message:     strings.TrimSpace(string(respBody)),
			RawResponse: respBody,
		}
	}
	return respBody, nil
}

func (t *Transport) roundTrip(req *http.Request) ([]byte, int, error) {
	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
