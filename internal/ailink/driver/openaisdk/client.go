// Package openaisdk implements the completion and image drivers on top of
// the official OpenAI Go SDK.
package openaisdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/encode"
)

const (
	providerName      = "openai-sdk"
	defaultImageModel = "gpt-image-1"
)

// Config holds SDK client settings.
type Config struct {
	APIKey     string
	BaseURL    string        // Optional (tests, proxies)
	Timeout    time.Duration // HTTP timeout
	HTTPClient *http.Client  // Optional (tests)
}

// Client implements driver.Driver and driver.ImageDriver with openai-go.
type Client struct {
	client openai.Client
}

// NewClient creates a new SDK-backed client. SDK retries are disabled;
// callers see the first failure.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return &Client{client: openai.NewClient(opts...)}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return providerName
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsImages:     true,
		SupportsImageEdits: true,
		SupportsJSONSchema: true,
	}
}

// Complete sends a chat completion through the SDK.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai-sdk client not configured")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	}
	if rf := req.ResponseFormat; rf != nil {
		switch {
		case rf.JSONSchema != nil:
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
					JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   rf.JSONSchema.Name,
						Strict: openai.Bool(rf.JSONSchema.Strict),
						Schema: rf.JSONSchema.Schema,
					},
				},
			}
		case rf.Type == "json_object":
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			}
		}
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	trace("complete", "/chat/completions", req.Model, start, completion, err)
	if err != nil {
		return nil, mapError("/chat/completions", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	choice := completion.Choices[0]
	return &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: choice.Message.Content}},
		FinishReason: choice.FinishReason,
		Usage: &driver.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

// GenerateImage creates images through the SDK images endpoint.
func (c *Client) GenerateImage(ctx context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("openai-sdk client not configured")
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	model := imageModel(req.Model)
	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  model,
	}
	if req.Count > 0 {
		params.N = openai.Int(int64(req.Count))
	}
	if size := strings.TrimSpace(req.Size); size != "" {
		params.Size = openai.ImageGenerateParamsSize(size)
	}
	if strings.HasPrefix(model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormat("b64_json")
	} else if format := strings.TrimSpace(req.OutputFormat); format != "" {
		params.OutputFormat = openai.ImageGenerateParamsOutputFormat(format)
	}

	start := time.Now()
	resp, err := c.client.Images.Generate(ctx, params)
	trace("generate_image", "/images/generations", model, start, nil, err)
	if err != nil {
		return nil, mapError("/images/generations", err)
	}
	return toImageResponse(resp, req.OutputFormat)
}

// EditImage edits an uploaded image through the SDK images endpoint.
func (c *Client) EditImage(ctx context.Context, req *driver.ImageEditRequest) (*driver.ImageResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("openai-sdk client not configured")
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("image is required")
	}

	mime := strings.TrimSpace(req.ImageMimeType)
	if mime == "" {
		mime = string(content.ContentTypePNG)
	}

	model := imageModel(req.Model)
	params := openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(req.Image), "upload"+extensionFor(mime), mime),
		},
		Prompt: req.Prompt,
		Model:  model,
	}
	if req.Count > 0 {
		params.N = openai.Int(int64(req.Count))
	}
	if size := strings.TrimSpace(req.Size); size != "" {
		params.Size = openai.ImageEditParamsSize(size)
	}

	start := time.Now()
	resp, err := c.client.Images.Edit(ctx, params)
	trace("edit_image", "/images/edits", model, start, nil, err)
	if err != nil {
		return nil, mapError("/images/edits", err)
	}
	return toImageResponse(resp, req.OutputFormat)
}

func convertMessages(messages []content.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		var text strings.Builder
		for _, block := range msg.Content {
			if block.Type != content.ContentTypeText {
				return nil, fmt.Errorf("unsupported content type: %s", block.Type)
			}
			text.WriteString(block.Text)
		}
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(text.String()))
		case "assistant":
			out = append(out, openai.AssistantMessage(text.String()))
		default:
			out = append(out, openai.UserMessage(text.String()))
		}
	}
	return out, nil
}

func toImageResponse(resp *openai.ImagesResponse, requestedFormat string) (*driver.ImageResponse, error) {
	if resp == nil {
		return nil, fmt.Errorf("empty image response")
	}

	format := string(resp.OutputFormat)
	if format == "" {
		format = requestedFormat
	}
	blockType := content.ImageType(format)

	blocks := make([]content.ContentBlock, 0, len(resp.Data))
	for _, item := range resp.Data {
		if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
			_, payload := encode.SplitDataURL(b64)
			decoded, err := encode.DecodeBase64String(payload)
			if err != nil {
				return nil, fmt.Errorf("decode image base64: %w", err)
			}
			blocks = append(blocks, content.ContentBlock{Type: blockType, Data: decoded})
			continue
		}
		if url := strings.TrimSpace(item.URL); url != "" {
			blocks = append(blocks, content.ContentBlock{Type: content.ContentTypeText, Text: url})
		}
	}

	return &driver.ImageResponse{
		Created:      resp.Created,
		OutputFormat: string(resp.OutputFormat),
		Size:         string(resp.Size),
		Quality:      string(resp.Quality),
		Images:       blocks,
	}, nil
}

// mapError converts SDK API errors into driver.ProviderError so the gateway
// maps them like the HTTP drivers.
func mapError(endpoint string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &driver.ProviderError{
			Provider:    providerName,
			Endpoint:    endpoint,
			StatusCode:  apiErr.StatusCode,
			Message:     apiErr.Message,
			RawResponse: []byte(apiErr.RawJSON()),
		}
	}
	return fmt.Errorf("request failed: %w", err)
}

func trace(operation, endpoint, model string, start time.Time, completion *openai.ChatCompletion, err error) {
	if !driver.IsTracingEnabled() {
		return
	}
	entry := driver.TraceEntry{
		Driver:     providerName,
		Operation:  operation,
		Endpoint:   endpoint,
		Method:     http.MethodPost,
		Model:      model,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if completion != nil {
		entry.Response = []byte(completion.RawJSON())
	}
	if err != nil {
		entry.Error = err.Error()
	}
	driver.Trace(entry)
}

func imageModel(model string) string {
	if model = strings.TrimSpace(model); model != "" {
		return model
	}
	return defaultImageModel
}

func extensionFor(mime string) string {
	switch content.ContentType(mime) {
	case content.ContentTypeJPEG:
		return ".jpg"
	case content.ContentTypeWebP:
		return ".webp"
	default:
		return ".png"
	}
}

var (
	_ driver.Driver      = (*Client)(nil)
	_ driver.ImageDriver = (*Client)(nil)
)
