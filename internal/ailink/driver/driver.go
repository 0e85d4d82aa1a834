package driver

import (
	"context"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "openai").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// ImageDriver is implemented by drivers that can produce images.
type ImageDriver interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
	EditImage(ctx context.Context, req *ImageEditRequest) (*ImageResponse, error)
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsImages     bool
	SupportsImageEdits bool
	SupportsJSONSchema bool
	SupportedModels    []string
}

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type       string      `json:"type"` // "text", "json_object", "json_schema"
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema is the structured-output contract sent with json_schema responses.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []content.Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
	Metadata       map[string]string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
}

// ImageRequest asks for newly generated images.
type ImageRequest struct {
	Model        string
	Prompt       string
	Count        int
	Size         string
	Quality      string
	OutputFormat string
	Background   string
}

// ImageEditRequest asks for an edit of an uploaded image.
type ImageEditRequest struct {
	ImageRequest
	Image         []byte
	ImageMimeType string
}

// ImageResponse carries decoded images. Each block's Type is the image mime
// type; URL-only results arrive as text/plain blocks.
type ImageResponse struct {
	Created      int64
	OutputFormat string
	Size         string
	Quality      string
	Images       []content.ContentBlock
}
