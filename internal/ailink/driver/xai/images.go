package xai

import (
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/compat"
)

const defaultImageModel = "grok-2-image"

// GenerateImage always returns JPEG; size, quality and output format are
// not sent because xAI rejects them.
func (c *Client) GenerateImage(ctx context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("xai client not configured")
	}
	count, err := compat.ValidateImageRequest(req)
	if err != nil {
		return nil, err
	}

	model := cmp.Or(strings.TrimSpace(req.Model), defaultImageModel)
	body, err := c.PostJSON(ctx, "generate_image", "/images/generations", model, compat.ImageGenerationRequest{
		Model:          model,
		Prompt:         req.Prompt,
		N:              count,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, err
	}
	return compat.DecodeImages(body, content.ContentTypeJPEG)
}

func (c *Client) EditImage(context.Context, *driver.ImageEditRequest) (*driver.ImageResponse, error) {
	return nil, &driver.UnsupportedError{Provider: c.Name(), Operation: "image edits"}
}
