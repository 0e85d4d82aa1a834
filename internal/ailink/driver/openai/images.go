package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver/compat"
)

const defaultImageModel = "gpt-image-1"

// modelFamily captures what differs between gpt-image and DALL·E requests.
type modelFamily struct {
	// legacy models return URLs unless asked for b64_json and reject
	// output_format and background.
	legacy bool
}

func familyOf(model string) modelFamily {
	return modelFamily{legacy: strings.HasPrefix(model, "dall-e")}
}

// quality maps "auto" onto DALL·E's standard tier.
func (f modelFamily) quality(q string) string {
	q = strings.TrimSpace(q)
	if f.legacy && (q == "" || strings.EqualFold(q, "auto")) {
		return "standard"
	}
	return q
}

func (f modelFamily) strip(req driver.ImageRequest) driver.ImageRequest {
	if f.legacy {
		req.OutputFormat = ""
		req.Background = ""
	}
	return req
}

func (c *Client) GenerateImage(ctx context.Context, req *driver.ImageRequest) (*driver.ImageResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	count, err := compat.ValidateImageRequest(req)
	if err != nil {
		return nil, err
	}

	model := imageModel(req.Model)
	family := familyOf(model)
	shaped := family.strip(*req)
	payload := compat.ImageGenerationRequest{
		Model:        model,
		Prompt:       shaped.Prompt,
		N:            count,
		Size:         strings.TrimSpace(shaped.Size),
		Quality:      family.quality(shaped.Quality),
		OutputFormat: strings.TrimSpace(shaped.OutputFormat),
		Background:   strings.TrimSpace(shaped.Background),
	}
	if family.legacy {
		payload.ResponseFormat = "b64_json"
	}

	body, err := c.PostJSON(ctx, "generate_image", "/images/generations", model, payload)
	if err != nil {
		return nil, err
	}
	return compat.DecodeImages(body, content.ImageType(req.OutputFormat))
}

// EditImage uploads the source image with the prompt as multipart form data.
func (c *Client) EditImage(ctx context.Context, req *driver.ImageEditRequest) (*driver.ImageResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	count, err := compat.ValidateImageRequest(&req.ImageRequest)
	if err != nil {
		return nil, err
	}

	model := imageModel(req.Model)
	edit := *req
	edit.ImageRequest = familyOf(model).strip(req.ImageRequest)

	form, contentType, err := compat.BuildEditForm(&edit, model, count)
	if err != nil {
		return nil, err
	}
	body, err := c.PostMultipart(ctx, "edit_image", "/images/edits", model, contentType, form)
	if err != nil {
		return nil, err
	}
	return compat.DecodeImages(body, content.ImageType(edit.OutputFormat))
}

func imageModel(model string) string {
	if model = strings.TrimSpace(model); model != "" {
		return model
	}
	return defaultImageModel
}
