package compat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/encode"
)

const maxImageCount = 10

// ImageGenerationRequest is the /images/generations request body.
type ImageGenerationRequest struct {
	Model        string `json:"model,omitempty"`
	Prompt       string `json:"prompt"`
	N            int    `json:"n,omitempty"`
	Size         string `json:"size,omitempty"`
	Quality      string `json:"quality,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	Background   string `json:"background,omitempty"`
	// response_format is only understood by DALL·E style models.
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Created      int64  `json:"created"`
	OutputFormat string `json:"output_format,omitempty"`
	Size         string `json:"size,omitempty"`
	Quality      string `json:"quality,omitempty"`
	Data         []struct {
		B64JSON string `json:"b64_json,omitempty"`
		URL     string `json:"url,omitempty"`
	} `json:"data"`
}

// ValidateImageRequest checks prompt and count and returns the count to send.
func ValidateImageRequest(req *driver.ImageRequest) (int, error) {
	if req == nil {
		return 0, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return 0, fmt.Errorf("prompt is required")
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	if count > maxImageCount {
		return 0, fmt.Errorf("count must be between 1 and %d", maxImageCount)
	}
	return count, nil
}

// BuildEditForm encodes an image edit as multipart/form-data and returns
// the body with its content type.
func BuildEditForm(req *driver.ImageEditRequest, model string, count int) ([]byte, string, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, "", fmt.Errorf("image is required")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"model", model},
		{"prompt", req.Prompt},
		{"n", strconv.Itoa(count)},
		{"size", strings.TrimSpace(req.Size)},
		{"quality", strings.TrimSpace(req.Quality)},
		{"output_format", strings.TrimSpace(req.OutputFormat)},
		{"background", strings.TrimSpace(req.Background)},
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", field[0], err)
		}
	}

	mime := strings.TrimSpace(req.ImageMimeType)
	if mime == "" {
		mime = string(content.ContentTypePNG)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="upload.%s"`, extensionFor(mime)))
	header.Set("Content-Type", mime)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("write image part: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf.Bytes(), form.FormDataContentType(), nil
}

// DecodeImages parses an images response. fallback is the media type used
// when the provider does not report an output format.
func DecodeImages(body []byte, fallback content.ContentType) (*driver.ImageResponse, error) {
	var parsed imageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	blocks := make([]content.ContentBlock, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
			// Some providers return a data URL instead of raw base64.
			mime, payload := encode.SplitDataURL(b64)
			decoded, err := encode.DecodeBase64String(payload)
			if err != nil {
				return nil, fmt.Errorf("decode image base64: %w", err)
			}
			blockType := fallback
			switch {
			case mime != "":
				blockType = content.ContentType(mime)
			case parsed.OutputFormat != "":
				blockType = content.ImageType(parsed.OutputFormat)
			}
			blocks = append(blocks, content.ContentBlock{Type: blockType, Data: decoded})
			continue
		}
		if url := strings.TrimSpace(item.URL); url != "" {
			blocks = append(blocks, content.ContentBlock{Type: content.ContentTypeText, Text: url})
		}
	}

	return &driver.ImageResponse{
		Created:      parsed.Created,
		OutputFormat: parsed.OutputFormat,
		Size:         parsed.Size,
		Quality:      parsed.Quality,
		Images:       blocks,
	}, nil
}

func extensionFor(mime string) string {
	switch content.ContentType(mime) {
	case content.ContentTypeJPEG:
		return "jpg"
	case content.ContentTypeWebP:
		return "webp"
	default:
		return "png"
	}
}
