package content

import "strings"

// ContentType represents supported content types using IANA media types.
type ContentType string

const (
	ContentTypeText ContentType = "text/plain"
	ContentTypeJSON ContentType = "application/json"
	ContentTypePNG  ContentType = "image/png"
	ContentTypeJPEG ContentType = "image/jpeg"
	ContentTypeWebP ContentType = "image/webp"
)

// ContentBlock represents a single piece of content.
type ContentBlock struct {
	Type    ContentType `json:"type"`
	Text    string      `json:"text,omitempty"`
	Data    []byte      `json:"data,omitempty"`
	DataURL string      `json:"data_url,omitempty"`
}

// IsImage reports whether the block carries image bytes.
func (b ContentBlock) IsImage() bool {
	return strings.HasPrefix(string(b.Type), "image/") && len(b.Data) > 0
}

// Message represents a chat message.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Text builds a single-block text message.
func Text(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: ContentTypeText, Text: text}}}
}

// ImageType maps an output format name ("png", "jpeg", "jpg", "webp") to its
// media type. Unknown or empty formats map to PNG.
func ImageType(format string) ContentType {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return ContentTypeJPEG
	case "webp":
		return ContentTypeWebP
	default:
		return ContentTypePNG
	}
}
