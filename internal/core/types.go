package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
)

// ImageMode selects the upstream image endpoint.
type ImageMode string

const (
	ImageModeNew  ImageMode = "new"
	ImageModeEdit ImageMode = "edit"
)

// ParseImageMode accepts "new" or "edit"; empty means new.
func ParseImageMode(raw string) (ImageMode, error) {
	switch ImageMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ImageModeNew:
		return ImageModeNew, nil
	case ImageModeEdit:
		return ImageModeEdit, nil
	default:
		return "", fmt.Errorf("unknown image mode %q", raw)
	}
}

// Style is a named prompt fragment.
type Style struct {
	ID        string              `json:"id"`
	OwnerID   string              `json:"owner_id"`
	Name      string              `json:"name"`
	Prompt    string              `json:"prompt,omitempty"`
	Document  *document.Map       `json:"document,omitempty"`
	Options   map[string][]string `json:"options,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Template is a named structured document with its option catalog.
type Template struct {
	ID        string              `json:"id"`
	OwnerID   string              `json:"owner_id"`
	Name      string              `json:"name"`
	Prompt    string              `json:"prompt,omitempty"`
	Document  *document.Map       `json:"document,omitempty"`
	Options   map[string][]string `json:"options,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Clone returns a deep copy of the template.
func (t Template) Clone() Template {
	out := t
	if t.Document != nil {
		out.Document = t.Document.Clone()
	}
	if t.Options != nil {
		out.Options = make(map[string][]string, len(t.Options))
		for path, values := range t.Options {
			out.Options[path] = append([]string(nil), values...)
		}
	}
	return out
}

// HistoryEntry records one generated image.
type HistoryEntry struct {
	ID         string        `json:"id"`
	OwnerID    string        `json:"owner_id"`
	Prompt     string        `json:"prompt"`
	Mode       ImageMode     `json:"mode"`
	Base64Data string        `json:"base64_data"`
	MimeType   string        `json:"mime_type"`
	Document   *document.Map `json:"document,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
