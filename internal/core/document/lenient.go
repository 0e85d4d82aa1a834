package document

import (
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

// StripCodeFences removes a surrounding ``` fence, if present, from model
// output.
func StripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return strings.Trim(trimmed, "`")
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Embedded returns the substring from the first open to the last close
// delimiter, or "" when no such span exists.
func Embedded(content string, open, close byte) string {
	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, close)
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// ParseLenient decodes a JSON object from model output. Code fences are
// stripped and, when the text is not valid JSON, the outermost {...} span
// is tried instead.
func ParseLenient(content string) (*Map, error) {
	cleaned := StripCodeFences(content)
	doc, err := Parse([]byte(cleaned))
	if err == nil {
		return doc, nil
	}
	if candidate := Embedded(cleaned, '{', '}'); candidate != "" && candidate != cleaned {
		if embedded, embeddedErr := Parse([]byte(candidate)); embeddedErr == nil {
			return embedded, nil
		}
	}
	if errdefs.IsParse(err) {
		return nil, err
	}
	return nil, errdefs.NewParse("document", err)
}
