package options

import (
	"errors"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

var errNoArray = errors.New("no option array in response")

// ExtractOptions pulls a list of strings out of a model response. Accepted
// shapes, in order: a bare array, an object with an "options" array, an
// object with a "choices" array, or the first array-valued property. Text
// that is not valid JSON falls back to the outermost [...] span.
func ExtractOptions(raw string) ([]string, error) {
	cleaned := document.StripCodeFences(raw)

	value, err := document.ParseValue([]byte(cleaned))
	if err != nil {
		candidate := document.Embedded(cleaned, '[', ']')
		if candidate == "" {
			return nil, errdefs.NewParse("options", err)
		}
		embedded, embeddedErr := document.ParseValue([]byte(candidate))
		if embeddedErr != nil {
			return nil, errdefs.NewParse("options", embeddedErr)
		}
		items, ok := embedded.([]any)
		if !ok {
			return nil, errdefs.NewParse("options", errNoArray)
		}
		return toStrings(items), nil
	}

	items, ok := locateArray(value)
	if !ok {
		return nil, errdefs.NewParse("options", errNoArray)
	}
	return toStrings(items), nil
}

func locateArray(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case *document.Map:
		for _, key := range []string{"options", "choices"} {
			if raw, ok := typed.Get(key); ok {
				if items, ok := raw.([]any); ok {
					return items, true
				}
			}
		}
		for _, key := range typed.Keys() {
			raw, _ := typed.Get(key)
			if items, ok := raw.([]any); ok {
				return items, true
			}
		}
	}
	return nil, false
}

func toStrings(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := document.FormatScalar(item)
		if !ok {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}
