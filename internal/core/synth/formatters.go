package synth

import (
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
)

// formatFlagOrder fixes the flag order: --ar, --style, --quality, --stylize.
var formatFlagOrder = []struct {
	key  string
	flag string
}{
	{"aspectRatio", "--ar"},
	{"style", "--style"},
	{"quality", "--quality"},
	{"stylize", "--stylize"},
}

func formatFlags(w *Writer, key string, value any) {
	section, ok := value.(*document.Map)
	if !ok {
		w.Generic(key, value)
		return
	}

	known := make(map[string]struct{}, len(formatFlagOrder))
	for _, entry := range formatFlagOrder {
		known[entry.key] = struct{}{}
		raw, ok := section.Get(entry.key)
		if !ok {
			continue
		}
		if text, ok := document.FormatScalar(raw); ok && strings.TrimSpace(text) != "" {
			w.Add(entry.flag + " " + strings.TrimSpace(text))
		}
	}

	for _, sub := range section.Keys() {
		if _, ok := known[sub]; ok {
			continue
		}
		raw, _ := section.Get(sub)
		if text, ok := raw.(string); ok && strings.TrimSpace(text) != "" {
			w.Add("--" + sub + " " + strings.TrimSpace(text))
		}
	}
}

// describe renders a section's description, optionally prefixed, then walks
// the remaining sub-keys generically. A bare string counts as the
// description.
func describe(prefix string) Formatter {
	return func(w *Writer, key string, value any) {
		emit := func(text string) {
			text = strings.TrimSpace(text)
			if text == "" {
				return
			}
			if prefix != "" {
				text = prefix + ": " + text
			}
			w.Add(text)
		}

		switch typed := value.(type) {
		case string:
			if key == "subject" || key == "style" || key == "background" {
				emit(typed)
				return
			}
			w.Generic(key, value)
		case *document.Map:
			if raw, ok := typed.Get("description"); ok {
				if text, ok := document.FormatScalar(raw); ok {
					emit(text)
				}
			}
			rest := typed.Clone()
			rest.Delete("description")
			if rest.Len() > 0 {
				w.nested(func() { w.Map(rest) })
			}
		default:
			w.Generic(key, value)
		}
	}
}

func midjourneyFlags(w *Writer, key string, value any) {
	switch typed := value.(type) {
	case *document.Map:
		for _, sub := range typed.Keys() {
			raw, _ := typed.Get(sub)
			if text, ok := document.FormatScalar(raw); ok && strings.TrimSpace(text) != "" {
				w.Add("--" + sub + " " + strings.TrimSpace(text))
			}
		}
	case []any:
		for _, item := range typed {
			if text, ok := document.FormatScalar(item); ok {
				w.Add(text)
			}
		}
	default:
		if text, ok := document.FormatScalar(typed); ok {
			w.Add(text)
		}
	}
}

func negativeTokens(w *Writer, key string, value any) {
	items := collectItems(value)
	if len(items) == 0 {
		return
	}
	w.Add("--no " + strings.Join(items, "; "))
}

func hairToneLock(w *Writer, key string, value any) {
	if locked, ok := value.(bool); ok {
		if locked {
			w.Add("hair tone locked")
		}
		return
	}
	labeled("hair tone locked")(w, key, value)
}

// labeled renders a section as "label: a; b". Sub-mappings render one part
// per sub-key as "label sub key: ...", with description using the bare label.
func labeled(label string) Formatter {
	return func(w *Writer, key string, value any) {
		section, ok := value.(*document.Map)
		if !ok {
			items := collectItems(value)
			if len(items) > 0 {
				w.Add(label + ": " + strings.Join(items, "; "))
			}
			return
		}

		for _, sub := range section.Keys() {
			raw, _ := section.Get(sub)
			items := collectItems(raw)
			if len(items) == 0 {
				continue
			}
			prefix := label
			if sub != "description" {
				prefix = label + " " + strings.ReplaceAll(sub, "_", " ")
			}
			w.Add(prefix + ": " + strings.Join(items, "; "))
		}
	}
}

// collectItems flattens a value into trimmed text items. Values are kept
// as written.
func collectItems(value any) []string {
	var items []string
	var visit func(v any)
	visit = func(v any) {
		switch typed := v.(type) {
		case *document.Map:
			for _, k := range typed.Keys() {
				child, _ := typed.Get(k)
				visit(child)
			}
		case []any:
			for _, item := range typed {
				visit(item)
			}
		default:
			text, ok := document.FormatScalar(typed)
			if !ok {
				return
			}
			if text = strings.TrimSpace(text); text != "" {
				items = append(items, text)
			}
		}
	}
	visit(value)
	return items
}
