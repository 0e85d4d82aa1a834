// Package synth turns a structured prompt document back into a flat prompt
// string. Each known section key is rendered by a registered formatter;
// everything else goes through the generic walk.
package synth

import (
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
)

const partSeparator = ", "

const (
	ModeSimplified = "simplified"
	ModeRich       = "rich"
)

// Formatter renders one section of a document into the writer.
type Formatter func(w *Writer, key string, value any)

// Synthesizer holds a formatter registry keyed by section name.
type Synthesizer struct {
	name         string
	formatters   map[string]Formatter
	prefixNested bool
}

// Simplified builds the prompt sent to image generation.
var Simplified = NewSimplified()

// Rich builds the human-facing preview with labelled sections.
var Rich = NewRich()

// New returns a synthesizer with an empty registry. When prefixNested is set,
// generic string values below the top level are written as "key: value".
func New(name string, prefixNested bool) *Synthesizer {
	return &Synthesizer{name: name, formatters: map[string]Formatter{}, prefixNested: prefixNested}
}

// NewSimplified returns the registry used for generation prompts.
func NewSimplified() *Synthesizer {
	s := New(ModeSimplified, false)
	s.Register("format", formatFlags)
	s.Register("subject", describe(""))
	s.Register("style", describe(""))
	s.Register("background", describe(""))
	s.Register("mood", describe(""))
	return s
}

// NewRich returns the registry used for previews.
func NewRich() *Synthesizer {
	s := New(ModeRich, true)
	s.Register("format", formatFlags)
	s.Register("subject", describe(""))
	s.Register("style", describe(""))
	s.Register("background", describe("background"))
	s.Register("mood", describe("mood"))
	s.Register("optional_midjourney", midjourneyFlags)
	s.Register("optional_negative_tokens", negativeTokens)
	s.Register("styling_keywords", labeled("keywords"))
	s.Register("quality_flags", labeled("quality"))
	s.Register("attire_policy", labeled("attire"))
	s.Register("hair_tone_lock", hairToneLock)
	s.Register("palette", labeled("palette"))
	s.Register("pose_and_framing", labeled("pose and framing"))
	s.Register("lighting_mood", labeled("lighting"))
	s.Register("typography", labeled("typography"))
	return s
}

// Lookup resolves a synthesizer by mode name.
func Lookup(mode string) (*Synthesizer, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeSimplified:
		return Simplified, true
	case ModeRich:
		return Rich, true
	default:
		return nil, false
	}
}

// Name returns the mode name.
func (s *Synthesizer) Name() string {
	return s.name
}

// Register installs or replaces the formatter for a section key.
func (s *Synthesizer) Register(key string, f Formatter) {
	s.formatters[key] = f
}

// Synthesize renders doc. Parts are split on ", " separators, trimmed,
// de-duplicated in first-occurrence order and joined with ", ". Commas not
// followed by a space stay inside their part.
func (s *Synthesizer) Synthesize(doc *document.Map) string {
	w := &Writer{s: s}
	w.Map(doc)
	return joinParts(w.parts)
}

func joinParts(parts []string) string {
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, piece := range strings.Split(part, partSeparator) {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			if _, ok := seen[piece]; ok {
				continue
			}
			seen[piece] = struct{}{}
			out = append(out, piece)
		}
	}
	return strings.Join(out, partSeparator)
}

// Writer accumulates parts while walking a document.
type Writer struct {
	s     *Synthesizer
	parts []string
	depth int
}

// Add appends a non-blank part.
func (w *Writer) Add(part string) {
	part = strings.TrimSpace(part)
	if part == "" {
		return
	}
	w.parts = append(w.parts, part)
}

// Map walks the keys of m, dispatching to registered formatters.
func (w *Writer) Map(m *document.Map) {
	for _, key := range m.Keys() {
		value, _ := m.Get(key)
		if document.IsEmpty(value) {
			continue
		}
		if f, ok := w.s.formatters[key]; ok {
			f(w, key, value)
			continue
		}
		w.Generic(key, value)
	}
}

// Sequence adds string items, recurses into mapping items and skips other
// scalars.
func (w *Writer) Sequence(items []any) {
	for _, item := range items {
		switch typed := item.(type) {
		case string:
			w.Add(typed)
		case *document.Map:
			w.Map(typed)
		}
	}
}

// Generic is the fallback formatter for keys without a registered rule.
func (w *Writer) Generic(key string, value any) {
	switch typed := value.(type) {
	case *document.Map:
		w.nested(func() { w.Map(typed) })
	case []any:
		w.nested(func() { w.Sequence(typed) })
	default:
		text, ok := document.FormatScalar(typed)
		if !ok || strings.TrimSpace(text) == "" {
			return
		}
		if w.s.prefixNested && w.depth > 0 {
			w.Add(key + ": " + strings.TrimSpace(text))
			return
		}
		w.Add(text)
	}
}

func (w *Writer) nested(fn func()) {
	w.depth++
	defer func() { w.depth-- }()
	fn()
}
