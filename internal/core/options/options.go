// Package options keeps the per-field lists of replacement values offered
// by the field editor.
package options

import (
	"context"
	"errors"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
)

// DefaultOptions is offered for any field without stored options.
var DefaultOptions = []string{"Red", "Orange", "Yellow", "Green", "Blue", "Indigo", "Violet", "Black", "White"}

// Catalog maps field paths to ordered option lists. The zero value is ready
// to use.
type Catalog struct {
	entries map[string][]string
}

// NewCatalog returns a catalog seeded with entries.
func NewCatalog(entries map[string][]string) *Catalog {
	c := &Catalog{}
	c.Load(entries)
	return c
}

// OptionsFor returns the stored options for path, or the defaults. The
// returned slice is a copy.
func (c *Catalog) OptionsFor(path string) []string {
	if c != nil {
		if stored := c.entries[path]; len(stored) > 0 {
			return append([]string(nil), stored...)
		}
	}
	return append([]string(nil), DefaultOptions...)
}

// Has reports whether path has stored options.
func (c *Catalog) Has(path string) bool {
	return c != nil && len(c.entries[path]) > 0
}

// SetOptions replaces the options for path. An empty list removes the entry
// so the defaults apply again.
func (c *Catalog) SetOptions(path string, values []string) {
	if len(values) == 0 {
		delete(c.entries, path)
		return
	}
	if c.entries == nil {
		c.entries = map[string][]string{}
	}
	c.entries[path] = append([]string(nil), values...)
}

// SetOptionsFromText stores one option per non-blank line and returns what
// was stored.
func (c *Catalog) SetOptionsFromText(path, text string) []string {
	values := ParseText(text)
	c.SetOptions(path, values)
	return values
}

// Entries returns a copy of every stored entry.
func (c *Catalog) Entries() map[string][]string {
	out := map[string][]string{}
	if c == nil {
		return out
	}
	for path, values := range c.entries {
		out[path] = append([]string(nil), values...)
	}
	return out
}

// Load replaces all entries.
func (c *Catalog) Load(entries map[string][]string) {
	c.entries = map[string][]string{}
	for path, values := range entries {
		c.SetOptions(path, values)
	}
}

// ParseText splits multi-line input into options, dropping blank lines.
func ParseText(text string) []string {
	var values []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			values = append(values, line)
		}
	}
	return values
}

// SuggestRequest describes the field an AI suggestion is wanted for.
type SuggestRequest struct {
	FieldName    string
	FieldPath    string
	CurrentValue string
	Document     *document.Map
}

// Suggester produces candidate values for a field.
type Suggester interface {
	SuggestOptions(ctx context.Context, req SuggestRequest) ([]string, error)
}

// RequestAIOptions asks s for options for path. The result is returned, not
// stored; callers decide whether it is still current. Failures are returned
// as is and never retried.
func (c *Catalog) RequestAIOptions(ctx context.Context, s Suggester, path, currentValue string, doc *document.Map) ([]string, error) {
	if s == nil {
		return nil, errors.New("option suggester not configured")
	}
	name := path
	if idx := strings.LastIndex(path, document.PathSeparator); idx >= 0 {
		name = path[idx+1:]
	}
	return s.SuggestOptions(ctx, SuggestRequest{
		FieldName:    name,
		FieldPath:    path,
		CurrentValue: currentValue,
		Document:     doc,
	})
}
