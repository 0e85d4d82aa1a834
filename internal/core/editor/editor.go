// Package editor implements the keyboard-driven field editor: a state
// machine over a structured document with field, select and text modes.
package editor

import (
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/debounce"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/options"
)

// Mode is the active input mode.
type Mode int

const (
	ModeField Mode = iota
	ModeSelect
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModeField:
		return "field"
	case ModeSelect:
		return "select"
	case ModeText:
		return "text"
	default:
		return "unknown"
	}
}

// Key is a discrete navigation input.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
)

// Input is one keyboard event. InTextInput is set while focus is inside a
// raw text control.
type Input struct {
	Key         Key
	Modifier    bool
	InTextInput bool
}

// Selection is the editor cursor. An empty Path means nothing is selected.
type Selection struct {
	Path      string
	Mode      Mode
	Highlight int
}

// OptionRequest identifies an in-flight AI option request.
type OptionRequest struct {
	ID           uint64
	Path         string
	CurrentValue string
	Document     *document.Map
}

// Editor holds the document being edited and the selection state. It is
// not safe for concurrent use; drive it from a single event loop.
type Editor struct {
	doc      *document.Map
	fields   []document.Field
	catalog  *options.Catalog
	sel      Selection
	template *core.Template
	buffer   string
	requests debounce.Tracker
}

// New returns an editor with an empty document.
func New(catalog *options.Catalog) *Editor {
	if catalog == nil {
		catalog = &options.Catalog{}
	}
	e := &Editor{catalog: catalog}
	e.Load(nil)
	return e
}

// Load replaces the document and selects the first field.
func (e *Editor) Load(doc *document.Map) {
	e.doc = doc.Clone()
	e.fields = document.Enumerate(e.doc)
	e.sel = Selection{Mode: ModeField}
	if len(e.fields) > 0 {
		e.sel.Path = e.fields[0].Path
	}
	e.buffer = e.DocumentText()
	e.requests.Invalidate()
}

// LoadTemplate loads a copy of t together with its option catalog.
func (e *Editor) LoadTemplate(t core.Template) {
	tmpl := t.Clone()
	if tmpl.Document == nil {
		tmpl.Document = document.NewMap()
	}
	e.template = &tmpl
	e.catalog.Load(tmpl.Options)
	e.Load(tmpl.Document)
}

// Reset starts a new empty document and drops any loaded template.
func (e *Editor) Reset() {
	e.template = nil
	e.catalog.Load(nil)
	e.Load(nil)
}

// Template returns a copy of the loaded template, including edits made
// since it was loaded.
func (e *Editor) Template() (core.Template, bool) {
	if e.template == nil {
		return core.Template{}, false
	}
	return e.template.Clone(), true
}

// Document returns a copy of the current document.
func (e *Editor) Document() *document.Map {
	return e.doc.Clone()
}

// Fields returns the enumerated leaves of the current document.
func (e *Editor) Fields() []document.Field {
	return append([]document.Field(nil), e.fields...)
}

// Selection returns the cursor state.
func (e *Editor) Selection() Selection {
	return e.sel
}

// Catalog exposes the option catalog.
func (e *Editor) Catalog() *options.Catalog {
	return e.catalog
}

// CurrentOptions returns the options of the selected field.
func (e *Editor) CurrentOptions() []string {
	if e.sel.Path == "" {
		return nil
	}
	return e.catalog.OptionsFor(e.sel.Path)
}

// CurrentValue renders the selected field's value as text.
func (e *Editor) CurrentValue() string {
	idx := document.FieldIndex(e.fields, e.sel.Path)
	if idx < 0 {
		return ""
	}
	text, _ := document.FormatScalar(e.fields[idx].Value)
	return text
}

// TextBuffer returns the last text handed to ApplyText, or the serialized
// document after a load or commit.
func (e *Editor) TextBuffer() string {
	return e.buffer
}

// DocumentText renders the current document as indented JSON.
func (e *Editor) DocumentText() string {
	text, err := document.MarshalIndent(e.doc)
	if err != nil {
		return "{}"
	}
	return text
}

// Select moves the cursor to path in field mode.
func (e *Editor) Select(path string) error {
	if document.FieldIndex(e.fields, path) < 0 {
		return errdefs.NewNotFound("field", path)
	}
	e.moveTo(path)
	e.sel.Mode = ModeField
	return nil
}

// Highlight sets the highlighted option, clamped to the option range.
func (e *Editor) Highlight(index int) {
	e.sel.Highlight = index
	e.clampHighlight()
}

// SetOptions replaces the options for path.
func (e *Editor) SetOptions(path string, values []string) {
	e.catalog.SetOptions(path, values)
	e.propagate()
	if path == e.sel.Path {
		e.clampHighlight()
	}
}

// SetOptionsFromText replaces the selected field's options from multi-line
// text.
func (e *Editor) SetOptionsFromText(text string) []string {
	if e.sel.Path == "" {
		return nil
	}
	values := options.ParseText(text)
	e.SetOptions(e.sel.Path, values)
	return values
}

// ApplyText replaces the document from edited JSON. On a parse failure the
// document and fields are left untouched and the edit buffer is kept.
func (e *Editor) ApplyText(text string) error {
	e.buffer = text
	doc, err := document.Parse([]byte(text))
	if err != nil {
		return err
	}
	e.doc = doc
	e.refresh()
	e.propagate()
	return nil
}

// BeginOptionRequest starts an AI option request for the selected field.
// Any earlier request becomes stale.
func (e *Editor) BeginOptionRequest() (OptionRequest, bool) {
	if e.sel.Path == "" {
		return OptionRequest{}, false
	}
	return OptionRequest{
		ID:           e.requests.Next(),
		Path:         e.sel.Path,
		CurrentValue: e.CurrentValue(),
		Document:     e.doc.Clone(),
	}, true
}

// ApplyOptionResult stores values for a finished request unless it has
// been superseded or the selection has moved. It reports whether the
// result was applied.
func (e *Editor) ApplyOptionResult(req OptionRequest, values []string) bool {
	if !e.requests.IsLatest(req.ID) || req.Path != e.sel.Path {
		return false
	}
	e.SetOptions(req.Path, values)
	return true
}

func (e *Editor) moveTo(path string) {
	if path != e.sel.Path {
		e.requests.Invalidate()
	}
	e.sel.Path = path
	e.sel.Highlight = 0
}

func (e *Editor) refresh() {
	e.fields = document.Enumerate(e.doc)
	if e.sel.Path != "" && document.FieldIndex(e.fields, e.sel.Path) < 0 {
		e.requests.Invalidate()
		e.sel = Selection{Mode: ModeField}
	}
	e.clampHighlight()
}

func (e *Editor) clampHighlight() {
	opts := e.CurrentOptions()
	switch {
	case len(opts) == 0 || e.sel.Highlight < 0:
		e.sel.Highlight = 0
	case e.sel.Highlight > len(opts)-1:
		e.sel.Highlight = len(opts) - 1
	}
}

func (e *Editor) propagate() {
	if e.template == nil {
		return
	}
	e.template.Document = e.doc.Clone()
	e.template.Options = e.catalog.Entries()
}
