// Package tui is the terminal field editor: arrow keys walk the document's
// fields, pick from per-field options, or drop into raw JSON editing, while
// the synthesized prompt and its translation update alongside.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/editor"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/options"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/synth"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/observability"
)

// Options configures a Model.
type Options struct {
	Studio   *engine.Studio
	Document *document.Map
	// Template, when set, is loaded instead of Document together with its
	// option catalog.
	Template *core.Template
	Catalog  *options.Catalog

	OwnerID        string
	TargetLanguage string
	TranslateDelay time.Duration
	PreviewMode    string
}

type optionsMsg struct {
	req    editor.OptionRequest
	values []string
	err    error
}

type translationMsg struct {
	result engine.TranslateResult
	ok     bool
}

type generatedMsg struct {
	result *engine.GenerateResult
	err    error
}

// Model is the bubbletea model for the field editor.
type Model struct {
	studio  *engine.Studio
	editor  *editor.Editor
	session *engine.TranslationSession

	ctx    context.Context
	cancel context.CancelFunc

	owner       string
	language    string
	previewMode string

	text           textarea.Model
	optionsInput   textarea.Model
	editingOptions bool

	translation    string
	status         string
	err            error
	pendingOptions bool
	generating     bool
	quitting       bool

	width  int
	height int

	copyToClipboard func(string) error
}

// New builds the editor model. A nil Studio still edits and previews; AI,
// translation and generation then report that they are not configured.
func New(opts Options) *Model {
	ed := editor.New(opts.Catalog)
	if opts.Template != nil {
		ed.LoadTemplate(*opts.Template)
	} else {
		ed.Load(opts.Document)
	}

	text := textarea.New()
	text.Placeholder = "{ }"
	text.ShowLineNumbers = true
	text.SetHeight(12)
	text.SetWidth(72)

	optionsInput := textarea.New()
	optionsInput.Placeholder = "one option per line"
	optionsInput.ShowLineNumbers = false
	optionsInput.SetHeight(6)
	optionsInput.SetWidth(48)

	studio := opts.Studio
	if studio == nil {
		studio = &engine.Studio{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		studio:          studio,
		session:         studio.NewTranslationSession(opts.TranslateDelay),
		editor:          ed,
		ctx:             ctx,
		cancel:          cancel,
		owner:           strings.TrimSpace(opts.OwnerID),
		language:        opts.TargetLanguage,
		previewMode:     opts.PreviewMode,
		text:            text,
		optionsInput:    optionsInput,
		copyToClipboard: clipboard.WriteAll,
	}
	if m.previewMode == "" {
		m.previewMode = synth.ModeRich
	}
	return m
}

// Editor exposes the underlying state machine.
func (m *Model) Editor() *editor.Editor {
	return m.editor
}

func (m *Model) Init() tea.Cmd {
	return m.scheduleTranslation()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 6; w > 20 {
			m.text.SetWidth(w)
		}
		return m, nil

	case optionsMsg:
		m.pendingOptions = false
		if msg.err != nil {
			m.setError("options", msg.err)
			return m, nil
		}
		if !m.editor.ApplyOptionResult(msg.req, msg.values) {
			m.status = "discarded options for " + msg.req.Path
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("%d options for %s", len(msg.values), msg.req.Path)
		return m, nil

	case translationMsg:
		if !msg.ok {
			return m, nil
		}
		m.translation = msg.result.Text
		if msg.result.Warning != "" {
			m.status = "translation unavailable: " + msg.result.Warning
		}
		return m, nil

	case generatedMsg:
		m.generating = false
		if msg.err != nil {
			m.setError("generate", msg.err)
			return m, nil
		}
		m.err = nil
		m.status = "image saved as " + msg.result.Entry.ID
		if len(msg.result.Warnings) > 0 {
			m.status += " (" + strings.Join(msg.result.Warnings, "; ") + ")"
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	if m.editingOptions {
		return m.handleOptionsInput(msg)
	}

	if m.editor.Selection().Mode == editor.ModeText {
		return m.handleTextMode(msg)
	}

	switch msg.String() {
	case "q":
		if m.editor.Selection().Mode == editor.ModeField {
			return m.quit()
		}
	case "a":
		return m, m.requestOptions()
	case "o":
		return m, m.openOptionsInput()
	case "p":
		m.togglePreview()
		return m, nil
	case "y":
		m.copyPrompt()
		return m, nil
	case "g":
		return m, m.generate()
	}

	in, ok := keyInput(msg, false)
	if !ok {
		return m, nil
	}
	before := m.editor.DocumentText()
	if !m.editor.Handle(in) {
		return m, nil
	}
	if m.editor.Selection().Mode == editor.ModeText {
		m.text.SetValue(m.editor.TextBuffer())
		return m, m.text.Focus()
	}
	if m.editor.DocumentText() != before {
		return m, m.scheduleTranslation()
	}
	return m, nil
}

func (m *Model) handleTextMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlS {
		if err := m.editor.ApplyText(m.text.Value()); err != nil {
			m.setError("document", err)
			return m, nil
		}
		m.err = nil
		m.status = "document updated"
		return m, m.scheduleTranslation()
	}

	if in, ok := keyInput(msg, true); ok && m.editor.Handle(in) {
		m.text.Blur()
		return m, nil
	}

	before := m.text.Value()
	var cmd tea.Cmd
	m.text, cmd = m.text.Update(msg)
	if m.text.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.translateBuffer(m.text.Value()))
}

func (m *Model) handleOptionsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeOptionsInput()
		m.status = "options unchanged"
		return m, nil
	case tea.KeyCtrlS:
		values := m.editor.SetOptionsFromText(m.optionsInput.Value())
		m.closeOptionsInput()
		m.status = fmt.Sprintf("%d options saved", len(values))
		return m, nil
	}

	var cmd tea.Cmd
	m.optionsInput, cmd = m.optionsInput.Update(msg)
	return m, cmd
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.editingOptions:
		m.optionsInput, cmd = m.optionsInput.Update(msg)
	case m.editor.Selection().Mode == editor.ModeText:
		m.text, cmd = m.text.Update(msg)
	}
	return m, cmd
}

func (m *Model) openOptionsInput() tea.Cmd {
	if m.editor.Selection().Path == "" {
		return nil
	}
	m.editingOptions = true
	m.optionsInput.SetValue(strings.Join(m.editor.CurrentOptions(), "\n"))
	return m.optionsInput.Focus()
}

func (m *Model) closeOptionsInput() {
	m.editingOptions = false
	m.optionsInput.Blur()
}

// requestOptions asks the studio for options for the selected field. A
// newer request or a selection change makes the answer stale.
func (m *Model) requestOptions() tea.Cmd {
	req, ok := m.editor.BeginOptionRequest()
	if !ok {
		return nil
	}
	m.pendingOptions = true
	m.status = "asking for options for " + req.Path
	studio, ctx := m.studio, m.ctx
	return func() tea.Msg {
		values, err := studio.SuggestOptions(ctx, req.Path, req.CurrentValue, req.Document)
		return optionsMsg{req: req, values: values, err: err}
	}
}

func (m *Model) scheduleTranslation() tea.Cmd {
	return m.translate(m.editor.Document())
}

// translateBuffer translates unsaved JSON while it parses. An unparsable
// buffer still counts as an edit, so pending work is dropped and the last
// translation stays on screen.
func (m *Model) translateBuffer(text string) tea.Cmd {
	doc, err := document.Parse([]byte(text))
	if err != nil {
		m.session.Touch()
		return nil
	}
	return m.translate(doc)
}

func (m *Model) translate(doc *document.Map) tea.Cmd {
	ticket := m.session.Touch()
	session, ctx, lang := m.session, m.ctx, m.language
	return func() tea.Msg {
		result, ok := session.Run(ctx, ticket, doc, lang)
		return translationMsg{result: result, ok: ok}
	}
}

func (m *Model) generate() tea.Cmd {
	if m.generating {
		return nil
	}
	if m.owner == "" {
		m.status = "set --owner to generate images"
		return nil
	}
	m.generating = true
	m.status = "generating image..."
	studio, ctx := m.studio, m.ctx
	req := engine.GenerateRequest{OwnerID: m.owner, Document: m.editor.Document()}
	return func() tea.Msg {
		result, err := studio.Generate(ctx, req)
		return generatedMsg{result: result, err: err}
	}
}

func (m *Model) togglePreview() {
	if m.previewMode == synth.ModeRich {
		m.previewMode = synth.ModeSimplified
	} else {
		m.previewMode = synth.ModeRich
	}
	m.status = "preview: " + m.previewMode
}

func (m *Model) copyPrompt() {
	prompt := m.preview()
	if prompt == "" {
		m.status = "nothing to copy"
		return
	}
	if err := m.copyToClipboard(prompt); err != nil {
		m.setError("clipboard", err)
		return
	}
	m.status = "prompt copied"
}

func (m *Model) preview() string {
	prompt, err := m.studio.Synthesize(m.editor.Document(), m.previewMode)
	if err != nil {
		return ""
	}
	return prompt
}

func (m *Model) setError(op string, err error) {
	m.err = fmt.Errorf("%s: %w", op, err)
	if observability.CLILogger != nil {
		observability.CLILogger.Debug("Field editor operation failed",
			zap.String("operation", op),
			zap.Error(err))
	}
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.session.Cancel()
	m.cancel()
	return m, tea.Quit
}

// Run starts the editor full screen and returns the model it exited with.
func Run(opts Options) (*Model, error) {
	final, err := tea.NewProgram(New(opts), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	m, _ := final.(*Model)
	return m, nil
}
