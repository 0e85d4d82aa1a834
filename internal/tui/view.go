package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/editor"
)

const maxValueWidth = 48

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	sel := m.editor.Selection()
	header := titleStyle.Render("genimage") + "  " + statusStyle.Render("mode: "+sel.Mode.String())
	if tmpl, ok := m.editor.Template(); ok && tmpl.Name != "" {
		header += "  " + pathStyle.Render("template: "+tmpl.Name)
	}

	var body string
	switch {
	case m.editingOptions:
		body = activePaneStyle.Render("Options for " + sel.Path + "\n" + m.optionsInput.View())
	case sel.Mode == editor.ModeText:
		body = activePaneStyle.Render(m.text.View())
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.pane(sel.Mode == editor.ModeField, m.fieldsView()),
			m.pane(sel.Mode == editor.ModeSelect, m.optionsView()),
		)
	}

	prompt := m.preview()
	if prompt == "" {
		prompt = "(empty)"
	}
	sections := []string{
		header,
		body,
		paneStyle.Render(pathStyle.Render("prompt ("+m.previewMode+")") + "\n" + prompt),
	}
	if m.translation != "" {
		sections = append(sections, paneStyle.Render(pathStyle.Render("translation")+"\n"+m.translation))
	}
	if m.err != nil {
		sections = append(sections, errorStyle.Render(m.err.Error()))
	} else if m.status != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	sections = append(sections, helpStyle.Render(m.help()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) pane(active bool, content string) string {
	if active {
		return activePaneStyle.Render(content)
	}
	return paneStyle.Render(content)
}

func (m *Model) fieldsView() string {
	fields := m.editor.Fields()
	if len(fields) == 0 {
		return pathStyle.Render("no fields; press ← to edit JSON")
	}

	selected := m.editor.Selection().Path
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		line := fmt.Sprintf("%s  %s", f.Path, truncate(formatValue(f.Value), maxValueWidth))
		if f.Path == selected {
			lines = append(lines, selectedFieldStyle.Render(line))
			continue
		}
		lines = append(lines, fieldStyle.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) optionsView() string {
	sel := m.editor.Selection()
	if sel.Path == "" {
		return pathStyle.Render("no field selected")
	}
	opts := m.editor.CurrentOptions()
	if len(opts) == 0 {
		hint := "no options; o to add"
		if m.pendingOptions {
			hint = "loading options..."
		}
		return pathStyle.Render(sel.Path) + "\n" + statusStyle.Render(hint)
	}

	lines := []string{pathStyle.Render(sel.Path)}
	for i, opt := range opts {
		if sel.Mode == editor.ModeSelect && i == sel.Highlight {
			lines = append(lines, highlightedOptionStyle.Render(opt))
			continue
		}
		lines = append(lines, optionStyle.Render(opt))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) help() string {
	switch {
	case m.editingOptions:
		return "ctrl+s save options • esc cancel"
	case m.editor.Selection().Mode == editor.ModeText:
		return "ctrl+s apply • shift+← back to fields"
	case m.editor.Selection().Mode == editor.ModeSelect:
		return "←/→ choose • enter apply • shift+← back"
	default:
		return "↑/↓ field • → options • ← JSON • a AI options • o edit options • p preview • y copy • g generate • q quit"
	}
}

func formatValue(v any) string {
	if text, ok := document.FormatScalar(v); ok {
		return text
	}
	switch typed := v.(type) {
	case []any:
		return fmt.Sprintf("[%d items]", len(typed))
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
