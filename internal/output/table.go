package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
)

const (
	timeLayout  = "2006-01-02 15:04"
	promptWidth = 60
)

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

// FieldsTable renders enumerated document fields.
func FieldsTable(fields []document.Field) string {
	t := newTable(table.Row{"Path", "Value"})
	for _, f := range fields {
		t.AppendRow(table.Row{f.Path, truncate(valueText(f.Value), promptWidth)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d fields", len(fields))})
	return t.Render()
}

// OptionsTable renders a field's candidate values.
func OptionsTable(path string, values []string) string {
	t := newTable(table.Row{"#", path})
	for i, v := range values {
		t.AppendRow(table.Row{i + 1, v})
	}
	return t.Render()
}

// HistoryTable renders generated images, newest first as stored.
func HistoryTable(entries []core.HistoryEntry) string {
	t := newTable(table.Row{"ID", "Created", "Mode", "Type", "Prompt"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.ID,
			e.CreatedAt.Local().Format(timeLayout),
			string(e.Mode),
			e.MimeType,
			truncate(e.Prompt, promptWidth),
		})
	}
	return t.Render()
}

// StylesTable renders saved styles.
func StylesTable(styles []core.Style) string {
	t := newTable(table.Row{"ID", "Name", "Created", "Prompt"})
	for _, s := range styles {
		prompt := s.Prompt
		if strings.TrimSpace(prompt) == "" && s.Document != nil {
			prompt = fmt.Sprintf("(document, %d fields)", len(document.Enumerate(s.Document)))
		}
		t.AppendRow(table.Row{s.ID, s.Name, s.CreatedAt.Local().Format(timeLayout), truncate(prompt, promptWidth)})
	}
	return t.Render()
}

// TemplatesTable renders saved templates.
func TemplatesTable(templates []core.Template) string {
	t := newTable(table.Row{"ID", "Name", "Created", "Fields", "Options"})
	for _, tmpl := range templates {
		t.AppendRow(table.Row{
			tmpl.ID,
			tmpl.Name,
			tmpl.CreatedAt.Local().Format(timeLayout),
			len(document.Enumerate(tmpl.Document)),
			len(tmpl.Options),
		})
	}
	return t.Render()
}

func valueText(v any) string {
	if text, ok := document.FormatScalar(v); ok {
		return text
	}
	if items, ok := v.([]any); ok {
		return fmt.Sprintf("[%d items]", len(items))
	}
	return fmt.Sprintf("%v", v)
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
