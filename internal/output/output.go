// Package output renders CLI results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format represents an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Write renders v in format. table renders the table form and is only
// consulted for FormatTable; without it tables fall back to JSON.
func Write(w io.Writer, format Format, v any, table func() string) error {
	var (
		rendered string
		err      error
	)
	switch {
	case format == FormatYAML:
		rendered, err = YAML(v)
	case format == FormatTable && table != nil:
		rendered = table()
	default:
		rendered, err = JSON(v, true)
	}
	if err != nil {
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, err = io.WriteString(w, rendered)
	return err
}
