package ailink

import (
	"errors"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/content"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/prompt"
)

// renderMessages expands a prompt definition into the system message, the
// few-shot pairs and the final user message.
func renderMessages(def *prompt.Prompt, vars map[string]string) ([]content.Message, error) {
	if def == nil {
		return nil, errors.New("prompt is required")
	}

	system := expandTemplate(def.Config.SystemTemplate, vars)
	if strings.TrimSpace(system) == "" {
		return nil, errors.New("system prompt is required")
	}
	userTemplate := def.Config.UserTemplate
	if userTemplate == "" {
		userTemplate = "{{input}}"
	}

	messages := []content.Message{content.Text("system", system)}
	for _, ex := range def.Config.Examples {
		messages = append(messages, content.Text("user", ex.User), content.Text("assistant", ex.Assistant))
	}
	return append(messages, content.Text("user", expandTemplate(userTemplate, vars))), nil
}

// expandTemplate substitutes {{name}} placeholders and resolves
// {{#if name}}...{{else}}...{{/if}} blocks in a single pass. A block is
// taken when its variable is set and not blank. Substituted values are
// never re-scanned, so documents containing braces pass through intact.
// Unknown placeholders and unterminated blocks are kept verbatim.
func expandTemplate(src string, vars map[string]string) string {
	var out strings.Builder
	for src != "" {
		open := strings.Index(src, "{{")
		if open < 0 {
			break
		}
		end := strings.Index(src[open:], "}}")
		if end < 0 {
			break
		}
		end += open

		out.WriteString(src[:open])
		tag := strings.TrimSpace(src[open+2 : end])
		rest := src[end+2:]

		if name, ok := conditionalVar(tag); ok {
			then, otherwise, after, closed := splitConditional(rest)
			if !closed {
				out.WriteString(src[open:])
				return out.String()
			}
			if strings.TrimSpace(vars[name]) != "" {
				out.WriteString(expandTemplate(then, vars))
			} else {
				out.WriteString(expandTemplate(otherwise, vars))
			}
			src = after
			continue
		}

		if value, ok := vars[tag]; ok {
			out.WriteString(value)
		} else {
			out.WriteString(src[open : end+2])
		}
		src = rest
	}
	out.WriteString(src)
	return out.String()
}

func conditionalVar(tag string) (string, bool) {
	name, ok := strings.CutPrefix(tag, "#if")
	if !ok || (name != "" && name[0] != ' ' && name[0] != '\t') {
		return "", false
	}
	return strings.TrimSpace(name), true
}

// splitConditional finds the {{/if}} matching an already consumed {{#if}}
// and returns the branch bodies plus the text after the block.
func splitConditional(src string) (then, otherwise, after string, closed bool) {
	depth := 0
	elseAt, elseEnd := -1, -1
	for pos := 0; ; {
		open := strings.Index(src[pos:], "{{")
		if open < 0 {
			return "", "", "", false
		}
		open += pos
		end := strings.Index(src[open:], "}}")
		if end < 0 {
			return "", "", "", false
		}
		end += open
		pos = end + 2

		tag := strings.TrimSpace(src[open+2 : end])
		if _, nested := conditionalVar(tag); nested {
			depth++
			continue
		}
		switch {
		case tag == "/if" && depth > 0:
			depth--
		case tag == "/if":
			if elseAt < 0 {
				return src[:open], "", src[pos:], true
			}
			return src[:elseAt], src[elseEnd:open], src[pos:], true
		case tag == "else" && depth == 0 && elseAt < 0:
			elseAt, elseEnd = open, pos
		}
	}
}

// extractContent joins the text blocks of a response.
func extractContent(resp *driver.Response) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if !block.IsImage() {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// temperatureHint reads provider_hints.temperature when present.
func temperatureHint(def *prompt.Prompt) *float64 {
	if def == nil {
		return nil
	}
	var value float64
	switch typed := def.Config.ProviderHints["temperature"].(type) {
	case float64:
		value = typed
	case int:
		value = float64(typed)
	default:
		return nil
	}
	return &value
}
