package editor

import (
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
)

// Handle applies one input and reports whether it was consumed. Inputs
// arriving while a text control has focus are ignored unless the modifier
// is held.
func (e *Editor) Handle(in Input) bool {
	if in.InTextInput && !in.Modifier {
		return false
	}

	switch e.sel.Mode {
	case ModeField:
		return e.handleField(in)
	case ModeSelect:
		return e.handleSelect(in)
	case ModeText:
		return e.handleText(in)
	default:
		return false
	}
}

func (e *Editor) handleField(in Input) bool {
	switch in.Key {
	case KeyUp:
		if in.Modifier {
			return false
		}
		if idx := document.FieldIndex(e.fields, e.sel.Path); idx > 0 {
			e.moveTo(e.fields[idx-1].Path)
		}
		return true
	case KeyDown:
		if in.Modifier {
			return false
		}
		idx := document.FieldIndex(e.fields, e.sel.Path)
		switch {
		case idx < 0 && len(e.fields) > 0:
			e.moveTo(e.fields[0].Path)
		case idx >= 0 && idx < len(e.fields)-1:
			e.moveTo(e.fields[idx+1].Path)
		}
		return true
	case KeyRight:
		if e.sel.Path == "" {
			return false
		}
		e.sel.Mode = ModeSelect
		e.sel.Highlight = 0
		current := e.CurrentValue()
		for i, opt := range e.CurrentOptions() {
			if opt == current {
				e.sel.Highlight = i
				break
			}
		}
		return true
	case KeyLeft:
		e.sel.Mode = ModeText
		return true
	default:
		return false
	}
}

func (e *Editor) handleSelect(in Input) bool {
	switch in.Key {
	case KeyRight:
		e.Highlight(e.sel.Highlight + 1)
		return true
	case KeyLeft:
		if in.Modifier {
			e.sel.Mode = ModeField
			return true
		}
		e.Highlight(e.sel.Highlight - 1)
		return true
	case KeyEnter:
		e.Commit()
		return true
	default:
		return false
	}
}

func (e *Editor) handleText(in Input) bool {
	if in.Key == KeyLeft && in.Modifier {
		e.sel.Mode = ModeField
		return true
	}
	return false
}

// Commit writes the highlighted option into the document at the selected
// path. It is a no-op without a selection or options.
func (e *Editor) Commit() bool {
	if e.sel.Path == "" {
		return false
	}
	opts := e.CurrentOptions()
	if len(opts) == 0 {
		return false
	}
	e.clampHighlight()
	e.doc = document.SetAtPath(e.doc, e.sel.Path, opts[e.sel.Highlight])
	e.refresh()
	e.buffer = e.DocumentText()
	e.propagate()
	return true
}
