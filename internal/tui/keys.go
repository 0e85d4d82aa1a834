package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/editor"
)

// keyInput translates a terminal key into an editor input. Alt, shift and
// ctrl on the arrow keys all count as the modifier.
func keyInput(msg tea.KeyMsg, inText bool) (editor.Input, bool) {
	in := editor.Input{InTextInput: inText, Modifier: msg.Alt}

	switch msg.Type {
	case tea.KeyUp:
		in.Key = editor.KeyUp
	case tea.KeyDown:
		in.Key = editor.KeyDown
	case tea.KeyLeft:
		in.Key = editor.KeyLeft
	case tea.KeyRight:
		in.Key = editor.KeyRight
	case tea.KeyEnter:
		in.Key = editor.KeyEnter
	case tea.KeyShiftUp, tea.KeyCtrlUp:
		in.Key, in.Modifier = editor.KeyUp, true
	case tea.KeyShiftDown, tea.KeyCtrlDown:
		in.Key, in.Modifier = editor.KeyDown, true
	case tea.KeyShiftLeft, tea.KeyCtrlLeft:
		in.Key, in.Modifier = editor.KeyLeft, true
	case tea.KeyShiftRight, tea.KeyCtrlRight:
		in.Key, in.Modifier = editor.KeyRight, true
	default:
		return editor.Input{}, false
	}
	return in, true
}
