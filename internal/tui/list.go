package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// listCursor tracks a selection and scroll offset over n rows.
type listCursor struct {
	cursor int
	offset int
}

func (l *listCursor) clamp(n int) {
	if n <= 0 {
		l.cursor, l.offset = 0, 0
		return
	}
	l.cursor = min(max(l.cursor, 0), n-1)
	l.offset = min(max(l.offset, 0), l.cursor)
}

func (l *listCursor) move(delta, n int) {
	l.cursor += delta
	l.clamp(n)
}

// handleKey applies navigation keys and reports whether msg was one.
func (l *listCursor) handleKey(keys KeyMap, msg tea.KeyMsg, n int) bool {
	switch {
	case key.Matches(msg, keys.Up):
		l.move(-1, n)
	case key.Matches(msg, keys.Down):
		l.move(1, n)
	case key.Matches(msg, keys.Home):
		l.cursor = 0
		l.clamp(n)
	case key.Matches(msg, keys.End):
		l.cursor = n - 1
		l.clamp(n)
	default:
		return false
	}
	return true
}

// window returns the [start, end) rows to draw in height lines, keeping the
// cursor visible.
func (l *listCursor) window(n, height int) (int, int) {
	if height <= 0 || n == 0 {
		return 0, 0
	}
	l.clamp(n)
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+height {
		l.offset = l.cursor - height + 1
	}
	end := min(l.offset+height, n)
	return l.offset, end
}
