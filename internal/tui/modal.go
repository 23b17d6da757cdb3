package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is a self-contained modal that owns its own Update/View lifecycle.
// Modals are managed via a stack on App; the topmost modal receives all input
// and renders full-screen.
type Modal interface {
	// ID returns a unique identifier used to deduplicate pushes.
	ID() string
	// Update processes a message. Return pop=true to close the modal.
	Update(msg tea.Msg) (pop bool, cmd tea.Cmd)
	// View renders the modal content for the given terminal dimensions.
	View(width, height int) string
}

// renderModalFrame wraps content in the standard bordered, centered modal.
func renderModalFrame(title, body, status string, width, height int) string {
	modalWidth := max(width-8, 20)
	modalHeight := max(height-4, 6)
	contentWidth := modalWidth - 4
	contentHeight := modalHeight - 4

	contentPane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorGray).
		Render(body)

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorBlue).
		Bold(true).
		Render(title)

	statusBar := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(status)

	modal := lipgloss.JoinVertical(lipgloss.Left, header, contentPane, statusBar)

	finalModal := lipgloss.NewStyle().
		Width(modalWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(modal)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, finalModal)
}

// textModal shows scrollable read-only text (help, item details).
type textModal struct {
	id      string
	title   string
	content string
	keys    KeyMap
	ctx     ModalContext
	vp      viewport.Model
}

func newTextModal(id, title, content string, keys KeyMap, ctx ModalContext) *textModal {
	return &textModal{
		id:      id,
		title:   title,
		content: content,
		keys:    keys,
		ctx:     ctx,
		vp:      viewport.New(0, 0),
	}
}

func (m *textModal) ID() string { return m.id }

func (m *textModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
			return true, nil
		case m.id == helpModalID && key.Matches(msg, m.keys.Help):
			return true, nil
		case key.Matches(msg, m.keys.Home):
			m.vp.GotoTop()
			return false, nil
		case key.Matches(msg, m.keys.End):
			m.vp.GotoBottom()
			return false, nil
		}
	case tea.MouseMsg:
		if m.ctx.ReverseScrollWheel {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				msg.Button = tea.MouseButtonWheelDown
			case tea.MouseButtonWheelDown:
				msg.Button = tea.MouseButtonWheelUp
			}
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return false, cmd
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return false, cmd
}

func (m *textModal) View(width, height int) string {
	m.vp.Width = max(width-12, 10)
	m.vp.Height = max(height-12, 2)
	m.vp.SetContent(lipgloss.NewStyle().Width(m.vp.Width).Render(m.content))
	return renderModalFrame(m.title, m.vp.View(), "↑/↓/Wheel: Scroll | PgUp/PgDn: Page | ESC: Close", width, height)
}

const helpModalID = "help"

func newHelpModal(keys KeyMap, ctx ModalContext) *textModal {
	return newTextModal(helpModalID, "Help", helpContent, keys, ctx)
}

const helpContent = `Stardeck Help

NAVIGATION:
  Tab/Shift+Tab  - Next / previous page
  up/down or k/j - Move selection
  Home/End       - Jump to first / last row
  Enter          - Show details for selected item
  Escape         - Close modal / leave input

GLOBAL:
  r              - Refresh the current page now
  Space          - Pause / resume polling on this page
  ?              - Toggle this help
  L              - Sign out
  q/Ctrl+C       - Quit

MARKET:
  /              - Search materials by name
  c              - Cycle category filter

HISTORY:
  /              - Search events
  t              - Cycle tag filter
  n              - Log a new event
  d              - Delete selected event

USERS:
  n              - Register a user (admin)
  p              - Reset selected user's password (admin)
  P              - Change your own password

DATA:
  Every page polls the backend on its own interval. When a refresh fails the
  last good data stays on screen with a warning banner; press r to retry.
`

// confirmModal asks a yes/no question and runs onConfirm on "y".
type confirmModal struct {
	id        string
	question  string
	keys      KeyMap
	onConfirm func() tea.Cmd
}

func newConfirmModal(id, question string, keys KeyMap, onConfirm func() tea.Cmd) *confirmModal {
	return &confirmModal{id: id, question: question, keys: keys, onConfirm: onConfirm}
}

func (m *confirmModal) ID() string { return m.id }

func (m *confirmModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return false, nil
	}
	switch {
	case key.Matches(k, m.keys.Confirm):
		return true, m.onConfirm()
	case key.Matches(k, m.keys.Escape), k.String() == "n", k.String() == "N":
		return true, nil
	}
	return false, nil
}

func (m *confirmModal) View(width, height int) string {
	body := lipgloss.NewStyle().Padding(1, 2).Render(m.question)
	return renderModalFrame("Confirm", body, "y: Yes | n/ESC: No", width, min(height, 14))
}
