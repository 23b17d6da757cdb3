package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ModalContext provides read-only settings to modals.
type ModalContext struct {
	ReverseScrollWheel bool
}

// Action identifies what a page or modal wants the app to do.
type Action int

const (
	ActionPushModal Action = iota
	ActionFlash
)

// ActionMsg lets pages and modals communicate with the app without
// mutating it directly.
type ActionMsg struct {
	Action  Action
	Payload any
}

// flash is a transient status-line message.
type flash struct {
	Text  string
	IsErr bool
	At    time.Time
}

const flashTTL = 30 * time.Second

// actionMsg wraps ActionMsg as a tea.Msg.
func actionMsg(a ActionMsg) tea.Cmd {
	return func() tea.Msg { return a }
}

func pushModal(m Modal) tea.Cmd {
	return actionMsg(ActionMsg{Action: ActionPushModal, Payload: m})
}

func flashInfo(text string) tea.Cmd {
	return actionMsg(ActionMsg{Action: ActionFlash, Payload: flash{Text: text}})
}

func flashError(prefix string, err error) tea.Cmd {
	return actionMsg(ActionMsg{Action: ActionFlash, Payload: flash{Text: prefix + ": " + describeError(err), IsErr: true}})
}
