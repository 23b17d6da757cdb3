package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 120 * time.Millisecond

// renderLoadingPlaceholder renders an animated loading indicator.
// The frame is selected based on the current time so it animates on re-render.
func renderLoadingPlaceholder(width, height int) string {
	frame := spinnerFrames[time.Now().UnixMilli()/spinnerInterval.Milliseconds()%int64(len(spinnerFrames))]

	text := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true).
		Render(frame + " Loading...")

	if width <= 0 || height <= 0 {
		return text
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

// SpinnerTickMsg triggers a re-render for loading spinners.
type SpinnerTickMsg struct{}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg {
		return SpinnerTickMsg{}
	})
}

// handleSpinnerTick re-schedules spinner ticks while the active page is loading.
func (a *App) handleSpinnerTick() tea.Cmd {
	if a.anyViewLoading() {
		return spinnerTick()
	}
	a.spinning = false
	return nil
}

// startSpinnerIfNeeded schedules a spinner tick if the active page is loading
// and no spinner loop is already running.
func (a *App) startSpinnerIfNeeded() tea.Cmd {
	if a.spinning || !a.anyViewLoading() {
		return nil
	}
	a.spinning = true
	return spinnerTick()
}

func (a *App) anyViewLoading() bool {
	p := a.activePage()
	if p == nil {
		return false
	}
	sp, ok := p.(statusProvider)
	if !ok {
		return false
	}
	return sp.Loading()
}
