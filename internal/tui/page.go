package tui

import tea "github.com/charmbracelet/bubbletea"

// Page represents a top-level screen in the TUI (dashboard, market, etc.).
// Mount is called each time the page becomes active and Unmount when it is
// left; a page owns the data views it mounts.
type Page interface {
	ID() string
	Title() string
	Mount() tea.Cmd
	Unmount()
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}

// PageNav is returned from Update to request a page switch.
type PageNav struct {
	PageID string
}

// refresher is implemented by pages that support a manual refresh.
type refresher interface {
	Refresh() tea.Cmd
}

// pausable is implemented by pages whose polling can be suspended.
type pausable interface {
	SetPaused(paused bool)
}

// inputCapturer is implemented by pages with text inputs. While Capturing
// reports true, global single-letter keys go to the page instead.
type inputCapturer interface {
	Capturing() bool
}

// statusProvider exposes per-view state for the status line and spinner.
type statusProvider interface {
	Statuses() []viewStatus
	Loading() bool
}

// restricted is implemented by pages that need authentication or the admin role.
type restricted interface {
	RequiresAuth() bool
}

// statusesOf collects view statuses and the loading flag from data views.
func statusesOf(views ...interface {
	status() viewStatus
	loading() bool
}) ([]viewStatus, bool) {
	out := make([]viewStatus, 0, len(views))
	anyLoading := false
	for _, v := range views {
		out = append(out, v.status())
		if v.loading() {
			anyLoading = true
		}
	}
	return out, anyLoading
}
