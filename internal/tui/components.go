package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/poll"
)

// renderBranding renders "Stardeck" with a blue to violet gradient.
func renderBranding() string {
	colors := []string{"#00CAC7", "#00B4D8", "#0096E0", "#2D7FF9", "#5A6BF5", "#7B5CF0", "#9B4DEB", "#B83FE6"}
	var b strings.Builder
	for i, ch := range "Stardeck" {
		b.WriteString(lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i%len(colors)])).
			Bold(true).
			Render(string(ch)))
	}
	return b.String()
}

// sourceHealth classifies a view for the connectivity dot.
type sourceHealth int

const (
	healthUnknown sourceHealth = iota
	healthOK
	healthStale
	healthError
)

func (a *App) viewHealth(s viewStatus) sourceHealth {
	switch {
	case s.Status == poll.Error:
		return healthError
	case s.UpdatedAt.IsZero():
		return healthUnknown
	case s.Interval > 0 && !s.Paused && a.now().Sub(s.UpdatedAt) > 3*s.Interval:
		return healthStale
	default:
		return healthOK
	}
}

func (a *App) pageHealth() (sourceHealth, []viewStatus) {
	sp, ok := a.activePage().(statusProvider)
	if !ok {
		return healthUnknown, nil
	}
	statuses := sp.Statuses()
	worst := healthUnknown
	for _, s := range statuses {
		if h := a.viewHealth(s); h > worst {
			worst = h
		}
	}
	return worst, statuses
}

func renderHealthDot(h sourceHealth) string {
	color := ColorGray
	switch h {
	case healthOK:
		color = lipgloss.Color("#44FF44")
	case healthStale:
		color = lipgloss.Color("#FFAA00")
	case healthError:
		color = lipgloss.Color("#FF4444")
	}
	return lipgloss.NewStyle().Background(ColorNavy).Foreground(color).Render("●")
}

// renderStatusLine renders the status/help line at the bottom of the screen.
func (a *App) renderStatusLine() string {
	baseStyle := lipgloss.NewStyle().
		Background(ColorNavy).
		Foreground(ColorWhite)

	w := a.width
	veryNarrow := w < 60
	narrow := w < 80
	medium := w < 120

	var leftText string
	if p := a.activePage(); p != nil {
		if veryNarrow {
			leftText = p.Title()[:min(5, len(p.Title()))]
		} else {
			leftText = fmt.Sprintf("[%s]", p.Title())
		}
	}

	var statusText string
	p := a.activePage()
	capturing := false
	if ic, ok := p.(inputCapturer); ok {
		capturing = ic.Capturing()
	}
	switch {
	case a.HasModal():
		statusText = "ESC: Close"
	case capturing:
		statusText = "Enter: Apply • ESC: Cancel"
	case p != nil && p.ID() == pageLogin:
		statusText = "Tab: Next field • Enter: Sign in • Ctrl+C: Quit"
	case veryNarrow:
		statusText = "Tab • r • Space • ? • q"
	case narrow:
		statusText = "?: Help • Tab: Page • r: Refresh • q: Quit"
	case medium:
		statusText = "Tab: Page • r: Refresh • Space: Pause • Enter: Details • ?: Help • q: Quit"
	default:
		statusText = "Tab: Next page • r: Refresh • Space: Pause • ↑↓: Select • Enter: Details • L: Sign out • ?: Help • q: Quit"
	}

	var rightParts []string

	if a.flash.Text != "" && a.now().Sub(a.flash.At) < flashTTL {
		st := lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorGreen)
		if a.flash.IsErr {
			st = lipgloss.NewStyle().Background(ColorNavy).Foreground(lipgloss.Color("#FF6666")).Faint(true)
		}
		text := a.flash.Text
		if narrow {
			text = truncate(text, 24)
		}
		rightParts = append(rightParts, st.Render(text))
	}

	if p != nil && a.paused[p.ID()] {
		rightParts = append(rightParts, "⏸ Paused")
	}

	if health, statuses := a.pageHealth(); len(statuses) > 0 && !veryNarrow {
		info := renderHealthDot(health)
		if a.dataSource != "" && !narrow {
			info += " " + a.dataSource
		}
		if !medium {
			var updated []string
			for _, s := range statuses {
				updated = append(updated, fmt.Sprintf("%s %s (%s)", s.ID, formatAge(s.UpdatedAt, a.now()), formatDuration(s.Interval)))
			}
			info += " " + strings.Join(updated, ", ")
		}
		rightParts = append(rightParts, info)
	}

	if w >= 30 {
		rightParts = append(rightParts, renderBranding())
	}
	rightText := strings.Join(rightParts, "  ")

	leftWidth := lipgloss.Width(leftText) + 2
	rightWidth := lipgloss.Width(rightText) + 2
	if leftWidth+rightWidth >= w {
		if w < 20 {
			return baseStyle.Width(max(w, 0)).Render(leftText)
		}
		leftWidth = min(leftWidth, w/3)
		rightWidth = w - leftWidth
		rightText = renderBranding()
		if rightWidth < lipgloss.Width(rightText)+2 {
			rightText = ""
		}
	}
	centerWidth := max(w-leftWidth-rightWidth, 0)

	if lipgloss.Width(leftText) > leftWidth {
		leftText = truncate(leftText, max(leftWidth-1, 0))
	}
	if lipgloss.Width(statusText) > centerWidth {
		statusText = truncate(statusText, max(centerWidth-1, 0))
	}

	leftPart := baseStyle.Align(lipgloss.Left).Width(leftWidth).Render(leftText)
	centerPart := baseStyle.Align(lipgloss.Center).Width(centerWidth).Render(statusText)
	rightPart := baseStyle.Align(lipgloss.Right).Width(rightWidth).Render(rightText)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPart, centerPart, rightPart)
}
