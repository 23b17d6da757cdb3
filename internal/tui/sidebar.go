package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const sidebarWidth = 22

func (a *App) buildSidebarLines() []string {
	lines := make([]string, 0, len(a.pages)+8)

	lines = append(lines, lipgloss.NewStyle().Bold(true).Render("Pages"), "")
	for _, idx := range a.navigable() {
		p := a.pages[idx]
		label := fmt.Sprintf("  %s", p.Title())
		if idx == a.active {
			label = fmt.Sprintf("> %s", p.Title())
		}
		if a.paused[p.ID()] {
			label += " ⏸"
		}
		label = truncate(label, sidebarWidth-4)
		if idx == a.active {
			label = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true).Render(label)
		}
		lines = append(lines, label)
	}

	lines = append(lines, "", lipgloss.NewStyle().Bold(true).Render("Account"), "")
	if u, ok := a.session.User(); ok {
		lines = append(lines, "  "+truncate(u.Username, sidebarWidth-6))
		lines = append(lines, lipgloss.NewStyle().Foreground(ColorGray).Render("  "+u.Role))
	} else {
		lines = append(lines, lipgloss.NewStyle().Foreground(ColorGray).Render("  (signed out)"))
	}
	return lines
}

// renderSidebar renders page navigation and the signed-in user.
func (a *App) renderSidebar(height int) string {
	lines := a.buildSidebarLines()
	if len(lines) > height-2 {
		lines = lines[:max(height-2, 0)]
	}
	return sectionStyle.
		Width(sidebarWidth - 2).
		Height(max(height-2, 1)).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
