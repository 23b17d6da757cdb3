package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
)

// dashboardPage shows the economy summary and in-progress refining jobs.
// Its two views poll independently.
type dashboardPage struct {
	summary *dataView[model.DashboardSummary]
	active  *dataView[[]model.RefiningJob]
}

func newDashboardPage(backend model.EconomyReader, interval time.Duration, log logger.Logger) *dashboardPage {
	return &dashboardPage{
		summary: newDataView("summary", "/dashboard/", interval, log, backend.Dashboard),
		active:  newDataView("active", "/refining/active", interval, log, backend.ActiveRefining),
	}
}

func (p *dashboardPage) ID() string         { return pageDashboard }
func (p *dashboardPage) Title() string      { return "Dashboard" }
func (p *dashboardPage) RequiresAuth() bool { return true }

func (p *dashboardPage) Mount() tea.Cmd {
	return tea.Batch(p.summary.mount(), p.active.mount())
}

func (p *dashboardPage) Unmount() {
	p.summary.unmount()
	p.active.unmount()
}

func (p *dashboardPage) Refresh() tea.Cmd {
	return tea.Batch(p.summary.refresh(), p.active.refresh())
}

func (p *dashboardPage) SetPaused(paused bool) {
	p.summary.setPaused(paused)
	p.active.setPaused(paused)
}

func (p *dashboardPage) Statuses() []viewStatus {
	s, _ := statusesOf(p.summary, p.active)
	return s
}

func (p *dashboardPage) Loading() bool {
	_, l := statusesOf(p.summary, p.active)
	return l
}

func (p *dashboardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if cmd, ok := p.summary.handle(msg); ok {
		return cmd, nil
	}
	if cmd, ok := p.active.handle(msg); ok {
		return cmd, nil
	}
	return nil, nil
}

func (p *dashboardPage) View(width, height int) string {
	cardsHeight := 5
	cards := renderResource(p.summary.snapshot(), width, cardsHeight, resourceContent[model.DashboardSummary]{
		body: func(s model.DashboardSummary) string { return renderSummaryCards(s, width) },
	})

	panelHeight := max(height-lipgloss.Height(cards), 6)
	var panels string
	if width >= 100 {
		half := width / 2
		panels = lipgloss.JoinHorizontal(lipgloss.Top,
			p.renderActivePanel(half, panelHeight),
			p.renderRecentPanel(width-half, panelHeight))
	} else {
		top := panelHeight / 2
		panels = lipgloss.JoinVertical(lipgloss.Left,
			p.renderActivePanel(width, top),
			p.renderRecentPanel(width, panelHeight-top))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards, panels)
}

func renderSummaryCards(s model.DashboardSummary, width int) string {
	cardWidth := max(width/3-2, 14)
	card := func(title, value string) string {
		return sectionStyle.Width(cardWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				chartTitleStyle.Render(title),
				valueStyle.Render(value)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Stock", formatSCU(s.StockTotal)),
		card("Estimated value", formatAUEC(s.EstimatedStockValue)),
		card("Active refining", fmt.Sprintf("%d jobs", s.ActiveRefining)),
	)
}

func (p *dashboardPage) renderActivePanel(width, height int) string {
	innerW, innerH := width-4, height-3
	body := renderResource(p.active.snapshot(), innerW, innerH, resourceContent[[]model.RefiningJob]{
		empty:     func(jobs []model.RefiningJob) bool { return len(jobs) == 0 },
		emptyText: "No refining in progress",
		body: func(jobs []model.RefiningJob) string {
			return renderRefiningJobs(jobs, innerW, innerH)
		},
	})
	return sectionStyle.Width(width - 2).Height(height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, chartTitleStyle.Render("Active refining"), body))
}

func (p *dashboardPage) renderRecentPanel(width, height int) string {
	innerW, innerH := width-4, height-3
	body := renderResource(p.summary.snapshot(), innerW, innerH, resourceContent[model.DashboardSummary]{
		empty:     func(s model.DashboardSummary) bool { return len(s.RefiningHistory) == 0 },
		emptyText: "No completed refining yet",
		body: func(s model.DashboardSummary) string {
			rows := make([]string, 0, len(s.RefiningHistory))
			for _, h := range s.RefiningHistory {
				when := "-"
				if !h.EndedAt.IsZero() {
					when = h.EndedAt.Format("01-02 15:04")
				}
				rows = append(rows, fmt.Sprintf("%-18s %12s  %s",
					truncate(h.Material, 18), formatSCU(h.Quantity), helpStyle.Render(when)))
			}
			if innerH > 0 && len(rows) > innerH {
				rows = rows[:innerH]
			}
			return strings.Join(rows, "\n")
		},
	})
	return sectionStyle.Width(width - 2).Height(height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, chartTitleStyle.Render("Recent refining"), body))
}

// renderRefiningJobs draws one line per job with a progress bar and countdown.
func renderRefiningJobs(jobs []model.RefiningJob, width, height int) string {
	barWidth := max(width-48, 6)
	rows := make([]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, fmt.Sprintf("%-16s %10s %s %7s",
			truncate(j.MaterialName, 16),
			formatSCU(j.Quantity),
			lipgloss.NewStyle().Foreground(ColorGreen).Render(progressBar(j.Progress(), barWidth)),
			formatCountdown(j.RemainingSeconds)))
	}
	if height > 0 && len(rows) > height {
		more := len(rows) - height + 1
		rows = append(rows[:height-1], helpStyle.Render(fmt.Sprintf("… %d more", more)))
	}
	return strings.Join(rows, "\n")
}
