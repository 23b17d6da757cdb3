package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
)

const (
	countdownStep       = time.Second
	refiningHistorySize = 50
)

// countdownTickMsg advances local countdowns between polls.
type countdownTickMsg struct {
	gen int
}

// refiningPage shows live refining countdowns and completed jobs. The active
// list is re-synced from the backend on its interval and decremented locally
// once per second in between.
type refiningPage struct {
	active  *dataView[[]model.RefiningJob]
	history *dataView[[]model.CompletedRefiningJob]
	gen     int
}

func newRefiningPage(backend model.EconomyReader, interval, historyInterval time.Duration, log logger.Logger) *refiningPage {
	fetchActive := func(ctx context.Context) ([]model.RefiningJob, error) {
		jobs, err := backend.ActiveRefining(ctx)
		if err != nil {
			return nil, err
		}
		return runningJobs(jobs), nil
	}
	fetchHistory := func(ctx context.Context) ([]model.CompletedRefiningJob, error) {
		return backend.RefiningHistory(ctx, refiningHistorySize, 0)
	}
	return &refiningPage{
		active:  newDataView("refining", "/refining/active", interval, log, fetchActive),
		history: newDataView("completed", "/refining/history", historyInterval, log, fetchHistory),
	}
}

// runningJobs drops jobs that have already finished.
func runningJobs(jobs []model.RefiningJob) []model.RefiningJob {
	out := make([]model.RefiningJob, 0, len(jobs))
	for _, j := range jobs {
		if j.RemainingSeconds > 0 {
			out = append(out, j)
		}
	}
	return out
}

// tickJobs decrements every countdown by one step and drops finished jobs.
func tickJobs(jobs []model.RefiningJob) []model.RefiningJob {
	out := make([]model.RefiningJob, 0, len(jobs))
	for _, j := range jobs {
		j.RemainingSeconds = max(j.RemainingSeconds-int(countdownStep/time.Second), 0)
		if j.RemainingSeconds > 0 {
			out = append(out, j)
		}
	}
	return out
}

func (p *refiningPage) ID() string         { return pageRefining }
func (p *refiningPage) Title() string      { return "Refining" }
func (p *refiningPage) RequiresAuth() bool { return true }

func (p *refiningPage) Mount() tea.Cmd {
	p.gen++
	return tea.Batch(p.active.mount(), p.history.mount(), p.scheduleCountdown())
}

func (p *refiningPage) Unmount() {
	p.gen++
	p.active.unmount()
	p.history.unmount()
}

func (p *refiningPage) Refresh() tea.Cmd {
	return tea.Batch(p.active.refresh(), p.history.refresh())
}

func (p *refiningPage) SetPaused(paused bool) {
	p.active.setPaused(paused)
	p.history.setPaused(paused)
}

func (p *refiningPage) Statuses() []viewStatus {
	s, _ := statusesOf(p.active, p.history)
	return s
}

func (p *refiningPage) Loading() bool {
	_, l := statusesOf(p.active, p.history)
	return l
}

func (p *refiningPage) scheduleCountdown() tea.Cmd {
	gen := p.gen
	return tea.Tick(countdownStep, func(time.Time) tea.Msg {
		return countdownTickMsg{gen: gen}
	})
}

func (p *refiningPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if m, ok := msg.(countdownTickMsg); ok {
		if m.gen != p.gen {
			return nil, nil
		}
		p.active.res.Update(tickJobs)
		return p.scheduleCountdown(), nil
	}
	if cmd, ok := p.active.handle(msg); ok {
		return cmd, nil
	}
	if cmd, ok := p.history.handle(msg); ok {
		return cmd, nil
	}
	return nil, nil
}

func (p *refiningPage) View(width, height int) string {
	activeHeight := max(height/2, 6)
	historyHeight := max(height-activeHeight, 6)

	innerW := width - 4
	active := renderResource(p.active.snapshot(), innerW, activeHeight-3, resourceContent[[]model.RefiningJob]{
		empty:     func(jobs []model.RefiningJob) bool { return len(jobs) == 0 },
		emptyText: "No refining in progress",
		body: func(jobs []model.RefiningJob) string {
			return renderRefiningJobs(jobs, innerW, activeHeight-3)
		},
	})

	history := renderResource(p.history.snapshot(), innerW, historyHeight-3, resourceContent[[]model.CompletedRefiningJob]{
		empty:     func(jobs []model.CompletedRefiningJob) bool { return len(jobs) == 0 },
		emptyText: "No completed refining jobs",
		body: func(jobs []model.CompletedRefiningJob) string {
			return renderCompletedJobs(jobs, historyHeight-3)
		},
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Width(width-2).Height(activeHeight-2).Render(
			lipgloss.JoinVertical(lipgloss.Left, chartTitleStyle.Render("Refining in progress"), active)),
		sectionStyle.Width(width-2).Height(historyHeight-2).Render(
			lipgloss.JoinVertical(lipgloss.Left, chartTitleStyle.Render("Completed"), history)),
	)
}

func renderCompletedJobs(jobs []model.CompletedRefiningJob, height int) string {
	rows := []string{headerRowStyle.Render(fmt.Sprintf("%-18s %12s %8s  %s", "Material", "Quantity", "Duration", "Completed"))}
	for _, j := range jobs {
		completed := "-"
		if !j.CompletedAt.IsZero() {
			completed = j.CompletedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, fmt.Sprintf("%-18s %12s %7dm  %s",
			truncate(j.Material, 18), formatSCU(j.Quantity), j.DurationMinutes, completed))
	}
	if height > 0 && len(rows) > height {
		rows = rows[:height]
	}
	return strings.Join(rows, "\n")
}
