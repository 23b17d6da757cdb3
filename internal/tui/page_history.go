package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
)

const allTags = ""

// mutationDoneMsg reports the outcome of a write issued from a page.
type mutationDoneMsg struct {
	pageID string
	op     string
	err    error
}

func mutationCmd(pageID, op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg{pageID: pageID, op: op, err: fn(context.Background())}
	}
}

// historyPage lists logged events with search, tag filter, create and delete.
type historyPage struct {
	backend  model.HistoryStore
	keys     KeyMap
	modalCtx ModalContext
	log      logger.Logger

	events *dataView[[]model.HistoryEvent]
	tags   *dataView[[]string]
	crew   *dataView[[]model.CrewMember]

	filter    model.HistoryFilter
	search    textinput.Model
	searching bool
	list      listCursor
}

func newHistoryPage(backend model.HistoryStore, interval time.Duration, keys KeyMap, mctx ModalContext, log logger.Logger) *historyPage {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "title, description, location"
	search.CharLimit = 128

	p := &historyPage{
		backend:  backend,
		keys:     keys,
		modalCtx: mctx,
		log:      log,
		tags:     newDataView("tags", "/stats/history/tags/available", 0, log, backend.HistoryTags),
		crew:     newDataView("crew", "/stats/history/users/available", 0, log, backend.AvailableCrew),
		search:   search,
	}
	p.events = newDataView("history", "/stats/history", interval, log, p.fetchFor(p.filter))
	return p
}

func (p *historyPage) fetchFor(f model.HistoryFilter) func(ctx context.Context) ([]model.HistoryEvent, error) {
	backend := p.backend
	return func(ctx context.Context) ([]model.HistoryEvent, error) {
		return backend.HistoryEvents(ctx, f)
	}
}

func (p *historyPage) ID() string         { return pageHistory }
func (p *historyPage) Title() string      { return "History" }
func (p *historyPage) RequiresAuth() bool { return true }
func (p *historyPage) Capturing() bool    { return p.searching }

func (p *historyPage) Mount() tea.Cmd {
	return tea.Batch(p.events.mount(), p.tags.mount(), p.crew.mount())
}

func (p *historyPage) Unmount() {
	p.searching = false
	p.search.Blur()
	p.events.unmount()
	p.tags.unmount()
	p.crew.unmount()
}

func (p *historyPage) Refresh() tea.Cmd {
	return tea.Batch(p.events.refresh(), p.tags.refresh(), p.crew.refresh())
}

func (p *historyPage) SetPaused(paused bool) { p.events.setPaused(paused) }

func (p *historyPage) Statuses() []viewStatus {
	s, _ := statusesOf(p.events, p.tags)
	return s
}

func (p *historyPage) Loading() bool { return p.events.loading() }

// applyFilter re-fetches with the new filter. The new ticket supersedes any
// fetch still running for the old filter.
func (p *historyPage) applyFilter(f model.HistoryFilter) tea.Cmd {
	if f == p.filter {
		return nil
	}
	p.filter = f
	p.list = listCursor{}
	p.events.setFetch(p.fetchFor(f))
	return p.events.invalidate()
}

func (p *historyPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	for _, h := range []func(tea.Msg) (tea.Cmd, bool){p.events.handle, p.tags.handle, p.crew.handle} {
		if cmd, ok := h(msg); ok {
			return cmd, nil
		}
	}

	switch msg := msg.(type) {
	case mutationDoneMsg:
		if msg.pageID != pageHistory {
			return nil, nil
		}
		if msg.err != nil {
			return flashError(msg.op, msg.err), nil
		}
		p.log.Info("history updated", logger.String("op", msg.op))
		return tea.Batch(flashInfo(msg.op+": done"), p.events.invalidate(), p.tags.invalidate()), nil

	case tea.KeyMsg:
		if p.searching {
			return p.updateSearch(msg), nil
		}
		return p.updateKeys(msg), nil
	}
	return nil, nil
}

func (p *historyPage) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		p.searching = false
		p.search.Blur()
		f := p.filter
		f.Search = strings.TrimSpace(p.search.Value())
		return p.applyFilter(f)
	case "esc":
		p.searching = false
		p.search.SetValue(p.filter.Search)
		p.search.Blur()
		return nil
	}
	var cmd tea.Cmd
	p.search, cmd = p.search.Update(msg)
	return cmd
}

func (p *historyPage) rows() []model.HistoryEvent {
	snap := p.events.snapshot()
	return snap.Value
}

func (p *historyPage) updateKeys(msg tea.KeyMsg) tea.Cmd {
	rows := p.rows()
	switch {
	case key.Matches(msg, p.keys.Search):
		p.searching = true
		return p.search.Focus()
	case key.Matches(msg, p.keys.Escape):
		p.search.SetValue("")
		return p.applyFilter(model.HistoryFilter{})
	case key.Matches(msg, p.keys.Tag):
		f := p.filter
		f.Tag = nextTag(p.tags.snapshot().Value, f.Tag)
		return p.applyFilter(f)
	case key.Matches(msg, p.keys.New):
		return pushModal(p.newEventForm())
	case key.Matches(msg, p.keys.Delete):
		if len(rows) == 0 {
			return nil
		}
		p.list.clamp(len(rows))
		ev := rows[p.list.cursor]
		backend := p.backend
		return pushModal(newConfirmModal("delete-event", fmt.Sprintf("Delete event %q?", ev.Title), p.keys, func() tea.Cmd {
			return mutationCmd(pageHistory, "delete event", func(ctx context.Context) error {
				return backend.DeleteHistoryEvent(ctx, ev.ID)
			})
		}))
	case key.Matches(msg, p.keys.Enter):
		if len(rows) == 0 {
			return nil
		}
		p.list.clamp(len(rows))
		ev := rows[p.list.cursor]
		return pushModal(newTextModal(fmt.Sprintf("event-%d", ev.ID), ev.Title, p.eventDetail(ev), p.keys, p.modalCtx))
	default:
		p.list.handleKey(p.keys, msg, len(rows))
	}
	return nil
}

// nextTag cycles "" (all) through the available tags.
func nextTag(tags []string, current string) string {
	if current == allTags {
		if len(tags) == 0 {
			return allTags
		}
		return tags[0]
	}
	for i, t := range tags {
		if t == current {
			if i+1 < len(tags) {
				return tags[i+1]
			}
			return allTags
		}
	}
	return allTags
}

func (p *historyPage) newEventForm() Modal {
	backend := p.backend
	fields := []formField{
		{Label: "Title", Required: true},
		{Label: "Type", Placeholder: "sale, purchase, mining..."},
		{Label: "Amount", Placeholder: "aUEC"},
		{Label: "Location"},
		{Label: "Tags", Placeholder: "comma separated"},
		{Label: "Date", Placeholder: "YYYY-MM-DD HH:MM (default now)"},
		{Label: "Description"},
	}
	return newFormModal("new-event", "Log event", fields, p.keys, func(v []string) (tea.Cmd, error) {
		in, err := parseEventInput(v, time.Now())
		if err != nil {
			return nil, err
		}
		return mutationCmd(pageHistory, "create event", func(ctx context.Context) error {
			_, err := backend.CreateHistoryEvent(ctx, in)
			return err
		}), nil
	})
}

// parseEventInput builds a create request from the form values:
// title, type, amount, location, tags, date, description.
func parseEventInput(v []string, now time.Time) (model.HistoryEventInput, error) {
	in := model.HistoryEventInput{
		Title:       v[0],
		EventType:   v[1],
		Location:    v[3],
		Description: v[6],
		Tags:        []string{},
		CrewMembers: []int{},
		EventDate:   model.Timestamp{Time: now.UTC()},
	}
	if v[2] != "" {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(v[2], ",", ""), 64)
		if err != nil {
			return in, errors.New("amount must be a number")
		}
		in.Amount = &amount
	}
	for _, t := range strings.Split(v[4], ",") {
		if t = strings.TrimSpace(t); t != "" {
			in.Tags = append(in.Tags, t)
		}
	}
	if v[5] != "" {
		d, err := time.ParseInLocation("2006-01-02 15:04", v[5], time.Local)
		if err != nil {
			d, err = time.ParseInLocation("2006-01-02", v[5], time.Local)
		}
		if err != nil {
			return in, errors.New("date must look like 2025-03-01 or 2025-03-01 14:30")
		}
		in.EventDate = model.Timestamp{Time: d.UTC()}
	}
	return in, nil
}

func (p *historyPage) crewNames(ev model.HistoryEvent) []string {
	if len(ev.CrewMemberDetails) > 0 {
		names := make([]string, 0, len(ev.CrewMemberDetails))
		for _, c := range ev.CrewMemberDetails {
			names = append(names, c.Username)
		}
		return names
	}
	crew := p.crew.snapshot().Value
	byID := make(map[int]string, len(crew))
	for _, c := range crew {
		byID[c.ID] = c.Username
	}
	names := make([]string, 0, len(ev.CrewMemberIDs))
	for _, id := range ev.CrewMemberIDs {
		if n, ok := byID[id]; ok {
			names = append(names, n)
		} else {
			names = append(names, fmt.Sprintf("#%d", id))
		}
	}
	return names
}

func (p *historyPage) eventDetail(ev model.HistoryEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date:        %s\n", ev.EventDate.Format("2006-01-02 15:04"))
	if ev.EventType != nil {
		fmt.Fprintf(&b, "Type:        %s\n", *ev.EventType)
	}
	if ev.Amount != nil {
		fmt.Fprintf(&b, "Amount:      %s\n", formatAUEC(*ev.Amount))
	}
	if ev.Location != nil {
		fmt.Fprintf(&b, "Location:    %s\n", *ev.Location)
	}
	if len(ev.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:        %s\n", strings.Join(ev.Tags, ", "))
	}
	if names := p.crewNames(ev); len(names) > 0 {
		fmt.Fprintf(&b, "Crew:        %s\n", strings.Join(names, ", "))
	}
	if ev.Description != nil && *ev.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", *ev.Description)
	}
	return b.String()
}

func (p *historyPage) View(width, height int) string {
	tag := p.filter.Tag
	if tag == allTags {
		tag = "all"
	}
	filterLine := helpStyle.Render(fmt.Sprintf("Tag: %s  •  t: cycle  /: search  n: new  d: delete", tag))
	if p.searching || p.filter.Search != "" {
		filterLine = lipgloss.JoinHorizontal(lipgloss.Top, p.search.View(), "   ", filterLine)
	}

	innerW := width - 4
	tableHeight := max(height-5, 3)
	body := renderResource(p.events.snapshot(), innerW, tableHeight, resourceContent[[]model.HistoryEvent]{
		empty: func(evs []model.HistoryEvent) bool { return len(evs) == 0 },
		emptyText: func() string {
			if p.filter != (model.HistoryFilter{}) {
				return "No events match the current filters"
			}
			return "No events logged yet. Press n to add one."
		}(),
		body: func(evs []model.HistoryEvent) string { return p.renderTable(evs, innerW, tableHeight) },
	})

	return sectionStyle.Width(width - 2).Height(height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, chartTitleStyle.Render("History"), filterLine, body))
}

func (p *historyPage) renderTable(evs []model.HistoryEvent, width, height int) string {
	titleW := max(min(width-60, 40), 12)
	lines := []string{headerRowStyle.Render(fmt.Sprintf("%-16s %-*s %12s  %-20s", "Date", titleW, "Title", "Amount", "Tags"))}

	start, end := p.list.window(len(evs), max(height-1, 1))
	for i := start; i < end; i++ {
		ev := evs[i]
		amount := "-"
		if ev.Amount != nil {
			amount = formatLargeNumber(*ev.Amount)
		}
		line := fmt.Sprintf("%-16s %-*s %12s  %-20s",
			ev.EventDate.Format("2006-01-02 15:04"), titleW, truncate(ev.Title, titleW),
			amount, truncate(strings.Join(ev.Tags, ","), 20))
		if i == p.list.cursor {
			line = selectedRowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
