package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/poll"
)

// viewTickMsg schedules the next timer refresh of one data view. Ticks from
// an earlier mount carry an old generation and are dropped.
type viewTickMsg struct {
	viewID string
	gen    int
}

// viewDataMsg carries a fetch result back into the event loop.
type viewDataMsg[T any] struct {
	viewID string
	ticket poll.Ticket
	value  T
	err    error
}

// viewStatus is the per-view summary shown in the status line.
type viewStatus struct {
	ID        string
	Status    poll.Status
	Err       error
	UpdatedAt time.Time
	Interval  time.Duration
	Paused    bool
}

// dataView binds a poll.Resource to Bubble Tea: it turns tickets into fetch
// commands, schedules timer ticks and applies results in Update.
type dataView[T any] struct {
	id     string
	res    *poll.Resource[T]
	fetch  func(ctx context.Context) (T, error)
	log    logger.Logger
	gen    int
	paused bool

	ctx    context.Context
	cancel context.CancelFunc
}

func newDataView[T any](id, endpoint string, interval time.Duration, log logger.Logger, fetch func(ctx context.Context) (T, error)) *dataView[T] {
	if log == nil {
		log = logger.Nop()
	}
	return &dataView[T]{
		id:    id,
		res:   poll.NewResource[T](endpoint, interval),
		fetch: fetch,
		log:   log.With(logger.String("view", id), logger.String("endpoint", endpoint)),
	}
}

// mount starts the view: first fetch plus the timer loop.
func (v *dataView[T]) mount() tea.Cmd {
	v.gen++
	v.ctx, v.cancel = context.WithCancel(context.Background())
	t, ok := v.res.Mount()
	if !ok {
		return nil
	}
	return tea.Batch(v.fetchCmd(t), v.scheduleTick())
}

// unmount cancels the in-flight fetch and stops the timer loop. Results and
// ticks that arrive afterwards are dropped.
func (v *dataView[T]) unmount() {
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.res.Unmount()
}

// refresh requests a manual refresh; it is coalesced when a fetch is in flight.
func (v *dataView[T]) refresh() tea.Cmd {
	t, ok := v.res.Begin(poll.TriggerManual)
	if !ok {
		return nil
	}
	return v.fetchCmd(t)
}

// invalidate forces a new fetch that supersedes any in-flight one.
func (v *dataView[T]) invalidate() tea.Cmd {
	t, ok := v.res.Invalidate()
	if !ok {
		return nil
	}
	return v.fetchCmd(t)
}

func (v *dataView[T]) setPaused(p bool) { v.paused = p }

// setFetch swaps the fetch function used by subsequently issued tickets,
// e.g. when a filter changes.
func (v *dataView[T]) setFetch(fetch func(ctx context.Context) (T, error)) { v.fetch = fetch }

func (v *dataView[T]) snapshot() poll.Snapshot[T] { return v.res.Snapshot() }

func (v *dataView[T]) loading() bool {
	s := v.res.Snapshot()
	return s.InFlight && !s.HasValue
}

func (v *dataView[T]) status() viewStatus {
	s := v.res.Snapshot()
	return viewStatus{
		ID:        v.id,
		Status:    s.Status,
		Err:       s.Err,
		UpdatedAt: s.UpdatedAt,
		Interval:  v.res.Interval(),
		Paused:    v.paused,
	}
}

// handle consumes messages addressed to this view. It reports whether the
// message was one of its own.
func (v *dataView[T]) handle(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case viewTickMsg:
		if msg.viewID != v.id {
			return nil, false
		}
		if msg.gen != v.gen {
			return nil, true
		}
		var cmds []tea.Cmd
		if !v.paused {
			if t, ok := v.res.Begin(poll.TriggerTimer); ok {
				cmds = append(cmds, v.fetchCmd(t))
			}
		}
		cmds = append(cmds, v.scheduleTick())
		return tea.Batch(cmds...), true

	case viewDataMsg[T]:
		if msg.viewID != v.id {
			return nil, false
		}
		if !v.res.Resolve(msg.ticket, msg.value, msg.err) {
			v.log.Debug("discarded stale result", logger.Uint64("ticket", uint64(msg.ticket)))
			return nil, true
		}
		if msg.err != nil {
			s := v.res.Snapshot()
			v.log.Warn("refresh failed",
				logger.Error(msg.err),
				logger.Int("consecutive_errors", s.ConsecutiveErrors),
				logger.Bool("stale_value", s.HasValue))
		} else {
			v.log.Debug("refresh applied", logger.Uint64("ticket", uint64(msg.ticket)))
		}
		if t, ok := v.res.Followup(); ok {
			return v.fetchCmd(t), true
		}
		return nil, true
	}
	return nil, false
}

func (v *dataView[T]) fetchCmd(t poll.Ticket) tea.Cmd {
	ctx, fetch, id := v.ctx, v.fetch, v.id
	if ctx == nil {
		ctx = context.Background()
	}
	return func() tea.Msg {
		value, err := fetch(ctx)
		return viewDataMsg[T]{viewID: id, ticket: t, value: value, err: err}
	}
}

func (v *dataView[T]) scheduleTick() tea.Cmd {
	interval := v.res.Interval()
	if interval <= 0 {
		return nil
	}
	id, gen := v.id, v.gen
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return viewTickMsg{viewID: id, gen: gen}
	})
}
