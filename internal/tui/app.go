package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
	"github.com/stardeck/stardeck/internal/session"
)

// Intervals sets the polling cadence of each page. Zero means fetch once per
// mount plus manual refreshes.
type Intervals struct {
	Dashboard       time.Duration
	Refining        time.Duration
	RefiningHistory time.Duration
	Market          time.Duration
	History         time.Duration
	Users           time.Duration
}

// DefaultIntervals returns the built-in polling cadence.
func DefaultIntervals() Intervals {
	return Intervals{
		Dashboard:       model.DefaultDashboardInterval,
		Refining:        model.DefaultRefiningInterval,
		RefiningHistory: model.DefaultRefiningHistoryInterval,
		Market:          model.DefaultMarketInterval,
		History:         model.DefaultHistoryInterval,
		Users:           model.DefaultUsersInterval,
	}
}

// Options configures an App.
type Options struct {
	Backend            model.Backend
	Session            *session.Session
	Logger             logger.Logger
	Intervals          Intervals
	DataSource         string // shown next to the connectivity dot
	ReverseScrollWheel bool
}

// App is the top-level Bubble Tea model that routes between pages.
type App struct {
	pages  []Page
	active int

	session    *session.Session
	log        logger.Logger
	keys       KeyMap
	modalCtx   ModalContext
	modalStack []Modal
	dataSource string

	paused   map[string]bool
	flash    flash
	spinning bool
	now      func() time.Time

	width  int
	height int
}

const (
	pageLogin     = "login"
	pageDashboard = "dashboard"
	pageRefining  = "refining"
	pageMarket    = "market"
	pageHistory   = "history"
	pageUsers     = "users"
)

// NewApp creates the App with every page wired to opts.Backend.
func NewApp(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	sess := opts.Session
	if sess == nil {
		sess = session.New()
	}
	iv := opts.Intervals
	keys := DefaultKeyMap()
	mctx := ModalContext{ReverseScrollWheel: opts.ReverseScrollWheel}

	pages := []Page{
		newLoginPage(opts.Backend, log),
		newDashboardPage(opts.Backend, iv.Dashboard, log),
		newRefiningPage(opts.Backend, iv.Refining, iv.RefiningHistory, log),
		newMarketPage(opts.Backend, iv.Market, keys, mctx, log),
		newHistoryPage(opts.Backend, iv.History, keys, mctx, log),
		newUsersPage(opts.Backend, sess, iv.Users, keys, log),
	}
	return newAppWithPages(sess, log, keys, mctx, opts.DataSource, pages...)
}

func newAppWithPages(sess *session.Session, log logger.Logger, keys KeyMap, mctx ModalContext, dataSource string, pages ...Page) *App {
	a := &App{
		pages:      pages,
		session:    sess,
		log:        log,
		keys:       keys,
		modalCtx:   mctx,
		dataSource: dataSource,
		paused:     make(map[string]bool),
		now:        time.Now,
	}
	a.active = a.startPage()
	return a
}

func (a *App) startPage() int {
	want := pageLogin
	if a.session.Authenticated() {
		want = pageDashboard
	}
	if i := a.pageIndex(want); i >= 0 {
		return i
	}
	return 0
}

func (a *App) pageIndex(id string) int {
	for i, p := range a.pages {
		if p.ID() == id {
			return i
		}
	}
	return -1
}

func (a *App) activePage() Page {
	if a.active < 0 || a.active >= len(a.pages) {
		return nil
	}
	return a.pages[a.active]
}

// navigable lists page indexes reachable with tab in the current session.
func (a *App) navigable() []int {
	authed := a.session.Authenticated()
	out := make([]int, 0, len(a.pages))
	for i, p := range a.pages {
		if p.ID() == pageLogin {
			if !authed {
				out = append(out, i)
			}
			continue
		}
		if r, ok := p.(restricted); ok && r.RequiresAuth() && !authed {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (a *App) Init() tea.Cmd {
	p := a.activePage()
	if p == nil {
		return nil
	}
	a.applyPause(p)
	return tea.Batch(p.Mount(), a.startSpinnerIfNeeded())
}

// switchTo unmounts the current page and mounts the page at idx.
func (a *App) switchTo(idx int) tea.Cmd {
	if idx < 0 || idx >= len(a.pages) {
		return nil
	}
	if cur := a.activePage(); cur != nil {
		cur.Unmount()
	}
	a.active = idx
	p := a.pages[idx]
	a.applyPause(p)
	a.log.Debug("page mounted", logger.String("page", p.ID()))
	return tea.Batch(p.Mount(), a.startSpinnerIfNeeded())
}

func (a *App) switchToID(id string) tea.Cmd {
	return a.switchTo(a.pageIndex(id))
}

func (a *App) cyclePage(delta int) tea.Cmd {
	nav := a.navigable()
	if len(nav) < 2 {
		return nil
	}
	pos := 0
	for i, idx := range nav {
		if idx == a.active {
			pos = i
			break
		}
	}
	pos = (pos + delta + len(nav)) % len(nav)
	return a.switchTo(nav[pos])
}

func (a *App) applyPause(p Page) {
	if pp, ok := p.(pausable); ok {
		pp.SetPaused(a.paused[p.ID()])
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case SpinnerTickMsg:
		return a, a.handleSpinnerTick()

	case ActionMsg:
		return a, a.handleAction(msg)

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.MouseMsg:
		if modal := a.TopModal(); modal != nil {
			pop, cmd := modal.Update(msg)
			if pop {
				a.PopModal()
			}
			return a, cmd
		}
	}

	return a, a.forward(msg)
}

// forward passes msg to the active page and follows any navigation it asks for.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	p := a.activePage()
	if p == nil {
		return nil
	}
	cmd, nav := p.Update(msg)
	if nav != nil {
		if idx := a.pageIndex(nav.PageID); idx >= 0 {
			return tea.Batch(cmd, a.switchTo(idx))
		}
	}
	return tea.Batch(cmd, a.startSpinnerIfNeeded())
}

func (a *App) handleAction(msg ActionMsg) tea.Cmd {
	switch msg.Action {
	case ActionPushModal:
		if modal, ok := msg.Payload.(Modal); ok {
			a.PushModal(modal)
		}
	case ActionFlash:
		if f, ok := msg.Payload.(flash); ok {
			f.At = a.now()
			a.flash = f
			if f.IsErr {
				a.log.Warn("action failed", logger.String("detail", f.Text))
			}
		}
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, a.keys.ForceQuit) {
		return tea.Quit
	}

	if modal := a.TopModal(); modal != nil {
		pop, cmd := modal.Update(msg)
		if pop {
			a.PopModal()
		}
		return cmd
	}

	p := a.activePage()
	if ic, ok := p.(inputCapturer); ok && ic.Capturing() {
		return a.forward(msg)
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.PushModal(newHelpModal(a.keys, a.modalCtx))
		return nil
	case key.Matches(msg, a.keys.NextPage):
		return a.cyclePage(1)
	case key.Matches(msg, a.keys.PrevPage):
		return a.cyclePage(-1)
	case key.Matches(msg, a.keys.Refresh):
		if r, ok := p.(refresher); ok {
			return tea.Batch(r.Refresh(), a.startSpinnerIfNeeded())
		}
		return nil
	case key.Matches(msg, a.keys.Pause):
		if pp, ok := p.(pausable); ok {
			id := p.ID()
			a.paused[id] = !a.paused[id]
			pp.SetPaused(a.paused[id])
		}
		return nil
	case key.Matches(msg, a.keys.SignOut):
		return a.signOut()
	}
	return a.forward(msg)
}

func (a *App) signOut() tea.Cmd {
	if !a.session.Authenticated() {
		return a.switchToID(pageLogin)
	}
	if err := a.session.SignOut(); err != nil {
		a.log.Warn("sign out: remove session file", logger.Error(err))
	}
	a.log.Info("signed out")
	a.modalStack = nil
	return tea.Batch(a.switchToID(pageLogin), flashInfo("Signed out"))
}

// PushModal pushes a modal unless one with the same ID is already open.
func (a *App) PushModal(modal Modal) {
	for _, existing := range a.modalStack {
		if existing.ID() == modal.ID() {
			return
		}
	}
	a.modalStack = append(a.modalStack, modal)
}

// PopModal removes the topmost modal from the stack.
func (a *App) PopModal() {
	if len(a.modalStack) > 0 {
		a.modalStack = a.modalStack[:len(a.modalStack)-1]
	}
}

// TopModal returns the topmost modal, or nil if the stack is empty.
func (a *App) TopModal() Modal {
	if len(a.modalStack) == 0 {
		return nil
	}
	return a.modalStack[len(a.modalStack)-1]
}

func (a *App) HasModal() bool { return len(a.modalStack) > 0 }

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Starting..."
	}
	if modal := a.TopModal(); modal != nil {
		return modal.View(a.width, a.height)
	}

	p := a.activePage()
	if p == nil {
		return "No active page"
	}

	status := a.renderStatusLine()
	bodyHeight := max(a.height-lipgloss.Height(status), 1)

	if p.ID() == pageLogin {
		return lipgloss.JoinVertical(lipgloss.Left, p.View(a.width, bodyHeight), status)
	}

	sidebar := a.renderSidebar(bodyHeight)
	content := p.View(a.contentWidth(), bodyHeight)
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
	return lipgloss.JoinVertical(lipgloss.Left, main, status)
}

func (a *App) contentWidth() int {
	if a.activePage() != nil && a.activePage().ID() == pageLogin {
		return a.width
	}
	return max(a.width-sidebarWidth, 10)
}
