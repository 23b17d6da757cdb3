package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
)

var errMissingCredentials = errors.New("username and password are required")

type loginResultMsg struct {
	user model.User
	err  error
}

// loginPage collects credentials and signs the session in.
type loginPage struct {
	backend  model.AccountManager
	log      logger.Logger
	username textinput.Model
	password textinput.Model
	focus    int
	busy     bool
	err      error
}

func newLoginPage(backend model.AccountManager, log logger.Logger) *loginPage {
	u := textinput.New()
	u.Placeholder = "username"
	u.Prompt = "Username: "
	u.CharLimit = 64

	p := textinput.New()
	p.Placeholder = "password"
	p.Prompt = "Password: "
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'
	p.CharLimit = 128

	return &loginPage{backend: backend, log: log, username: u, password: p}
}

func (p *loginPage) ID() string    { return pageLogin }
func (p *loginPage) Title() string { return "Sign in" }

func (p *loginPage) Mount() tea.Cmd {
	p.busy = false
	p.password.SetValue("")
	p.setFocus(0)
	return textinput.Blink
}

func (p *loginPage) Unmount() {
	p.username.Blur()
	p.password.Blur()
}

// Capturing is always true: every key belongs to the inputs.
func (p *loginPage) Capturing() bool { return true }

func (p *loginPage) setFocus(i int) {
	p.focus = i
	if i == 0 {
		p.password.Blur()
		p.username.Focus()
	} else {
		p.username.Blur()
		p.password.Focus()
	}
}

func (p *loginPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case loginResultMsg:
		p.busy = false
		if msg.err != nil {
			p.log.Warn("login failed", logger.Error(msg.err))
			p.err = msg.err
			p.password.SetValue("")
			p.setFocus(1)
			return nil, nil
		}
		p.err = nil
		return flashInfo("Signed in as " + msg.user.Username), &PageNav{PageID: pageDashboard}

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			p.setFocus(1 - p.focus)
			return nil, nil
		case "esc":
			if p.focus == 1 {
				p.setFocus(0)
				return nil, nil
			}
			return tea.Quit, nil
		case "enter":
			if p.focus == 0 {
				p.setFocus(1)
				return nil, nil
			}
			return p.submit(), nil
		}
	}

	var cmd tea.Cmd
	if p.focus == 0 {
		p.username, cmd = p.username.Update(msg)
	} else {
		p.password, cmd = p.password.Update(msg)
	}
	return cmd, nil
}

func (p *loginPage) submit() tea.Cmd {
	if p.busy {
		return nil
	}
	creds := model.Credentials{
		Username: strings.TrimSpace(p.username.Value()),
		Password: p.password.Value(),
	}
	if creds.Username == "" || creds.Password == "" {
		p.err = errMissingCredentials
		return nil
	}
	p.busy = true
	p.err = nil
	backend := p.backend
	return func() tea.Msg {
		tok, err := backend.Login(context.Background(), creds)
		return loginResultMsg{user: tok.User, err: err}
	}
}

func (p *loginPage) View(width, height int) string {
	lines := []string{
		renderBranding(),
		"",
		p.username.View(),
		p.password.View(),
		"",
	}
	switch {
	case p.busy:
		lines = append(lines, helpStyle.Render("Signing in..."))
	case p.err != nil:
		lines = append(lines, errorStyle.Render(describeError(p.err)))
	default:
		lines = append(lines, helpStyle.Render("Enter to sign in"))
	}

	box := activeSectionStyle.Padding(1, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
