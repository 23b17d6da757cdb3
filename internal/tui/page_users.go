package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
	"github.com/stardeck/stardeck/internal/session"
)

const minPasswordLength = 6

// usersPage lets admins list, register and reset accounts, and lets every
// user change their own password.
type usersPage struct {
	backend model.AccountManager
	session *session.Session
	keys    KeyMap
	log     logger.Logger

	users *dataView[[]model.User]
	list  listCursor
}

func newUsersPage(backend model.AccountManager, sess *session.Session, interval time.Duration, keys KeyMap, log logger.Logger) *usersPage {
	return &usersPage{
		backend: backend,
		session: sess,
		keys:    keys,
		log:     log,
		users:   newDataView("users", "/auth/users", interval, log, backend.Users),
	}
}

func (p *usersPage) ID() string         { return pageUsers }
func (p *usersPage) Title() string      { return "Users" }
func (p *usersPage) RequiresAuth() bool { return true }

func (p *usersPage) Mount() tea.Cmd {
	if !p.session.IsAdmin() {
		return nil
	}
	return p.users.mount()
}

func (p *usersPage) Unmount() { p.users.unmount() }

func (p *usersPage) Refresh() tea.Cmd {
	if !p.session.IsAdmin() {
		return nil
	}
	return p.users.refresh()
}

func (p *usersPage) SetPaused(paused bool) { p.users.setPaused(paused) }

func (p *usersPage) Statuses() []viewStatus {
	if !p.session.IsAdmin() {
		return nil
	}
	return []viewStatus{p.users.status()}
}

func (p *usersPage) Loading() bool { return p.session.IsAdmin() && p.users.loading() }

func (p *usersPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if cmd, ok := p.users.handle(msg); ok {
		return cmd, nil
	}

	switch msg := msg.(type) {
	case mutationDoneMsg:
		if msg.pageID != pageUsers {
			return nil, nil
		}
		if msg.err != nil {
			return flashError(msg.op, msg.err), nil
		}
		p.log.Info("account updated", logger.String("op", msg.op))
		return tea.Batch(flashInfo(msg.op+": done"), p.users.invalidate()), nil

	case tea.KeyMsg:
		return p.updateKeys(msg), nil
	}
	return nil, nil
}

func (p *usersPage) selected() (model.User, bool) {
	rows := p.users.snapshot().Value
	if len(rows) == 0 {
		return model.User{}, false
	}
	p.list.clamp(len(rows))
	return rows[p.list.cursor], true
}

func (p *usersPage) updateKeys(msg tea.KeyMsg) tea.Cmd {
	admin := p.session.IsAdmin()
	switch {
	case key.Matches(msg, p.keys.Password):
		return pushModal(p.changePasswordForm())
	case !admin:
		return nil
	case key.Matches(msg, p.keys.New):
		return pushModal(p.registerForm())
	case key.Matches(msg, p.keys.Reset):
		u, ok := p.selected()
		if !ok {
			return nil
		}
		return pushModal(p.resetPasswordForm(u))
	default:
		p.list.handleKey(p.keys, msg, len(p.users.snapshot().Value))
	}
	return nil
}

func validatePassword(pw, confirm string) error {
	if len(pw) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if pw != confirm {
		return errors.New("passwords do not match")
	}
	return nil
}

func (p *usersPage) registerForm() Modal {
	backend := p.backend
	fields := []formField{
		{Label: "Username", Required: true},
		{Label: "Email"},
		{Label: "Password", Secret: true, Required: true},
		{Label: "Confirm", Secret: true, Required: true},
		{Label: "Role", Value: model.RoleMember, Placeholder: "member or admin"},
	}
	return newFormModal("register-user", "Register user", fields, p.keys, func(v []string) (tea.Cmd, error) {
		if err := validatePassword(v[2], v[3]); err != nil {
			return nil, err
		}
		role := strings.ToLower(v[4])
		if role != model.RoleMember && role != model.RoleAdmin {
			return nil, errors.New("role must be member or admin")
		}
		in := model.NewUser{Username: v[0], Password: v[2], Role: role}
		if v[1] != "" {
			email := v[1]
			in.Email = &email
		}
		return mutationCmd(pageUsers, "register "+in.Username, func(ctx context.Context) error {
			_, err := backend.Register(ctx, in)
			return err
		}), nil
	})
}

func (p *usersPage) resetPasswordForm(u model.User) Modal {
	backend := p.backend
	fields := []formField{
		{Label: "New password", Secret: true, Required: true},
		{Label: "Confirm", Secret: true, Required: true},
	}
	return newFormModal("reset-password", "Reset password for "+u.Username, fields, p.keys, func(v []string) (tea.Cmd, error) {
		if err := validatePassword(v[0], v[1]); err != nil {
			return nil, err
		}
		return mutationCmd(pageUsers, "reset password for "+u.Username, func(ctx context.Context) error {
			return backend.ResetPassword(ctx, u.ID, v[0])
		}), nil
	})
}

func (p *usersPage) changePasswordForm() Modal {
	backend := p.backend
	fields := []formField{
		{Label: "Current password", Secret: true, Required: true},
		{Label: "New password", Secret: true, Required: true},
		{Label: "Confirm", Secret: true, Required: true},
	}
	return newFormModal("change-password", "Change my password", fields, p.keys, func(v []string) (tea.Cmd, error) {
		if err := validatePassword(v[1], v[2]); err != nil {
			return nil, err
		}
		in := model.PasswordChange{OldPassword: v[0], NewPassword: v[1]}
		return mutationCmd(pageUsers, "change password", func(ctx context.Context) error {
			return backend.ChangePassword(ctx, in)
		}), nil
	})
}

func (p *usersPage) View(width, height int) string {
	me, _ := p.session.User()
	account := fmt.Sprintf("Signed in as %s (%s)  •  P: change my password", me.Username, me.Role)
	header := lipgloss.JoinVertical(lipgloss.Left, chartTitleStyle.Render("Users"), helpStyle.Render(account))

	innerW := width - 4
	var body string
	if !p.session.IsAdmin() {
		body = helpStyle.Render("Account management requires the admin role.")
	} else {
		tableHeight := max(height-6, 3)
		body = lipgloss.JoinVertical(lipgloss.Left,
			helpStyle.Render("n: register  p: reset password"),
			renderResource(p.users.snapshot(), innerW, tableHeight, resourceContent[[]model.User]{
				empty:     func(us []model.User) bool { return len(us) == 0 },
				emptyText: "No users",
				body:      func(us []model.User) string { return p.renderTable(us, tableHeight) },
			}))
	}

	return sectionStyle.Width(width - 2).Height(height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", body))
}

func (p *usersPage) renderTable(us []model.User, height int) string {
	lines := []string{headerRowStyle.Render(fmt.Sprintf("%-5s %-20s %-28s %-8s %-8s %s", "ID", "Username", "Email", "Role", "Active", "Created"))}
	start, end := p.list.window(len(us), max(height-1, 1))
	for i := start; i < end; i++ {
		u := us[i]
		email := "-"
		if u.Email != nil {
			email = *u.Email
		}
		active := "yes"
		if !u.IsActive {
			active = "no"
		}
		created := "-"
		if !u.CreatedAt.IsZero() {
			created = u.CreatedAt.Format("2006-01-02")
		}
		line := fmt.Sprintf("%-5d %-20s %-28s %-8s %-8s %s",
			u.ID, truncate(u.Username, 20), truncate(email, 28), u.Role, active, created)
		if i == p.list.cursor {
			line = selectedRowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
