package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formField struct {
	Label       string
	Placeholder string
	Secret      bool
	Required    bool
	Value       string
}

// formModal collects a few text values and hands them to onSubmit.
// onSubmit returns a validation error to keep the form open.
type formModal struct {
	id       string
	title    string
	fields   []formField
	inputs   []textinput.Model
	focus    int
	err      string
	keys     KeyMap
	onSubmit func(values []string) (tea.Cmd, error)
}

func newFormModal(id, title string, fields []formField, keys KeyMap, onSubmit func([]string) (tea.Cmd, error)) *formModal {
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = f.Placeholder
		in.CharLimit = 256
		in.SetValue(f.Value)
		if f.Secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		inputs[i] = in
	}
	if len(inputs) > 0 {
		inputs[0].Focus()
	}
	return &formModal{
		id:       id,
		title:    title,
		fields:   fields,
		inputs:   inputs,
		keys:     keys,
		onSubmit: onSubmit,
	}
}

func (m *formModal) ID() string { return m.id }

func (m *formModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return true, nil
		case "tab", "down":
			m.setFocus(m.focus + 1)
			return false, nil
		case "shift+tab", "up":
			m.setFocus(m.focus - 1)
			return false, nil
		case "enter":
			if m.focus < len(m.inputs)-1 {
				m.setFocus(m.focus + 1)
				return false, nil
			}
			return m.submit()
		case "ctrl+s":
			return m.submit()
		}
		if key.Matches(k, m.keys.ForceQuit) {
			return true, tea.Quit
		}
	}

	if len(m.inputs) == 0 {
		return false, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return false, cmd
}

func (m *formModal) setFocus(i int) {
	if len(m.inputs) == 0 {
		return
	}
	i = (i + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

func (m *formModal) values() []string {
	out := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

func (m *formModal) submit() (bool, tea.Cmd) {
	values := m.values()
	for i, f := range m.fields {
		if f.Required && values[i] == "" {
			m.err = fmt.Sprintf("%s is required", f.Label)
			m.setFocus(i)
			return false, nil
		}
	}
	cmd, err := m.onSubmit(values)
	if err != nil {
		m.err = err.Error()
		return false, nil
	}
	return true, cmd
}

func (m *formModal) View(width, height int) string {
	labelWidth := 0
	for _, f := range m.fields {
		labelWidth = max(labelWidth, lipgloss.Width(f.Label))
	}

	lines := make([]string, 0, len(m.fields)+3)
	for i, f := range m.fields {
		label := lipgloss.NewStyle().Width(labelWidth + 2).Foreground(ColorGray).Render(f.Label)
		if i == m.focus {
			label = lipgloss.NewStyle().Width(labelWidth + 2).Foreground(ColorBlue).Bold(true).Render(f.Label)
		}
		lines = append(lines, label+m.inputs[i].View())
	}
	if m.err != "" {
		lines = append(lines, "", errorStyle.Render(m.err))
	}

	body := lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	return renderModalFrame(m.title, body, "Tab: Next field | Enter: Submit | ESC: Cancel", width, min(height, len(m.fields)+14))
}
