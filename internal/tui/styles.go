package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorBlue   = lipgloss.Color("39")
	ColorNavy   = lipgloss.Color("17")
	ColorWhite  = lipgloss.Color("255")
	ColorGray   = lipgloss.Color("244")
	ColorGreen  = lipgloss.Color("42")
	ColorOrange = lipgloss.Color("208")
	ColorRed    = lipgloss.Color("196")
	ColorYellow = lipgloss.Color("220")
)

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	activeSectionStyle = sectionStyle.
				BorderForeground(ColorBlue)

	chartTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	staleBannerStyle = lipgloss.NewStyle().
				Foreground(ColorOrange)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(ColorBlue).
				Bold(true)

	headerRowStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Underline(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)
)
