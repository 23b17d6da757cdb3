package tui

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/apiclient"
	"github.com/stardeck/stardeck/internal/poll"
)

// resourceContent describes how one data view renders its value.
type resourceContent[T any] struct {
	// empty reports whether the value is an empty collection.
	empty     func(T) bool
	emptyText string
	body      func(T) string
}

// renderResource maps a snapshot to terminal output. It has no side effects:
// loading placeholder, full error, empty message or populated body, with an
// inline banner when a previous value is shown next to a newer failure.
func renderResource[T any](s poll.Snapshot[T], width, height int, c resourceContent[T]) string {
	if !s.HasValue {
		if s.Status == poll.Error {
			return renderFullError(s.Err, width, height)
		}
		return renderLoadingPlaceholder(width, height)
	}

	var banner string
	if s.Err != nil {
		banner = renderStaleBanner(s.Err, width)
	}

	var body string
	if c.empty != nil && c.empty(s.Value) {
		text := c.emptyText
		if text == "" {
			text = "Nothing to show"
		}
		body = helpStyle.Render(text)
	} else {
		body = c.body(s.Value)
	}

	if banner == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, banner, body)
}

func renderFullError(err error, width, height int) string {
	lines := []string{
		errorStyle.Render("Could not load data"),
		lipgloss.NewStyle().Foreground(ColorWhite).Render(describeError(err)),
	}
	if hint := errorHint(err); hint != "" {
		lines = append(lines, helpStyle.Render(hint))
	}
	lines = append(lines, "", helpStyle.Render("r: retry"))

	text := lipgloss.JoinVertical(lipgloss.Center, lines...)
	if width <= 0 || height <= 0 {
		return text
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

func renderStaleBanner(err error, width int) string {
	text := "⚠ showing last good data: " + describeError(err)
	if hint := errorHint(err); hint != "" {
		text += " (" + hint + ")"
	}
	if width > 0 {
		text = truncate(text, width)
	}
	return staleBannerStyle.Render(text)
}

// describeError turns client failures into one short human line.
func describeError(err error) string {
	if err == nil {
		return ""
	}
	var rf *apiclient.RequestFailedError
	var df *apiclient.DecodeFailedError
	switch {
	case errors.Is(err, apiclient.ErrNetworkUnavailable):
		return "backend unreachable"
	case errors.As(err, &rf):
		return fmt.Sprintf("%d: %s", rf.Status, rf.Detail)
	case errors.As(err, &df):
		return "unexpected response from backend"
	default:
		return err.Error()
	}
}

func errorHint(err error) string {
	switch apiclient.StatusOf(err) {
	case http.StatusUnauthorized:
		return "session expired, press L to sign in"
	case http.StatusForbidden:
		return "admin role required"
	}
	return ""
}
