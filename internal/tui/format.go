package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// formatLargeNumber abbreviates v with a K, M or B suffix and two decimals.
// Values below a thousand are printed with thousands grouping only.
func formatLargeNumber(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.2f B", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%.2f M", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.2f K", v/1_000)
	default:
		return formatNumber(v)
	}
}

// formatNumber rounds v and groups thousands with commas.
func formatNumber(v float64) string {
	n := int64(v + 0.5)
	if v < 0 {
		n = int64(v - 0.5)
	}
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// formatCountdown renders seconds as "Xm YYs", or "ready" once elapsed.
func formatCountdown(seconds int) string {
	if seconds <= 0 {
		return "ready"
	}
	return fmt.Sprintf("%dm %02ds", seconds/60, seconds%60)
}

func formatAUEC(v float64) string {
	return formatLargeNumber(v) + " aUEC"
}

func formatSCU(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d SCU", int64(v))
	}
	return fmt.Sprintf("%.2f SCU", v)
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return formatLargeNumber(*p)
}

// formatAge renders how long ago t was, coarsely.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "once"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

// progressBar renders p in [0, 1] as a bar of the given width.
func progressBar(p float64, width int) string {
	if width <= 0 {
		return ""
	}
	p = min(max(p, 0), 1)
	filled := int(p*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// truncate shortens s to at most n runes, marking the cut with "~".
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "~"
	}
	return string(r[:n-1]) + "~"
}
