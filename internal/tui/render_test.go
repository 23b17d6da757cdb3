package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stardeck/stardeck/internal/apiclient"
	"github.com/stardeck/stardeck/internal/poll"
)

var listContent = resourceContent[[]string]{
	empty:     func(v []string) bool { return len(v) == 0 },
	emptyText: "No rows",
	body:      func(v []string) string { return strings.Join(v, "\n") },
}

func TestRenderResourceLoading(t *testing.T) {
	t.Parallel()

	s := poll.Snapshot[[]string]{Status: poll.Loading, InFlight: true}
	out := renderResource(s, 40, 5, listContent)
	if !strings.Contains(out, "Loading") {
		t.Errorf("loading placeholder missing:\n%s", out)
	}
}

func TestRenderResourceFullError(t *testing.T) {
	t.Parallel()

	s := poll.Snapshot[[]string]{
		Status: poll.Error,
		Err:    &apiclient.RequestFailedError{Status: 500, Detail: "database down"},
	}
	out := renderResource(s, 60, 10, listContent)
	for _, want := range []string{"Could not load data", "500: database down", "r: retry"} {
		if !strings.Contains(out, want) {
			t.Errorf("full error missing %q:\n%s", want, out)
		}
	}
}

func TestRenderResourceStaleBanner(t *testing.T) {
	t.Parallel()

	s := poll.Snapshot[[]string]{
		Status:   poll.Error,
		Value:    []string{"Gold", "Laranite"},
		HasValue: true,
		Err:      fmt.Errorf("fetch: %w", apiclient.ErrNetworkUnavailable),
	}
	out := renderResource(s, 80, 10, listContent)
	if !strings.Contains(out, "showing last good data: backend unreachable") {
		t.Errorf("stale banner missing:\n%s", out)
	}
	if !strings.Contains(out, "Laranite") {
		t.Errorf("last good value not rendered:\n%s", out)
	}
}

func TestRenderResourceEmptyAndBody(t *testing.T) {
	t.Parallel()

	empty := poll.Snapshot[[]string]{Status: poll.Ready, HasValue: true}
	if out := renderResource(empty, 40, 5, listContent); !strings.Contains(out, "No rows") {
		t.Errorf("empty text missing: %q", out)
	}

	full := poll.Snapshot[[]string]{Status: poll.Ready, HasValue: true, Value: []string{"Agricium"}}
	out := renderResource(full, 40, 5, listContent)
	if !strings.Contains(out, "Agricium") || strings.Contains(out, "⚠") {
		t.Errorf("unexpected body: %q", out)
	}
}

func TestDescribeErrorAndHints(t *testing.T) {
	t.Parallel()

	unauthorized := &apiclient.RequestFailedError{Status: 401, Detail: "Not authenticated"}
	if got := describeError(unauthorized); got != "401: Not authenticated" {
		t.Errorf("describeError = %q", got)
	}
	if got := errorHint(unauthorized); !strings.Contains(got, "press L") {
		t.Errorf("401 hint = %q", got)
	}
	if got := errorHint(&apiclient.RequestFailedError{Status: 403, Detail: "no"}); got != "admin role required" {
		t.Errorf("403 hint = %q", got)
	}
	if got := describeError(&apiclient.DecodeFailedError{Cause: errors.New("eof")}); got != "unexpected response from backend" {
		t.Errorf("decode = %q", got)
	}
	if got := describeError(errors.New("boom")); got != "boom" {
		t.Errorf("plain = %q", got)
	}
	if got := errorHint(errors.New("boom")); got != "" {
		t.Errorf("plain hint = %q", got)
	}
}
