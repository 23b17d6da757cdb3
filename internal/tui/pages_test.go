package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
)

func TestRunningJobsAndTick(t *testing.T) {
	t.Parallel()

	jobs := []model.RefiningJob{
		{ID: 1, MaterialName: "Gold", RemainingSeconds: 0},
		{ID: 2, MaterialName: "Laranite", RemainingSeconds: 1},
		{ID: 3, MaterialName: "Agricium", RemainingSeconds: 90},
	}
	running := runningJobs(jobs)
	if len(running) != 2 || running[0].ID != 2 {
		t.Fatalf("runningJobs = %+v", running)
	}

	ticked := tickJobs(running)
	if len(ticked) != 1 || ticked[0].ID != 3 || ticked[0].RemainingSeconds != 89 {
		t.Fatalf("tickJobs = %+v", ticked)
	}
	if running[1].RemainingSeconds != 90 {
		t.Fatal("tickJobs mutated its input")
	}
}

func TestRefiningCountdownUpdatesHeldValue(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	backend.active = []model.RefiningJob{{ID: 1, RemainingSeconds: 2, TotalSeconds: 10}, {ID: 2, RemainingSeconds: -1}}
	p := newRefiningPage(backend, time.Hour, 0, logger.Nop())
	p.Mount()
	msg := p.active.fetchCmd(1)().(viewDataMsg[[]model.RefiningJob])
	p.Update(msg)

	if got := p.active.snapshot().Value; len(got) != 1 {
		t.Fatalf("finished jobs not filtered: %+v", got)
	}
	p.Update(countdownTickMsg{gen: p.gen})
	if got := p.active.snapshot().Value; len(got) != 1 || got[0].RemainingSeconds != 1 {
		t.Fatalf("after one tick: %+v", got)
	}
	p.Update(countdownTickMsg{gen: p.gen})
	if got := p.active.snapshot().Value; len(got) != 0 {
		t.Fatalf("finished job not dropped: %+v", got)
	}
	if !strings.Contains(p.View(100, 20), "No refining in progress") {
		t.Error("empty state not rendered")
	}
}

func TestFilterMaterials(t *testing.T) {
	t.Parallel()

	all := []model.MaterialMarket{
		{Name: "Quantanium", Category: "Mineral"},
		{Name: "Agricium", Category: "Metal"},
		{Name: "Gold", Category: "Metal"},
		{Name: "Recycled Material Composite", Category: "Salvage"},
	}

	if got := filterMaterials(all, allCategories, ""); len(got) != 4 || got[0].Name != "Agricium" {
		t.Fatalf("unfiltered = %+v", got)
	}
	if got := filterMaterials(all, "Metal", ""); len(got) != 2 {
		t.Fatalf("by category = %+v", got)
	}
	if got := filterMaterials(all, allCategories, "  QUANT "); len(got) != 1 || got[0].Name != "Quantanium" {
		t.Fatalf("by query = %+v", got)
	}
	if got := filterMaterials(all, "Salvage", "gold"); len(got) != 0 {
		t.Fatalf("combined = %+v", got)
	}

	cats := categories(all)
	want := []string{allCategories, "Metal", "Mineral", "Salvage"}
	if strings.Join(cats, ",") != strings.Join(want, ",") {
		t.Fatalf("categories = %v", cats)
	}
	if got := nextCategory(cats, "Salvage"); got != allCategories {
		t.Fatalf("nextCategory wraps to %q", got)
	}
	if got := nextCategory(cats, "Gone"); got != allCategories {
		t.Fatalf("unknown category = %q", got)
	}
}

func TestMaterialDetail(t *testing.T) {
	t.Parallel()

	m := model.MaterialMarket{
		Name:             "Laranite",
		Category:         "Mineral",
		AvgSellPrice:     ptr(2890.5),
		BestSellLocation: &model.LocationInfo{Name: "Area18", System: "Stanton"},
	}
	out := materialDetail(m)
	for _, want := range []string{"Mineral", "2.89 K", "Area18, Stanton"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
}

func TestNextTag(t *testing.T) {
	t.Parallel()

	tags := []string{"mining", "trade"}
	steps := []string{"mining", "trade", allTags, "mining"}
	cur := allTags
	for _, want := range steps {
		cur = nextTag(tags, cur)
		if cur != want {
			t.Fatalf("nextTag = %q, want %q", cur, want)
		}
	}
	if got := nextTag(nil, allTags); got != allTags {
		t.Fatalf("no tags = %q", got)
	}
}

func TestParseEventInput(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in, err := parseEventInput([]string{"Sold gold", "sale", "12,500", "Area18", "trade, , gold ", "", "good run"}, now)
	if err != nil {
		t.Fatalf("parseEventInput: %v", err)
	}
	if in.Amount == nil || *in.Amount != 12500 {
		t.Fatalf("amount = %v", in.Amount)
	}
	if strings.Join(in.Tags, "|") != "trade|gold" {
		t.Fatalf("tags = %q", in.Tags)
	}
	if !in.EventDate.Time.Equal(now) {
		t.Fatalf("date = %v", in.EventDate)
	}
	if in.CrewMembers == nil {
		t.Fatal("crew members must encode as an empty list")
	}

	in, err = parseEventInput([]string{"x", "", "", "", "", "2025-02-10", ""}, now)
	if err != nil {
		t.Fatalf("date only: %v", err)
	}
	if in.Amount != nil {
		t.Fatal("empty amount should be omitted")
	}
	if got := in.EventDate.Time.In(time.Local).Format("2006-01-02"); got != "2025-02-10" {
		t.Fatalf("date = %s", got)
	}

	if _, err := parseEventInput([]string{"x", "", "lots", "", "", "", ""}, now); err == nil {
		t.Fatal("non-numeric amount accepted")
	}
	if _, err := parseEventInput([]string{"x", "", "", "", "", "yesterday", ""}, now); err == nil {
		t.Fatal("bad date accepted")
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	if err := validatePassword("short", "short"); err == nil {
		t.Error("short password accepted")
	}
	if err := validatePassword("longenough", "different"); err == nil {
		t.Error("mismatch accepted")
	}
	if err := validatePassword("longenough", "longenough"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}

func TestHistoryFilterSupersedesFetch(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	backend.tags = []string{"mining", "trade"}
	p := newHistoryPage(backend, time.Hour, DefaultKeyMap(), ModalContext{}, logger.Nop())
	p.Mount()

	tagsMsg := p.tags.fetchCmd(1)().(viewDataMsg[[]string])
	p.Update(tagsMsg)
	oldEvents := p.events.fetchCmd(1)

	if cmd, _ := p.Update(keyRunes("t")); cmd == nil {
		t.Fatal("tag filter did not refetch")
	}
	if p.filter.Tag != "mining" {
		t.Fatalf("filter = %+v", p.filter)
	}

	// The response for the old filter arrives after the filter changed.
	p.Update(oldEvents())
	if p.events.snapshot().HasValue {
		t.Fatal("response for the previous filter was applied")
	}

	p.Update(p.events.fetchCmd(2)())
	if !p.events.snapshot().HasValue {
		t.Fatal("response for the current filter was dropped")
	}
	last := backend.filters[len(backend.filters)-1]
	if last.Tag != "mining" {
		t.Fatalf("fetched with filter %+v", last)
	}
}

func TestHistoryMutationInvalidates(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	p := newHistoryPage(backend, time.Hour, DefaultKeyMap(), ModalContext{}, logger.Nop())
	p.Mount()
	p.Update(p.events.fetchCmd(1)())
	p.Update(p.tags.fetchCmd(1)())
	if p.events.snapshot().InFlight {
		t.Fatal("events still in flight")
	}

	cmd, _ := p.Update(mutationDoneMsg{pageID: pageHistory, op: "create event"})
	if cmd == nil {
		t.Fatal("mutation produced no commands")
	}
	if !p.events.res.Current(2) || !p.tags.res.Current(2) {
		t.Fatal("events and tags were not invalidated")
	}

	// Failures surface as a flash and leave the views alone.
	cmd, _ = p.Update(mutationDoneMsg{pageID: pageHistory, op: "delete event", err: errors.New("boom")})
	msg, ok := cmd().(ActionMsg)
	if !ok || msg.Action != ActionFlash || !msg.Payload.(flash).IsErr {
		t.Fatalf("failure flash = %+v", msg)
	}
	if !p.events.res.Current(2) {
		t.Fatal("failed mutation issued a new fetch")
	}

	// Mutations from other pages are ignored.
	if cmd, _ := p.Update(mutationDoneMsg{pageID: pageUsers, op: "register"}); cmd != nil {
		t.Fatal("history page reacted to a users mutation")
	}
}

func TestHistoryDeleteConfirm(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	backend.events = []model.HistoryEvent{{ID: 41, Title: "Sold gold"}}
	p := newHistoryPage(backend, time.Hour, DefaultKeyMap(), ModalContext{}, logger.Nop())
	p.Mount()
	p.Update(p.events.fetchCmd(1)())

	cmd, _ := p.Update(keyRunes("d"))
	action := cmd().(ActionMsg)
	modal := action.Payload.(Modal)

	pop, del := modal.Update(keyRunes("y"))
	if !pop || del == nil {
		t.Fatal("confirm did not close with a command")
	}
	done := del().(mutationDoneMsg)
	if done.err != nil || len(backend.deleted) != 1 || backend.deleted[0] != 41 {
		t.Fatalf("delete = %+v, deleted = %v", done, backend.deleted)
	}
}

func TestUsersPageAdminOnly(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	member := signedInSession(t, model.RoleMember)
	p := newUsersPage(backend, member, 0, DefaultKeyMap(), logger.Nop())
	p.Mount()
	if p.users.snapshot().Mounted {
		t.Fatal("users list mounted for a member")
	}
	if cmd, _ := p.Update(keyRunes("n")); cmd != nil {
		t.Fatal("member could open the register form")
	}
	cmd, _ := p.Update(keyRunes("P"))
	if cmd == nil {
		t.Fatal("member could not open change password")
	}
	if m, ok := cmd().(ActionMsg); !ok || m.Action != ActionPushModal {
		t.Fatalf("P produced %+v", m)
	}

	admin := signedInSession(t, model.RoleAdmin)
	q := newUsersPage(backend, admin, 0, DefaultKeyMap(), logger.Nop())
	q.Mount()
	if !q.users.snapshot().Mounted {
		t.Fatal("users list not mounted for an admin")
	}
	q.Update(q.users.fetchCmd(1)())
	if cmd, _ := q.Update(mutationDoneMsg{pageID: pageUsers, op: "register"}); cmd == nil {
		t.Fatal("register did not refresh the list")
	}
	if !q.users.snapshot().InFlight {
		t.Fatal("users list not invalidated")
	}
}

func TestFormModalValidation(t *testing.T) {
	t.Parallel()

	var got []string
	m := newFormModal("f", "Form", []formField{{Label: "Name", Required: true}, {Label: "Note"}}, DefaultKeyMap(),
		func(v []string) (tea.Cmd, error) {
			got = v
			return nil, nil
		})

	if pop, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS}); pop {
		t.Fatal("submitted with an empty required field")
	}
	if !strings.Contains(m.View(80, 24), "Name is required") {
		t.Error("validation error not shown")
	}

	m.Update(keyRunes("Ada"))
	if pop, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS}); !pop {
		t.Fatal("valid form did not close")
	}
	if len(got) != 2 || got[0] != "Ada" {
		t.Fatalf("values = %q", got)
	}
}
