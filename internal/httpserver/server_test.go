package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stardeck/stardeck/internal/apiclient"
	"github.com/stardeck/stardeck/internal/model"
	"github.com/stardeck/stardeck/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testFixtures() Fixtures {
	return Fixtures{
		Users: []FixtureUser{
			{Username: "admin", Password: "admin123", Role: model.RoleAdmin},
			{Username: "pilot", Password: "pilot123", Role: model.RoleMember},
			{Username: "ghost", Password: "ghost123", Inactive: true},
		},
		Stock: []FixtureStock{{Material: "Gold", Quantity: 10}, {Material: "Scrap", Quantity: 5}},
		Materials: []FixtureMaterial{
			{Name: "Gold", Category: "Metal", AvgSell: price(100)},
			{Name: "Scrap", Category: "Salvage"},
		},
		Refining: []FixtureRefining{{Material: "Gold", Quantity: 4, TotalSeconds: 600, StartedAgo: 100}},
		Completed: []FixtureRefining{
			{Material: "Scrap", Quantity: 1, TotalSeconds: 60, StartedAgo: 7200},
			{Material: "Gold", Quantity: 2, TotalSeconds: 60, StartedAgo: 3600},
		},
		Events: []FixtureEvent{
			{Title: "Sold gold", Tags: []string{"trade"}, Location: "Area18", User: "admin", DaysAgo: 2},
			{Title: "Salvage run", Description: "hull near CRU", Tags: []string{"salvage"}, User: "pilot", Crew: []string{"admin"}, DaysAgo: 1},
		},
	}
}

func newTestServer(t *testing.T, opts Options) (*Server, *fakeClock, http.Handler) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	srv := NewServer("", NewStore(testFixtures(), clock.Now), opts)
	return srv, clock, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func login(t *testing.T, h http.Handler, user, password string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/auth/login", "", model.Credentials{Username: user, Password: password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", user, w.Code, w.Body.String())
	}
	return decode[model.Token](t, w).AccessToken
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})

	w := do(t, h, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if body := decode[map[string]any](t, w); body["status"] != "ok" {
		t.Errorf("health = %v", body)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})

	w := do(t, h, http.MethodPost, "/auth/login", "", model.Credentials{Username: "admin", Password: "admin123"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	tok := decode[model.Token](t, w)
	if tok.AccessToken == "" || tok.TokenType != "bearer" || tok.User.Role != model.RoleAdmin {
		t.Fatalf("token = %+v", tok)
	}

	cases := []struct {
		name   string
		creds  model.Credentials
		status int
		detail string
	}{
		{"wrong password", model.Credentials{Username: "admin", Password: "nope"}, http.StatusUnauthorized, "Incorrect username or password"},
		{"unknown user", model.Credentials{Username: "nobody", Password: "x"}, http.StatusUnauthorized, "Incorrect username or password"},
		{"inactive", model.Credentials{Username: "ghost", Password: "ghost123"}, http.StatusBadRequest, "Inactive user"},
		{"missing fields", model.Credentials{Username: "admin"}, http.StatusUnprocessableEntity, "username and password are required"},
	}
	for _, tc := range cases {
		w := do(t, h, http.MethodPost, "/auth/login", "", tc.creds)
		if w.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.status)
		}
		if got := decode[map[string]string](t, w)["detail"]; got != tc.detail {
			t.Errorf("%s: detail = %q, want %q", tc.name, got, tc.detail)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})

	for _, path := range []string{"/auth/me", "/stats/history", "/auth/users", "/stats/history/tags/available"} {
		w := do(t, h, http.MethodGet, path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: %d", path, w.Code)
		}
		w = do(t, h, http.MethodGet, path, "forged", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: %d", path, w.Code)
		}
	}

	// Economy views are public.
	for _, path := range []string{"/dashboard/", "/refining/active", "/market/materials", "/refining/history"} {
		if w := do(t, h, http.MethodGet, path, "", nil); w.Code != http.StatusOK {
			t.Errorf("%s: %d", path, w.Code)
		}
	}
}

func TestAdminOnly(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})
	member := login(t, h, "pilot", "pilot123")
	admin := login(t, h, "admin", "admin123")

	w := do(t, h, http.MethodGet, "/auth/users", member, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("member users = %d", w.Code)
	}
	if got := decode[map[string]string](t, w)["detail"]; got != "Not enough permissions" {
		t.Fatalf("detail = %q", got)
	}

	w = do(t, h, http.MethodGet, "/auth/users", admin, nil)
	if w.Code != http.StatusOK || len(decode[[]model.User](t, w)) != 3 {
		t.Fatalf("admin users = %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/auth/register", admin, model.NewUser{Username: "newbie", Password: "secret1"})
	if w.Code != http.StatusOK || decode[model.User](t, w).Role != model.RoleMember {
		t.Fatalf("register = %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodPost, "/auth/register", admin, model.NewUser{Username: "newbie", Password: "secret1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register = %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/auth/reset-password/2", admin, model.PasswordReset{NewPassword: "reset12"})
	if w.Code != http.StatusOK {
		t.Fatalf("reset = %d", w.Code)
	}
	login(t, h, "pilot", "reset12")

	if w := do(t, h, http.MethodPost, "/auth/reset-password/99", admin, model.PasswordReset{NewPassword: "x"}); w.Code != http.StatusNotFound {
		t.Fatalf("reset unknown = %d", w.Code)
	}
	long := strings.Repeat("p", 73)
	if w := do(t, h, http.MethodPost, "/auth/reset-password/2", admin, model.PasswordReset{NewPassword: long}); w.Code != http.StatusBadRequest {
		t.Fatalf("reset with long password = %d", w.Code)
	}
}

func TestPasswordsAreHashed(t *testing.T) {
	t.Parallel()
	store := NewStore(testFixtures(), nil)
	for _, a := range store.accounts {
		if !strings.HasPrefix(string(a.hash), "$2a$") {
			t.Fatalf("account %s hash = %q", a.user.Username, a.hash)
		}
	}
	if _, err := store.Login("admin", "admin124"); err != errBadCredentials {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := store.Login("ghost", "ghost123"); err != errInactiveUser {
		t.Fatalf("inactive login err = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})
	tok := login(t, h, "pilot", "pilot123")

	w := do(t, h, http.MethodPost, "/auth/change-password", tok, model.PasswordChange{OldPassword: "wrong", NewPassword: "next123"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong old password = %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/auth/change-password", tok, model.PasswordChange{OldPassword: "pilot123", NewPassword: "next123"})
	if w.Code != http.StatusOK {
		t.Fatalf("change = %d", w.Code)
	}
	login(t, h, "pilot", "next123")
}

func TestRefiningCountdown(t *testing.T) {
	t.Parallel()
	_, clock, h := newTestServer(t, Options{})

	jobs := decode[[]model.RefiningJob](t, do(t, h, http.MethodGet, "/refining/active", "", nil))
	if len(jobs) != 1 || jobs[0].RemainingSeconds != 500 || jobs[0].TotalSeconds != 600 {
		t.Fatalf("jobs = %+v", jobs)
	}

	clock.Advance(200 * time.Second)
	jobs = decode[[]model.RefiningJob](t, do(t, h, http.MethodGet, "/refining/active", "", nil))
	if jobs[0].RemainingSeconds != 300 {
		t.Fatalf("after 200s remaining = %d", jobs[0].RemainingSeconds)
	}

	clock.Advance(310 * time.Second)
	jobs = decode[[]model.RefiningJob](t, do(t, h, http.MethodGet, "/refining/active", "", nil))
	if len(jobs) != 1 || jobs[0].RemainingSeconds != 0 {
		t.Fatalf("finished but uncollected = %+v", jobs)
	}

	clock.Advance(time.Minute)
	jobs = decode[[]model.RefiningJob](t, do(t, h, http.MethodGet, "/refining/active", "", nil))
	if len(jobs) != 0 {
		t.Fatalf("collected job still active: %+v", jobs)
	}
	history := decode[[]model.CompletedRefiningJob](t, do(t, h, http.MethodGet, "/refining/history?limit=1", "", nil))
	if len(history) != 1 || history[0].ID != 1 || history[0].DurationMinutes != 10 {
		t.Fatalf("history = %+v", history)
	}
}

func TestRefiningHistoryPaging(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})

	all := decode[[]model.CompletedRefiningJob](t, do(t, h, http.MethodGet, "/refining/history", "", nil))
	if len(all) != 2 || all[0].Material != "Gold" {
		t.Fatalf("history not newest first: %+v", all)
	}
	page := decode[[]model.CompletedRefiningJob](t, do(t, h, http.MethodGet, "/refining/history?limit=1&offset=1", "", nil))
	if len(page) != 1 || page[0].Material != "Scrap" {
		t.Fatalf("page = %+v", page)
	}
	if w := do(t, h, http.MethodGet, "/refining/history?limit=-1", "", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative limit = %d", w.Code)
	}
}

func TestDashboardSummary(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})

	s := decode[model.DashboardSummary](t, do(t, h, http.MethodGet, "/dashboard/", "", nil))
	if s.StockTotal != 15 || s.EstimatedStockValue != 1000 || s.ActiveRefining != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if len(s.RefiningHistory) != 2 || s.RefiningHistory[0].EndedAt.IsZero() {
		t.Fatalf("recent = %+v", s.RefiningHistory)
	}
}

func TestHistoryCRUD(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})
	admin := login(t, h, "admin", "admin123")
	member := login(t, h, "pilot", "pilot123")

	events := decode[[]model.HistoryEvent](t, do(t, h, http.MethodGet, "/stats/history", member, nil))
	if len(events) != 2 || events[0].Title != "Salvage run" {
		t.Fatalf("events not newest first: %+v", events)
	}
	if len(events[0].CrewMemberDetails) != 1 || events[0].CrewMemberDetails[0].Username != "admin" {
		t.Fatalf("crew not expanded: %+v", events[0].CrewMemberDetails)
	}

	byTag := decode[[]model.HistoryEvent](t, do(t, h, http.MethodGet, "/stats/history?tag=trade", member, nil))
	if len(byTag) != 1 || byTag[0].Title != "Sold gold" {
		t.Fatalf("tag filter = %+v", byTag)
	}
	bySearch := decode[[]model.HistoryEvent](t, do(t, h, http.MethodGet, "/stats/history?search=CRU", member, nil))
	if len(bySearch) != 1 || bySearch[0].Title != "Salvage run" {
		t.Fatalf("search = %+v", bySearch)
	}

	amount := 1200.0
	w := do(t, h, http.MethodPost, "/stats/history", member, model.HistoryEventInput{
		Title: "Bought fuel", Tags: []string{"fuel"}, CrewMembers: []int{}, Amount: &amount,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	created := decode[model.HistoryEvent](t, w)
	if created.ID != 3 || created.UserID != 2 || created.EventDate.IsZero() {
		t.Fatalf("created = %+v", created)
	}

	tags := decode[map[string][]string](t, do(t, h, http.MethodGet, "/stats/history/tags/available", member, nil))
	if strings.Join(tags["tags"], ",") != "fuel,salvage,trade" {
		t.Fatalf("tags = %v", tags)
	}

	if w := do(t, h, http.MethodPost, "/stats/history", member, model.HistoryEventInput{}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("untitled create = %d", w.Code)
	}

	// Members may only delete their own events; admins may delete any.
	if w := do(t, h, http.MethodDelete, "/stats/history/1", member, nil); w.Code != http.StatusForbidden {
		t.Fatalf("member deleting admin event = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/stats/history/3", member, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete own = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/stats/history/1", admin, nil); w.Code != http.StatusNoContent {
		t.Fatalf("admin delete = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/stats/history/1", admin, nil); w.Code != http.StatusNotFound {
		t.Fatalf("delete twice = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/stats/history/abc", admin, nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad id = %d", w.Code)
	}

	crew := decode[[]model.CrewMember](t, do(t, h, http.MethodGet, "/stats/history/users/available", member, nil))
	if len(crew) != 2 {
		t.Fatalf("crew should skip inactive users: %+v", crew)
	}
}

func TestFailureInjection(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{FailEvery: 3})

	var codes []int
	for range 6 {
		codes = append(codes, do(t, h, http.MethodGet, "/market/materials", "", nil).Code)
		// Health checks are not counted.
		do(t, h, http.MethodGet, "/health", "", nil)
	}
	want := []int{200, 200, 500, 200, 200, 500}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}

func TestLatency(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{Latency: 50 * time.Millisecond})

	start := time.Now()
	if w := do(t, h, http.MethodGet, "/market/materials", "", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("response after %v, want at least 50ms", elapsed)
	}
}

func TestUnknownRouteDetail(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})

	w := do(t, h, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound || decode[map[string]string](t, w)["detail"] != "Not Found" {
		t.Fatalf("404 = %d %s", w.Code, w.Body.String())
	}
}

// TestClientAgainstMock drives the real API client through the mock.
func TestClientAgainstMock(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, Options{})
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	sess := session.New()
	c, err := apiclient.New(apiclient.Config{BaseURL: ts.URL, Timeout: 2 * time.Second}, sess)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if _, err := c.Users(ctx); apiclient.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("users before login: %v", err)
	}
	if _, err := c.Login(ctx, model.Credentials{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !sess.IsAdmin() {
		t.Fatal("session not signed in as admin")
	}

	summary, err := c.Dashboard(ctx)
	if err != nil || summary.StockTotal != 15 {
		t.Fatalf("Dashboard: %+v, %v", summary, err)
	}
	materials, err := c.MarketMaterials(ctx)
	if err != nil || len(materials) != 2 || materials[1].AvgSellPrice != nil {
		t.Fatalf("MarketMaterials: %+v, %v", materials, err)
	}

	ev, err := c.CreateHistoryEvent(ctx, model.HistoryEventInput{Title: "Client event", Tags: []string{"api"}})
	if err != nil {
		t.Fatalf("CreateHistoryEvent: %v", err)
	}
	events, err := c.HistoryEvents(ctx, model.HistoryFilter{Tag: "api"})
	if err != nil || len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("HistoryEvents: %+v, %v", events, err)
	}
	if err := c.DeleteHistoryEvent(ctx, ev.ID); err != nil {
		t.Fatalf("DeleteHistoryEvent: %v", err)
	}
	tags, err := c.HistoryTags(ctx)
	if err != nil || strings.Join(tags, ",") != "salvage,trade" {
		t.Fatalf("HistoryTags: %v, %v", tags, err)
	}

	if _, err := c.Register(ctx, model.NewUser{Username: "rookie", Password: "rookie1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err = c.ChangePassword(ctx, model.PasswordChange{OldPassword: "bad", NewPassword: "whatever"})
	if apiclient.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("ChangePassword with wrong password: %v", err)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	srv := NewServer("127.0.0.1:0", NewStore(DefaultFixtures(), nil), Options{})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestLoadFixtures(t *testing.T) {
	t.Parallel()

	f, err := LoadFixtures("")
	if err != nil || len(f.Users) == 0 {
		t.Fatalf("defaults: %v", err)
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	writeFile(t, good, `
users:
  - {username: ada, password: pw, role: admin}
materials:
  - {name: Gold, category: Metal, avg_sell: 6100, best_sell: {name: Area18, system: Stanton}}
refining:
  - {material: Gold, quantity: 3, total_seconds: 60, started_ago: 30}
events:
  - {title: First, user: ada, tags: [x]}
`)
	f, err = LoadFixtures(good)
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	if *f.Materials[0].AvgSell != 6100 || f.Materials[0].BestSell.Name != "Area18" || f.Refining[0].StartedAgo != 30 {
		t.Fatalf("fixtures = %+v", f)
	}

	for name, body := range map[string]string{
		"no users":     "materials: []\n",
		"unknown user": "users: [{username: a, password: b}]\nevents: [{title: t, user: zed}]\n",
		"dup user":     "users: [{username: a, password: b}, {username: a, password: c}]\n",
		"bad role":     "users: [{username: a, password: b, role: owner}]\n",
		"not yaml":     "users: [\n",
	} {
		path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yml")
		writeFile(t, path, body)
		if _, err := LoadFixtures(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadFixtures(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("missing file: expected error")
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
