package tui

import (
	"context"
	"sync"
	"testing"

	"github.com/stardeck/stardeck/internal/model"
	"github.com/stardeck/stardeck/internal/session"
)

// fakeBackend is an in-memory model.Backend that counts calls.
type fakeBackend struct {
	mu sync.Mutex

	summary   model.DashboardSummary
	active    []model.RefiningJob
	completed []model.CompletedRefiningJob
	materials []model.MaterialMarket
	events    []model.HistoryEvent
	tags      []string
	crew      []model.CrewMember
	users     []model.User

	// sess is signed in on a successful Login, as the real client does.
	sess *session.Session

	err      error
	loginErr error
	calls    map[string]int
	filters  []model.HistoryFilter
	deleted  []int
}

var _ model.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) count(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.err
}

func (f *fakeBackend) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Dashboard(context.Context) (model.DashboardSummary, error) {
	return f.summary, f.count("dashboard")
}

func (f *fakeBackend) ActiveRefining(context.Context) ([]model.RefiningJob, error) {
	return f.active, f.count("active")
}

func (f *fakeBackend) RefiningHistory(context.Context, int, int) ([]model.CompletedRefiningJob, error) {
	return f.completed, f.count("refining-history")
}

func (f *fakeBackend) MarketMaterials(context.Context) ([]model.MaterialMarket, error) {
	return f.materials, f.count("materials")
}

func (f *fakeBackend) HistoryEvents(_ context.Context, filter model.HistoryFilter) ([]model.HistoryEvent, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	return f.events, f.count("history")
}

func (f *fakeBackend) CreateHistoryEvent(_ context.Context, in model.HistoryEventInput) (model.HistoryEvent, error) {
	return model.HistoryEvent{Title: in.Title}, f.count("create-event")
}

func (f *fakeBackend) DeleteHistoryEvent(_ context.Context, id int) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return f.count("delete-event")
}

func (f *fakeBackend) HistoryTags(context.Context) ([]string, error) {
	return f.tags, f.count("tags")
}

func (f *fakeBackend) AvailableCrew(context.Context) ([]model.CrewMember, error) {
	return f.crew, f.count("crew")
}

func (f *fakeBackend) Login(_ context.Context, creds model.Credentials) (model.Token, error) {
	f.count("login")
	if f.loginErr != nil {
		return model.Token{}, f.loginErr
	}
	tok := model.Token{AccessToken: "tok", TokenType: "bearer", User: model.User{ID: 1, Username: creds.Username, Role: model.RoleAdmin}}
	if f.sess != nil {
		if err := f.sess.SignIn(tok); err != nil {
			return model.Token{}, err
		}
	}
	return tok, nil
}

func (f *fakeBackend) Me(context.Context) (model.User, error) {
	return model.User{ID: 1, Username: "ada", Role: model.RoleAdmin}, f.count("me")
}

func (f *fakeBackend) Users(context.Context) ([]model.User, error) {
	return f.users, f.count("users")
}

func (f *fakeBackend) Register(_ context.Context, in model.NewUser) (model.User, error) {
	return model.User{Username: in.Username, Role: in.Role}, f.count("register")
}

func (f *fakeBackend) ResetPassword(context.Context, int, string) error {
	return f.count("reset-password")
}

func (f *fakeBackend) ChangePassword(context.Context, model.PasswordChange) error {
	return f.count("change-password")
}

func signedInSession(t *testing.T, role string) *session.Session {
	t.Helper()
	sess := session.New()
	if err := sess.SignIn(model.Token{AccessToken: "tok", User: model.User{ID: 1, Username: "ada", Role: role}}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	return sess
}

func ptr[T any](v T) *T { return &v }
