package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stardeck/stardeck/internal/model"
)

func TestSession_SignInSignOut(t *testing.T) {
	t.Parallel()

	s := New()
	if s.Authenticated() {
		t.Fatal("new session should be signed out")
	}

	err := s.SignIn(model.Token{
		AccessToken: "tok-1",
		TokenType:   "bearer",
		User:        model.User{ID: 1, Username: "ada", Role: model.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got := s.Token(); got != "tok-1" {
		t.Errorf("Token() = %q, want tok-1", got)
	}
	if !s.IsAdmin() {
		t.Error("IsAdmin() = false, want true")
	}

	if err := s.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if s.Authenticated() || s.IsAdmin() {
		t.Error("session still authenticated after SignOut")
	}
	if _, ok := s.User(); ok {
		t.Error("User() ok after SignOut")
	}
}

func TestSession_RejectsEmptyToken(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.SignIn(model.Token{AccessToken: "  "}); err == nil {
		t.Fatal("SignIn with blank token succeeded")
	}
	if s.Authenticated() {
		t.Fatal("blank token must not authenticate")
	}
}

func TestSession_PersistsAcrossLoads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "session.yml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if s.Authenticated() {
		t.Fatal("missing file should load signed out")
	}

	if err := s.SignIn(model.Token{
		AccessToken: "persisted",
		User:        model.User{ID: 4, Username: "grace", Role: model.RoleMember},
	}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file mode = %o, want 600", perm)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Token(); got != "persisted" {
		t.Errorf("reloaded token = %q, want persisted", got)
	}
	u, ok := reloaded.User()
	if !ok || u.Username != "grace" || reloaded.IsAdmin() {
		t.Errorf("reloaded user = %+v ok=%v", u, ok)
	}

	if err := reloaded.SignOut(); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("session file still present after SignOut: %v", err)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.yml")
	if err := os.WriteFile(path, []byte("token: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load corrupt file succeeded")
	}
}

func TestSession_FailedWriteLeavesSessionUnchanged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "state", "session.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// A regular file where the parent directory should be makes the write fail.
	if err := os.WriteFile(filepath.Join(dir, "state"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	err = s.SignIn(model.Token{AccessToken: "tok", User: model.User{ID: 1, Username: "ada", Role: model.RoleAdmin}})
	if err == nil {
		t.Fatal("SignIn succeeded although the session file cannot be written")
	}
	if s.Authenticated() || s.Token() != "" {
		t.Fatalf("session signed in after failed write: token=%q", s.Token())
	}
	if _, ok := s.User(); ok || s.IsAdmin() {
		t.Fatal("user set after failed write")
	}
}
