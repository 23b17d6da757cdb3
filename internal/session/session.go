package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stardeck/stardeck/internal/model"
	"gopkg.in/yaml.v3"
)

// Session holds the signed-in user and bearer token. It is created once by the
// entrypoint and passed explicitly to the API client and the TUI; nothing in the
// process reads authentication state from anywhere else.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *model.User
	path  string // optional persistence file
}

// New returns an empty, signed-out session.
func New() *Session {
	return &Session{}
}

// Token returns the current bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// IsAdmin reports whether the signed-in user has the admin role.
func (s *Session) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.Role == model.RoleAdmin
}

// SignIn replaces the session contents with the login response. A file-backed
// session is written first; on a write error the session is left unchanged.
func (s *Session) SignIn(tok model.Token) error {
	if strings.TrimSpace(tok.AccessToken) == "" {
		return errors.New("session: empty access token")
	}
	user := tok.User

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := save(s.path, fileFormat{Token: tok.AccessToken, User: &user}); err != nil {
		return err
	}
	s.token = tok.AccessToken
	s.user = &user
	return nil
}

// SignOut clears the session and removes the persisted copy.
func (s *Session) SignOut() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	path := s.path
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: remove: %w", err)
	}
	return nil
}

type fileFormat struct {
	Token string      `yaml:"token"`
	User  *model.User `yaml:"user,omitempty"`
}

// Load opens a file-backed session. A missing file yields a signed-out session
// that will be written to path on the next SignIn.
func Load(path string) (*Session, error) {
	s := &Session{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("session: read: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", path, err)
	}
	s.token = f.Token
	s.user = f.User
	return s, nil
}

func save(path string, f fileFormat) error {
	if path == "" {
		return nil
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return nil
}
