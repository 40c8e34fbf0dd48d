package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agustinboza/CuralisPatientMobile/internal/api"
	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

var ErrNotLoggedIn = errors.New("not logged in")

const sessionFile = "session.json"

// session is the single blob persisted client-side: the bearer token plus a
// cached copy of the user, nothing else.
type session struct {
	Token   string     `json:"token"`
	User    model.User `json:"user"`
	SavedAt time.Time  `json:"saved_at"`
}

// Store persists the auth session under the data dir and feeds the bearer
// token to the API client. Safe for concurrent use.
type Store struct {
	dir    string
	client *api.Client

	mu   sync.RWMutex
	sess *session
}

func NewStore(dir string, client *api.Client) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{dir: dir, client: client}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Token implements api.TokenSource. An expired token reads as logged out so
// stale sessions fall through to the server's 401 path at most once.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sess == nil || tokenExpired(s.sess.Token) {
		return ""
	}
	return s.sess.Token
}

func (s *Store) Current() (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sess == nil || tokenExpired(s.sess.Token) {
		return nil, ErrNotLoggedIn
	}
	u := s.sess.User
	return &u, nil
}

func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.save(resp.Token, resp.User); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (s *Store) Signup(ctx context.Context, req api.SignupRequest) (*model.User, error) {
	resp, err := s.client.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.save(resp.Token, resp.User); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout clears the local session. The server call is best effort; the local
// wipe happens regardless so the device never keeps a token the user asked
// to discard.
func (s *Store) Logout(ctx context.Context) error {
	apiErr := s.client.Logout(ctx)

	s.mu.Lock()
	s.sess = nil
	s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return apiErr
}

// Clear wipes the local session without a server call. Used as the global
// unauthorized hook.
func (s *Store) Clear() {
	s.mu.Lock()
	s.sess = nil
	s.mu.Unlock()
	_ = os.Remove(s.path())
}

// UpdateCachedUser refreshes the cached user blob after a profile change.
func (s *Store) UpdateCachedUser(u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		return ErrNotLoggedIn
	}
	s.sess.User = u
	return s.writeLocked()
}

func (s *Store) path() string {
	return filepath.Join(s.dir, sessionFile)
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session file: %w", err)
	}

	var sess session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// Corrupt session file, start logged out rather than failing launch.
		return nil
	}

	s.sess = &sess
	return nil
}

func (s *Store) save(token string, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = &session{Token: token, User: user, SavedAt: time.Now()}
	return s.writeLocked()
}

func (s *Store) writeLocked() error {
	raw, err := json.Marshal(s.sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path(), raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// tokenExpired parses the JWT without verifying the signature (the client
// does not hold the server's key) and checks the exp claim only.
func tokenExpired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false // opaque tokens are left to the server to judge
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
