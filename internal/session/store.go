package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
)

const persistTimeout = 2 * time.Second

// Store holds the session token and the current user. The token is mirrored
// to a ports.TokenStore so a restart can resume the session.
type Store struct {
	mu    sync.RWMutex
	token string
	user  *domain.User

	persist ports.TokenStore
	logger  *slog.Logger

	hooksMu sync.Mutex
	hooks   []func()
}

// NewStore creates an empty store backed by persist.
func NewStore(persist ports.TokenStore, logger *slog.Logger) *Store {
	return &Store{
		persist: persist,
		logger:  logger.With("component", "session_store"),
	}
}

// Token returns the current bearer token or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, or nil when nobody is signed in.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether both a token and a user are present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// SetSession stores token and user and persists the token.
func (s *Store) SetSession(ctx context.Context, token string, user *domain.User) error {
	if err := s.persist.Save(ctx, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.user = copyUser(user)
	s.mu.Unlock()
	return nil
}

// SetUser replaces the current user without touching the token.
func (s *Store) SetUser(user *domain.User) {
	s.mu.Lock()
	s.user = copyUser(user)
	s.mu.Unlock()
}

// Load reads the persisted token into memory and returns it.
func (s *Store) Load(ctx context.Context) (string, error) {
	token, err := s.persist.Load(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

// Clear discards the token and user.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	return s.persist.Clear(ctx)
}

// ClearIfCurrent discards the session only if token is still the active
// one. Hooks registered with OnInvalidated run after a successful clear.
func (s *Store) ClearIfCurrent(token string) bool {
	s.mu.Lock()
	if token == "" || s.token != token {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persist.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear persisted token", "error", err)
	}

	s.hooksMu.Lock()
	hooks := append([]func(){}, s.hooks...)
	s.hooksMu.Unlock()
	for _, hook := range hooks {
		hook()
	}
	return true
}

// OnInvalidated registers fn to run whenever the remote rejects the session.
func (s *Store) OnInvalidated(fn func()) {
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, fn)
	s.hooksMu.Unlock()
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
