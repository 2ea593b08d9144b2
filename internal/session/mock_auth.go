package session

import (
	"sync"
	"time"

	"github.com/lorrc/civic-dashboard/internal/auth"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
)

const (
	// MockCode is the only code the local authenticator accepts.
	MockCode = "123456"
	// ChallengeTTL bounds how long an issued code stays valid.
	ChallengeTTL = 5 * time.Minute
)

// DemoUsers is the allow-list of identities the local authenticator knows.
func DemoUsers() []domain.User {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.User{
		{ID: 1, Name: "John Admin", Phone: "+1234567890", Email: "admin@civic.com", Role: domain.RoleAdmin, CreatedAt: created},
		{ID: 2, Name: "Jane Super Admin", Phone: "+0987654321", Email: "superadmin@civic.com", Role: domain.RoleSuperAdmin, CreatedAt: created},
		{ID: 3, Name: "Bob Worker", Phone: "+1122334455", Email: "worker@civic.com", Role: domain.RoleWorker, CreatedAt: created},
	}
}

type challenge struct {
	user     domain.User
	issuedAt time.Time
}

// MockAuthenticator implements the one-time-code flow locally. It holds at
// most one pending challenge.
type MockAuthenticator struct {
	mu      sync.Mutex
	users   []domain.User
	tokens  *auth.TokenManager
	now     func() time.Time
	pending *challenge
}

// MockOption customizes a MockAuthenticator.
type MockOption func(*MockAuthenticator)

// WithClock replaces the time source.
func WithClock(now func() time.Time) MockOption {
	return func(m *MockAuthenticator) { m.now = now }
}

// WithUsers replaces the allow-list.
func WithUsers(users []domain.User) MockOption {
	return func(m *MockAuthenticator) { m.users = users }
}

// NewMockAuthenticator creates an authenticator that mints tokens with tokens.
func NewMockAuthenticator(tokens *auth.TokenManager, opts ...MockOption) *MockAuthenticator {
	m := &MockAuthenticator{
		users:  DemoUsers(),
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ ports.Authenticator = (*MockAuthenticator)(nil)

// RequestCode opens a challenge for identifier, replacing any pending one.
func (m *MockAuthenticator) RequestCode(identifier string) error {
	user, ok := m.lookup(func(u *domain.User) bool { return u.Matches(identifier) })
	if !ok {
		return apperrors.ErrUnknownIdentifier
	}
	m.mu.Lock()
	m.pending = &challenge{user: user, issuedAt: m.now()}
	m.mu.Unlock()
	return nil
}

// VerifyCode completes the pending challenge.
func (m *MockAuthenticator) VerifyCode(code string) (*ports.LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return nil, apperrors.ErrNoChallenge
	}
	if m.now().Sub(m.pending.issuedAt) > ChallengeTTL {
		m.pending = nil
		return nil, apperrors.ErrChallengeExpired
	}
	if code != MockCode {
		return nil, apperrors.ErrInvalidCode
	}

	user := m.pending.user
	token, err := m.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	m.pending = nil
	return &ports.LoginResult{Token: token, User: &user}, nil
}

// UserForToken resolves a locally minted token back to its user.
func (m *MockAuthenticator) UserForToken(token string) (*domain.User, error) {
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	user, ok := m.lookup(func(u *domain.User) bool { return u.ID == claims.UserID })
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	return &user, nil
}

// IsLocalToken reports whether token was minted here.
func (m *MockAuthenticator) IsLocalToken(token string) bool {
	return m.tokens.IsLocal(token)
}

// Reset drops any pending challenge.
func (m *MockAuthenticator) Reset() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

func (m *MockAuthenticator) lookup(match func(*domain.User) bool) (domain.User, bool) {
	for i := range m.users {
		if match(&m.users[i]) {
			return m.users[i], true
		}
	}
	return domain.User{}, false
}
