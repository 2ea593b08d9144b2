package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/validation"
	"github.com/lorrc/civic-dashboard/internal/core/viewmodel"
)

// SessionState is the position in the sign-in flow.
type SessionState string

const (
	StateAnonymous     SessionState = "anonymous"
	StateOTPPending    SessionState = "otp_pending"
	StateAuthenticated SessionState = "authenticated"
)

// SessionService runs the one-time-code sign-in flow against the remote
// service, switching to the local authenticator when the remote is unreachable.
type SessionService struct {
	store      ports.SessionStore
	remote     ports.RemoteAPI
	local      ports.Authenticator
	latch      *Availability
	push       ports.PushChannel
	reconciler *viewmodel.Reconciler
	logger     *slog.Logger

	// flowMu serializes sign-in steps; mu guards the fields below.
	flowMu  sync.Mutex
	mu      sync.Mutex
	state   SessionState
	offline bool
	detach  func()
}

func NewSessionService(
	store ports.SessionStore,
	remote ports.RemoteAPI,
	local ports.Authenticator,
	latch *Availability,
	push ports.PushChannel,
	reconciler *viewmodel.Reconciler,
	logger *slog.Logger,
) *SessionService {
	s := &SessionService{
		store:      store,
		remote:     remote,
		local:      local,
		latch:      latch,
		push:       push,
		reconciler: reconciler,
		logger:     logger.With("component", "session"),
		state:      StateAnonymous,
	}
	store.OnInvalidated(s.invalidated)
	return s
}

// State returns the current flow state.
func (s *SessionService) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsOffline reports whether the session uses the local authenticator.
func (s *SessionService) IsOffline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// CurrentUser returns the signed-in user, or nil.
func (s *SessionService) CurrentUser() *domain.User {
	if s.State() != StateAuthenticated {
		return nil
	}
	return s.store.User()
}

// RequestCode starts sign-in for an email address or phone number.
func (s *SessionService) RequestCode(ctx context.Context, identifier string) error {
	if err := validation.Identifier("phoneOrEmail", identifier); err != nil {
		return err
	}

	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	if s.State() == StateAuthenticated {
		return apperrors.NewConflictError(apperrors.ErrInvalidState, "Already signed in. Log out first.")
	}

	if !s.IsOffline() {
		err := s.remote.RequestLogin(ctx, identifier)
		switch {
		case err == nil:
			s.setState(StateOTPPending)
			return nil
		case !apperrors.IsNetworkUnavailable(err):
			return err
		}
		s.goOffline("remote unavailable during login")
	}

	if err := s.local.RequestCode(identifier); err != nil {
		return apperrors.NewSessionError(err)
	}
	s.setState(StateOTPPending)
	s.logger.InfoContext(ctx, "verification code issued locally")
	return nil
}

// VerifyCode completes sign-in with the one-time code.
func (s *SessionService) VerifyCode(ctx context.Context, code string) (*ports.LoginResult, error) {
	if err := validation.Var("otp", code, "required,max=12"); err != nil {
		return nil, err
	}

	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	var (
		res *ports.LoginResult
		err error
	)
	if s.IsOffline() {
		res, err = s.local.VerifyCode(code)
		if err != nil {
			return nil, apperrors.NewSessionError(err)
		}
	} else {
		if s.State() != StateOTPPending {
			return nil, apperrors.NewSessionError(apperrors.ErrNoChallenge)
		}
		res, err = s.remote.VerifyLogin(ctx, code)
		if err != nil {
			return nil, err
		}
	}
	if res.User == nil {
		return nil, apperrors.NewInternalError(errors.New("login response carried no user"))
	}

	if err := s.establish(ctx, res.Token, res.User); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "signed in", "user_id", res.User.ID, "role", res.User.Role, "offline", s.IsOffline())
	return res, nil
}

// Restore resumes a persisted session. Any failure leaves the service
// anonymous with the persisted token removed.
func (s *SessionService) Restore(ctx context.Context) error {
	s.flowMu.Lock()
	defer s.flowMu.Unlock()

	token, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	var user *domain.User
	if s.local.IsLocalToken(token) {
		user, err = s.local.UserForToken(token)
		if err == nil {
			s.goOffline("restored offline session")
		}
	} else {
		user, err = s.remote.CurrentUser(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "could not restore session", "error", err)
		_ = s.reset(ctx)
		return nil
	}

	if err := s.establish(ctx, token, user); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session restored", "user_id", user.ID, "offline", s.IsOffline())
	return nil
}

// Logout ends the session locally. No remote call is made.
func (s *SessionService) Logout(ctx context.Context) error {
	s.flowMu.Lock()
	defer s.flowMu.Unlock()
	return s.reset(ctx)
}

func (s *SessionService) establish(ctx context.Context, token string, user *domain.User) error {
	if err := s.store.SetSession(ctx, token, user); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.setState(StateAuthenticated)

	s.mu.Lock()
	if s.detach != nil {
		s.detach()
	}
	s.detach = s.reconciler.Attach(s.push)
	s.mu.Unlock()

	if err := s.push.Connect(ctx); err != nil {
		s.logger.WarnContext(ctx, "push channel unavailable", "error", err)
	}
	return nil
}

func (s *SessionService) goOffline(reason string) {
	s.mu.Lock()
	s.offline = true
	s.mu.Unlock()
	s.latch.TripSticky(reason)
}

func (s *SessionService) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *SessionService) reset(ctx context.Context) error {
	err := s.store.Clear(ctx)
	s.teardown()
	return err
}

// invalidated runs when the remote rejected the session token.
func (s *SessionService) invalidated() {
	s.logger.Warn("session rejected by remote service")
	s.teardown()
}

func (s *SessionService) teardown() {
	s.mu.Lock()
	s.state = StateAnonymous
	s.offline = false
	s.detach = nil
	s.mu.Unlock()

	s.push.Disconnect()
	s.local.Reset()
	s.latch.Reset()
	s.reconciler.Reset()
}
