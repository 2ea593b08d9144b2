package services_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/remote"
	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/synthetic"
	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/tokenstore"
	"github.com/lorrc/civic-dashboard/internal/auth"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/mocks"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/services"
	"github.com/lorrc/civic-dashboard/internal/core/viewmodel"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/logging"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
	"github.com/lorrc/civic-dashboard/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	service    *services.SessionService
	gateway    *services.Gateway
	latch      *services.Availability
	store      *session.Store
	persisted  *tokenstore.Memory
	tokens     *auth.TokenManager
	remote     *mocks.MockRemoteAPI
	push       *mocks.PushChannel
	reconciler *viewmodel.Reconciler
	clock      *testClock
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	return newSessionFixtureWithRemote(t, nil)
}

// newSessionFixtureWithRemote wires the service against api, or against a
// testify mock when api is nil.
func newSessionFixtureWithRemote(t *testing.T, build func(store *session.Store) ports.RemoteAPI) *sessionFixture {
	t.Helper()
	logger := logging.Discard()
	clock := newTestClock()
	m := metrics.New(prometheus.NewRegistry())

	persisted := tokenstore.NewMemory()
	store := session.NewStore(persisted, logger)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	local := session.NewMockAuthenticator(tokens, session.WithClock(clock.Now))
	latch := services.NewAvailability(30*time.Second, clock.Now, logger, m)
	push := mocks.NewPushChannel()
	reconciler := viewmodel.NewReconciler(logger, viewmodel.WithClock(clock.Now))
	source := synthetic.NewSource(testSeed, logger, synthetic.WithClock(clock.Now))

	f := &sessionFixture{
		latch:      latch,
		store:      store,
		persisted:  persisted,
		tokens:     tokens,
		push:       push,
		reconciler: reconciler,
		clock:      clock,
	}

	var api ports.RemoteAPI
	if build != nil {
		api = build(store)
	} else {
		f.remote = mocks.NewMockRemoteAPI()
		api = f.remote
	}

	f.gateway = services.NewGateway(api, source, latch, logger, m)
	f.service = services.NewSessionService(store, api, local, latch, push, reconciler, logger)
	return f
}

func (f *sessionFixture) remoteDown() {
	down := networkDown("POST /auth/login")
	f.remote.On("RequestLogin", mock.Anything, mock.Anything).Return(down)
}

func TestSessionService_RemoteLogin(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	user := &domain.User{ID: 12, Name: "Remote Admin", Email: "ops@city.gov", Role: domain.RoleAdmin}
	f.remote.On("RequestLogin", ctx, "ops@city.gov").Return(nil).Once()
	f.remote.On("VerifyLogin", ctx, "778899").Return(&ports.LoginResult{Token: "remote-jwt", User: user}, nil).Once()

	require.NoError(t, f.service.RequestCode(ctx, "ops@city.gov"))
	assert.Equal(t, services.StateOTPPending, f.service.State())

	res, err := f.service.VerifyCode(ctx, "778899")
	require.NoError(t, err)

	assert.Equal(t, "remote-jwt", res.Token)
	assert.Equal(t, services.StateAuthenticated, f.service.State())
	assert.False(t, f.service.IsOffline())
	assert.Equal(t, "remote-jwt", f.store.Token())
	assert.Equal(t, user, f.service.CurrentUser())
	assert.Equal(t, services.ModeLive, f.gateway.Mode())

	saved, err := f.persisted.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote-jwt", saved)

	assert.Equal(t, 1, f.push.Connects())
	assert.Equal(t, 1, f.push.ListenerCount(domain.EventTicketCreated))
	f.remote.AssertExpectations(t)
}

func TestSessionService_RemoteRejectionIsNotOffline(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.remote.On("RequestLogin", ctx, "nobody@city.gov").
		Return(apperrors.FromStatus(http.StatusNotFound, "User not found")).Once()

	err := f.service.RequestCode(ctx, "nobody@city.gov")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, services.StateAnonymous, f.service.State())
	assert.False(t, f.service.IsOffline())
	assert.Equal(t, services.ModeLive, f.gateway.Mode())
}

func TestSessionService_RemoteVerifyFailure(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.remote.On("RequestLogin", ctx, "ops@city.gov").Return(nil).Once()
	f.remote.On("VerifyLogin", ctx, "000000").
		Return(nil, apperrors.FromStatus(http.StatusBadRequest, "Invalid OTP")).Once()

	require.NoError(t, f.service.RequestCode(ctx, "ops@city.gov"))
	_, err := f.service.VerifyCode(ctx, "000000")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, services.StateOTPPending, f.service.State())
	assert.Empty(t, f.store.Token())
}

func TestSessionService_FallsBackToLocalAuth(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.remoteDown()

	require.NoError(t, f.service.RequestCode(ctx, "admin@civic.com"))
	assert.True(t, f.service.IsOffline())
	assert.Equal(t, services.StateOTPPending, f.service.State())
	assert.Equal(t, services.ModeOffline, f.gateway.Mode())

	f.clock.Advance(4 * time.Minute)
	res, err := f.service.VerifyCode(ctx, session.MockCode)
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.True(t, f.tokens.IsLocal(res.Token))
	assert.Equal(t, int64(1), res.User.ID)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)
	assert.Equal(t, services.StateAuthenticated, f.service.State())
	assert.Equal(t, res.Token, f.store.Token())

	f.remote.AssertNotCalled(t, "VerifyLogin", mock.Anything, mock.Anything)
}

func TestSessionService_LocalAuthErrors(t *testing.T) {
	t.Run("unknown identifier", func(t *testing.T) {
		ctx := context.Background()
		f := newSessionFixture(t)
		f.remoteDown()

		err := f.service.RequestCode(ctx, "stranger@civic.com")

		assert.ErrorIs(t, err, apperrors.ErrUnknownIdentifier)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "SESSION_ERROR", appErr.Code)
		assert.Equal(t, services.StateAnonymous, f.service.State())
	})

	t.Run("wrong code keeps the challenge", func(t *testing.T) {
		ctx := context.Background()
		f := newSessionFixture(t)
		f.remoteDown()
		require.NoError(t, f.service.RequestCode(ctx, "+1122334455"))

		_, err := f.service.VerifyCode(ctx, "111111")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCode)

		res, err := f.service.VerifyCode(ctx, session.MockCode)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleWorker, res.User.Role)
	})

	t.Run("expired challenge", func(t *testing.T) {
		ctx := context.Background()
		f := newSessionFixture(t)
		f.remoteDown()
		require.NoError(t, f.service.RequestCode(ctx, "admin@civic.com"))

		f.clock.Advance(6 * time.Minute)
		_, err := f.service.VerifyCode(ctx, session.MockCode)

		assert.ErrorIs(t, err, apperrors.ErrChallengeExpired)
		assert.Empty(t, f.store.Token())
	})
}

func TestSessionService_Validation(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)

	err := f.service.RequestCode(ctx, "not-an-identifier")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.VerifyCode(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.VerifyCode(ctx, "123456")
	assert.ErrorIs(t, err, apperrors.ErrNoChallenge)

	f.remote.AssertNotCalled(t, "RequestLogin", mock.Anything, mock.Anything)
	f.remote.AssertNotCalled(t, "VerifyLogin", mock.Anything, mock.Anything)
}

func TestSessionService_AlreadySignedIn(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.remoteDown()
	require.NoError(t, f.service.RequestCode(ctx, "admin@civic.com"))
	_, err := f.service.VerifyCode(ctx, session.MockCode)
	require.NoError(t, err)

	err = f.service.RequestCode(ctx, "worker@civic.com")

	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Equal(t, services.StateAuthenticated, f.service.State())
}

func TestSessionService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.remoteDown()
	require.NoError(t, f.service.RequestCode(ctx, "admin@civic.com"))
	_, err := f.service.VerifyCode(ctx, session.MockCode)
	require.NoError(t, err)
	require.NoError(t, f.push.Deliver(domain.EventTicketCreated, domain.Ticket{ID: 900, Status: domain.StatusSubmitted}))
	require.Equal(t, 1, f.reconciler.Board.Len())

	require.NoError(t, f.service.Logout(ctx))

	assert.Equal(t, services.StateAnonymous, f.service.State())
	assert.False(t, f.service.IsOffline())
	assert.Nil(t, f.service.CurrentUser())
	assert.Empty(t, f.store.Token())
	assert.Equal(t, 1, f.push.Disconnects())
	assert.Equal(t, 0, f.reconciler.Board.Len())
	assert.Empty(t, f.reconciler.Feed.Items())
	assert.Equal(t, services.ModeLive, f.gateway.Mode(), "the next sign-in probes the remote again")

	saved, err := f.persisted.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestSessionService_RemoteRejectionEndsSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	f.remote.On("RequestLogin", ctx, "ops@city.gov").Return(nil).Once()
	f.remote.On("VerifyLogin", ctx, "778899").
		Return(&ports.LoginResult{Token: "remote-jwt", User: &domain.User{ID: 12, Role: domain.RoleAdmin}}, nil).Once()
	require.NoError(t, f.service.RequestCode(ctx, "ops@city.gov"))
	_, err := f.service.VerifyCode(ctx, "778899")
	require.NoError(t, err)

	assert.False(t, f.store.ClearIfCurrent("older-token"))
	assert.Equal(t, services.StateAuthenticated, f.service.State())

	assert.True(t, f.store.ClearIfCurrent("remote-jwt"))
	assert.Equal(t, services.StateAnonymous, f.service.State())
	assert.False(t, f.push.IsConnected())
	assert.Empty(t, f.store.Token())
}

func TestSessionService_Restore(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		ctx := context.Background()
		f := newSessionFixture(t)

		require.NoError(t, f.service.Restore(ctx))

		assert.Equal(t, services.StateAnonymous, f.service.State())
		f.remote.AssertNotCalled(t, "CurrentUser", mock.Anything)
	})

	t.Run("local token", func(t *testing.T) {
		ctx := context.Background()
		f := newSessionFixture(t)
		token, err := f.tokens.GenerateToken(2)
		require.NoError(t, err)
		require.NoError(t, f.persisted.Save(ctx, token))

		require.NoError(t, f.service.Restore(ctx))

		assert.Equal(t, services.StateAuthenticated, f.service.State())
		assert.True(t, f.service.IsOffline())
		assert.Equal(t, domain.RoleSuperAdmin, f.service.CurrentUser().Role)
		assert.Equal(t, services.ModeOffline, f.gateway.Mode())
		assert.True(t, f.push.IsConnected())
		f.remote.AssertNotCalled(t, "CurrentUser", mock.Anything)
	})

	t.Run("remote token", func(t *testing.T) {
		ctx := context.Background()
		f := newSessionFixture(t)
		require.NoError(t, f.persisted.Save(ctx, "remote-jwt"))
		user := &domain.User{ID: 12, Name: "Remote Admin", Role: domain.RoleAdmin}
		f.remote.On("CurrentUser", ctx).Return(user, nil).Once()

		require.NoError(t, f.service.Restore(ctx))

		assert.Equal(t, services.StateAuthenticated, f.service.State())
		assert.False(t, f.service.IsOffline())
		assert.Equal(t, user, f.service.CurrentUser())
		assert.Equal(t, "remote-jwt", f.store.Token())
	})

	t.Run("rejected token is removed", func(t *testing.T) {
		ctx := context.Background()
		f := newSessionFixture(t)
		require.NoError(t, f.persisted.Save(ctx, "stale-jwt"))
		f.remote.On("CurrentUser", ctx).Return(nil, apperrors.FromStatus(http.StatusUnauthorized, "Token expired")).Once()

		require.NoError(t, f.service.Restore(ctx))

		assert.Equal(t, services.StateAnonymous, f.service.State())
		assert.Empty(t, f.store.Token())
		saved, err := f.persisted.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, saved)
	})
}

// Signing in against an unreachable remote ends in the offline session with
// synthetic data: admin@civic.com, code 123456, then the ticket list.
func TestSessionService_OfflineSignInScenario(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	f := newSessionFixtureWithRemote(t, func(store *session.Store) ports.RemoteAPI {
		return remote.NewClient(remote.Config{BaseURL: baseURL, Timeout: 2 * time.Second},
			store, nil, logging.Discard(), metrics.New(prometheus.NewRegistry()))
	})

	require.NoError(t, f.service.RequestCode(ctx, "admin@civic.com"))
	f.clock.Advance(time.Minute)
	res, err := f.service.VerifyCode(ctx, "123456")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)

	page, err := f.gateway.ListTickets(ctx, domain.TicketFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, synthetic.TicketCount)
	assert.Equal(t, synthetic.TicketCount, page.Total)

	ids := make(map[int64]bool, len(page.Items))
	for i, tk := range page.Items {
		ids[tk.ID] = true
		if i > 0 {
			assert.False(t, tk.CreatedAt.After(page.Items[i-1].CreatedAt), "newest first")
		}
	}
	for id := int64(1); id <= 4; id++ {
		assert.True(t, ids[id], "seed ticket %d present", id)
	}
}

// A remote that never answers must not stall sign-in or later reads past
// the client timeout.
func TestSessionService_HangingRemoteIsBounded(t *testing.T) {
	ctx := context.Background()
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.CloseClientConnections()
		srv.Close()
	})

	f := newSessionFixtureWithRemote(t, func(store *session.Store) ports.RemoteAPI {
		return remote.NewClient(remote.Config{BaseURL: srv.URL, Timeout: 200 * time.Millisecond},
			store, nil, logging.Discard(), metrics.New(prometheus.NewRegistry()))
	})

	start := time.Now()
	require.NoError(t, f.service.RequestCode(ctx, "admin@civic.com"))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, f.service.IsOffline())

	_, err := f.service.VerifyCode(ctx, session.MockCode)
	require.NoError(t, err)

	start = time.Now()
	for range 5 {
		_, err := f.gateway.ListTickets(ctx, domain.TicketFilters{})
		require.NoError(t, err)
		_, err = f.gateway.GetAnalytics(ctx)
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int32(1), hits.Load(), "only the login probe reached the remote")
}
