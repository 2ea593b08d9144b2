package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/civic-dashboard/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/civic-dashboard/internal/adapters/primary/websocket"
	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/synthetic"
	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/tokenstore"
	"github.com/lorrc/civic-dashboard/internal/auth"
	"github.com/lorrc/civic-dashboard/internal/config"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/mocks"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/services"
	"github.com/lorrc/civic-dashboard/internal/core/viewmodel"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/logging"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
	"github.com/lorrc/civic-dashboard/internal/session"
)

const testSeed = 42

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeProbe struct{ reachable bool }

func (p fakeProbe) Reachable(context.Context) bool { return p.reachable }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

// testServer is the full dashboard surface over mocks of the remote service.
type testServer struct {
	handler    stdhttp.Handler
	remote     *mocks.MockRemoteAPI
	push       *mocks.PushChannel
	reconciler *viewmodel.Reconciler
	store      *session.Store
	gateway    *services.Gateway
	hub        *wsAdapter.Hub
}

type serverOption func(*serverOptions)

type serverOptions struct {
	codeLimiter *mw.RateLimitByKey
	tokenStore  HealthChecker
	reachable   bool
}

func withCodeLimiter(l *mw.RateLimitByKey) serverOption {
	return func(o *serverOptions) { o.codeLimiter = l }
}

func withTokenStore(p HealthChecker) serverOption {
	return func(o *serverOptions) { o.tokenStore = p }
}

func withReachableRemote() serverOption {
	return func(o *serverOptions) { o.reachable = true }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.Discard()
	now := func() time.Time { return epoch }
	m := metrics.New(prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	remote := mocks.NewMockRemoteAPI()
	push := mocks.NewPushChannel()
	hub := wsAdapter.NewHub(logger, wsAdapter.WithUpstream(push))
	go hub.Run(ctx)

	store := session.NewStore(tokenstore.NewMemory(), logger)
	local := session.NewMockAuthenticator(auth.NewTokenManager("test-secret", time.Hour), session.WithClock(now))
	source := synthetic.NewSource(testSeed, logger, synthetic.WithClock(now))
	latch := services.NewAvailability(30*time.Second, now, logger, m)
	gateway := services.NewGateway(remote, source, latch, logger, m)
	reconciler := viewmodel.NewReconciler(logger, viewmodel.WithClock(now), viewmodel.WithBroadcaster(hub))
	sessions := services.NewSessionService(store, remote, local, latch, push, reconciler, logger)
	loader := services.NewPageLoader(gateway, reconciler, push, logger)
	authz := services.NewAuthorizationService()
	errorHandler := NewErrorHandler(logger)

	handlers := Handlers{
		Auth:      NewAuthHandler(sessions, authz, gateway, mw.SessionAuth(store), o.codeLimiter, errorHandler, logger),
		Tickets:   NewTicketHandler(gateway, errorHandler, logger),
		Workers:   NewWorkerHandler(gateway, errorHandler, logger),
		Analytics: NewAnalyticsHandler(gateway, errorHandler, logger),
		Users:     NewAdminHandler(gateway, errorHandler, logger),
		Dashboard: NewDashboardHandler(loader, reconciler, errorHandler, logger),
		WebSocket: NewWebSocketHandler(hub, store, config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024}, true, errorHandler, logger),
		Health:    NewHealthHandler(fakeProbe{reachable: o.reachable}, push, gateway, o.tokenStore, "test"),
	}

	return &testServer{
		handler: NewRouter(RouterConfig{
			Session: store,
			Authz:   authz,
			Metrics: m,
			Logger:  logger,
		}, handlers),
		remote:     remote,
		push:       push,
		reconciler: reconciler,
		store:      store,
		gateway:    gateway,
		hub:        hub,
	}
}

// do sends a request with an optional JSON body and bearer token.
func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// signInOffline walks the sign-in flow while the remote is unreachable and
// returns the locally minted token.
func (s *testServer) signInOffline(t *testing.T, identifier string) string {
	t.Helper()
	s.remote.On("RequestLogin", mock.Anything, identifier).
		Return(&apperrors.NetworkError{Op: "POST /auth/login", Err: errors.New("connection refused")}).Once()

	rec := s.do(t, stdhttp.MethodPost, "/api/v1/auth/login", LoginRequest{PhoneOrEmail: identifier}, "")
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/auth/verify", VerifyRequest{OTP: session.MockCode}, "")
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	var res SessionResponse
	decodeBody(t, rec, &res)
	require.NotEmpty(t, res.Token)
	return res.Token
}

// signInRemote walks the sign-in flow against a reachable remote.
func (s *testServer) signInRemote(t *testing.T, user domain.User) string {
	t.Helper()
	const token = "remote-session-token"
	s.remote.On("RequestLogin", mock.Anything, user.Email).Return(nil).Once()
	s.remote.On("VerifyLogin", mock.Anything, "654321").
		Return(&ports.LoginResult{Token: token, User: &user}, nil).Once()

	rec := s.do(t, stdhttp.MethodPost, "/api/v1/auth/login", LoginRequest{PhoneOrEmail: user.Email}, "")
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, stdhttp.MethodPost, "/api/v1/auth/verify", VerifyRequest{OTP: "654321"}, "")
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func adminUser() domain.User {
	return domain.User{ID: 11, Name: "Remote Admin", Email: "ops@city.gov", Role: domain.RoleAdmin}
}
