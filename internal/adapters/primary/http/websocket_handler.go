package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	mw "github.com/lorrc/civic-dashboard/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/civic-dashboard/internal/adapters/primary/websocket"
	"github.com/lorrc/civic-dashboard/internal/config"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
)

var errUnauthenticatedRelay = apperrors.NewUnauthenticatedError("Invalid or expired session")

// WebSocketHandler upgrades browser tabs onto the event relay.
type WebSocketHandler struct {
	hub          *wsAdapter.Hub
	session      mw.Session
	clientConfig wsAdapter.ClientConfig
	upgrader     websocket.Upgrader
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. Every origin is
// accepted when allowAll is set.
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	session mw.Session,
	cfg config.WebSocketConfig,
	allowAll bool,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:          hub,
		session:      session,
		clientConfig: wsAdapter.ClientConfig{PongWait: cfg.PongWait, PingInterval: cfg.PingInterval},
		errorHandler: errorHandler,
		logger:       logger.With("handler", "websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.makeOriginChecker(cfg.AllowedOrigins, allowAll),
	}
	return h
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(allowedOrigins []string, allowAll bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// No origin header (same-origin request or non-browser client)
		if origin == "" || allowAll {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.WarnContext(r.Context(), "failed to parse websocket origin", "origin", origin, "error", err)
			return false
		}
		if originAllowed(parsedOrigin.Host, allowedOrigins) {
			return true
		}

		h.logger.WarnContext(r.Context(), "websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
		)
		return false
	}
}

// originAllowed matches host against exact entries and "*.example.com" wildcards.
func originAllowed(host string, allowed []string) bool {
	for _, entry := range allowed {
		if suffix, ok := strings.CutPrefix(entry, "*"); ok {
			if strings.HasSuffix(host, suffix) || host == suffix[1:] {
				return true
			}
		} else if host == entry {
			return true
		}
	}
	return false
}

// ServeHTTP handles GET /ws. Browsers cannot set headers on a websocket
// handshake, so the session token may also come as ?token=.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = mw.BearerToken(r)
	}
	user, ok := mw.Authenticate(h.session, token)
	if !ok {
		h.logger.WarnContext(r.Context(), "websocket connection rejected: invalid session",
			"remote_addr", r.RemoteAddr,
		)
		h.errorHandler.Handle(w, r, errUnauthenticatedRelay)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.WarnContext(r.Context(), "failed to upgrade websocket connection", "error", err)
		return
	}

	client := wsAdapter.NewClient(h.hub, conn, user.ID, h.clientConfig, h.logger)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	h.logger.InfoContext(r.Context(), "websocket connection established",
		"client_id", client.ID,
		"remote_addr", r.RemoteAddr,
	)

	go client.WritePump()
	go client.ReadPump()
}
