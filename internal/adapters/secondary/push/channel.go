package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/logging"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from the peer.
	maxMessageSize = 64 << 10
)

// State is the lifecycle of the push connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config holds the push transport settings.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration

	// ReconnectMin and ReconnectMax bound the backoff used after the server
	// drops a live connection. A zero ReconnectMax disables reconnecting.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

func (c *Config) withDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.ReconnectMax > 0 && c.ReconnectMin <= 0 {
		c.ReconnectMin = time.Second
	}
}

var _ ports.PushChannel = (*Channel)(nil)

type registration struct {
	handle   ports.ListenerHandle
	listener ports.Listener
}

// Channel is a websocket client that keeps at most one live connection and
// dispatches named events to locally registered listeners.
type Channel struct {
	cfg     Config
	dialer  *websocket.Dialer
	tokens  ports.TokenSource
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	stop      chan struct{} // closed by Disconnect
	listeners map[domain.EventName][]registration
	next      ports.ListenerHandle

	writeMu sync.Mutex
}

// NewChannel creates a disconnected channel. The token is read from tokens at connect time.
func NewChannel(cfg Config, tokens ports.TokenSource, logger *slog.Logger, m *metrics.Metrics) *Channel {
	cfg.withDefaults()
	return &Channel{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		tokens:    tokens,
		logger:    logger.With("component", "push_channel"),
		metrics:   m,
		listeners: make(map[domain.EventName][]registration),
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether a live connection exists.
func (c *Channel) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect opens the connection. It is a no-op while connecting or connected.
func (c *Channel) Connect(ctx context.Context) error {
	return c.connect(ctx, nil)
}

// connect dials on behalf of the session identified by expect. A nil expect
// starts or joins the current session.
func (c *Channel) connect(ctx context.Context, expect chan struct{}) error {
	c.mu.Lock()
	if c.state != StateDisconnected || (expect != nil && c.stop != expect) {
		c.mu.Unlock()
		return nil
	}
	token := c.tokens.Token()
	if token == "" {
		c.mu.Unlock()
		return apperrors.ErrNoToken
	}
	if c.stop == nil {
		c.stop = make(chan struct{})
	}
	stop := c.stop
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dial(ctx, token)
	if err != nil {
		c.mu.Lock()
		if c.stop == stop && c.state == StateConnecting {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "push connect failed", "error", err)
		return err
	}

	c.mu.Lock()
	if c.stop != stop || c.state != StateConnecting {
		// Disconnect won the race.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.metrics.SetPushConnected(true)
	c.logger.InfoContext(ctx, "push channel connected", "url", c.cfg.URL)

	done := make(chan struct{})
	go c.readLoop(conn, stop, done)
	go c.keepAlive(conn, stop, done)
	return nil
}

func (c *Channel) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid push url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err == nil {
		return conn, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, ctxErr
	}
	if resp != nil {
		return nil, apperrors.FromStatus(resp.StatusCode, "push handshake rejected")
	}
	return nil, &apperrors.NetworkError{Op: "push connect", Err: err}
}

// Disconnect closes the connection and drops every registered listener.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.listeners = make(map[domain.EventName][]registration)
	c.mu.Unlock()

	if conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
	c.metrics.SetPushConnected(false)
	c.logger.Info("push channel disconnected")
}

// On registers listener for event. Registrations made before the connection
// exists receive events once it is established.
func (c *Channel) On(event domain.EventName, listener ports.Listener) ports.ListenerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.listeners[event] = append(c.listeners[event], registration{handle: c.next, listener: listener})
	return c.next
}

// Off removes the given registrations, or every listener for event when none are given.
func (c *Channel) Off(event domain.EventName, handles ...ports.ListenerHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(handles) == 0 {
		delete(c.listeners, event)
		return
	}
	regs := slices.DeleteFunc(c.listeners[event], func(r registration) bool {
		return slices.Contains(handles, r.handle)
	})
	if len(regs) == 0 {
		delete(c.listeners, event)
		return
	}
	c.listeners[event] = regs
}

// ListenerCount returns the number of listeners registered for event.
func (c *Channel) ListenerCount(event domain.EventName) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners[event])
}

// Emit sends an event upstream.
func (c *Channel) Emit(event domain.EventName, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(domain.PushEnvelope{Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event, err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return apperrors.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// readLoop is the only reader of conn; frames are dispatched in arrival order.
func (c *Channel) readLoop(conn *websocket.Conn, stop, done chan struct{}) {
	defer func() {
		close(done)
		c.connectionLost(conn, stop)
	}()

	conn.SetReadLimit(maxMessageSize)
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	}
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })
	conn.SetPingHandler(func(data string) error {
		_ = extend()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("push connection closed unexpectedly", "error", err)
			}
			return
		}

		var env domain.PushEnvelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			c.logger.Warn("dropping malformed push frame", "error", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Channel) keepAlive(conn *websocket.Conn, stop, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-stop:
			return
		}
	}
}

func (c *Channel) dispatch(env domain.PushEnvelope) {
	c.mu.Lock()
	regs := slices.Clone(c.listeners[env.Event])
	c.mu.Unlock()

	c.metrics.PushEvents.WithLabelValues(string(env.Event)).Inc()
	c.logger.Debug("push event received", "event", env.Event, "listeners", len(regs))

	for _, r := range regs {
		c.invoke(r.listener, env.Data)
	}
}

func (c *Channel) invoke(listener ports.Listener, data json.RawMessage) {
	defer func() {
		if err := recover(); err != nil {
			logging.LogPanic(c.logger, err)
		}
	}()
	listener(data)
}

// connectionLost runs when the reader exits. A drop the server caused keeps
// the registrations and schedules a reconnect.
func (c *Channel) connectionLost(conn *websocket.Conn, stop chan struct{}) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	conn.Close()
	if !current {
		return
	}
	c.metrics.SetPushConnected(false)
	c.logger.Warn("push channel lost")

	if c.cfg.ReconnectMax > 0 {
		go c.reconnect(stop)
	}
}

func (c *Channel) reconnect(stop chan struct{}) {
	delay := c.cfg.ReconnectMin
	for {
		timer := time.NewTimer(delay)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		err := c.connect(ctx, stop)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, apperrors.ErrNoToken) || errors.Is(err, apperrors.ErrUnauthenticated) {
			c.logger.Warn("push reconnect abandoned", "error", err)
			return
		}
		delay = min(delay*2, c.cfg.ReconnectMax)
	}
}
