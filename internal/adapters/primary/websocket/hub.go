package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
)

// broadcastBuffer bounds events queued for the run loop.
const broadcastBuffer = 256

// Hub relays reconciled events to every connected browser tab.
type Hub struct {
	// clients maps user IDs to their active connections.
	// A single user can have multiple connections (multiple tabs/devices)
	clients map[int64]map[*Client]struct{}

	broadcast  chan domain.Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// mu protects clients
	mu sync.RWMutex

	upstream Upstream
	logger   *slog.Logger
}

// Upstream receives room membership changes from browser tabs.
type Upstream interface {
	Emit(event domain.EventName, data any) error
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithUpstream forwards join-room and leave-room messages to u.
func WithUpstream(u Upstream) HubOption {
	return func(h *Hub) { h.upstream = u }
}

var (
	_ ports.EventBroadcaster = (*Hub)(nil)
	_ ports.Navigator        = (*Hub)(nil)
)

// NewHub creates a new relay hub. Run must be started before clients connect.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		broadcast:  make(chan domain.Event, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Broadcast queues an event for every client. It never blocks; when the
// queue is full the event is dropped.
func (h *Hub) Broadcast(event domain.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
		)
	}
}

// forward sends a room membership change upstream.
func (h *Hub) forward(event domain.EventName, room string) error {
	if h.upstream == nil {
		return nil
	}
	return h.upstream.Emit(event, room)
}

// Redirect tells every tab to navigate to path.
func (h *Hub) Redirect(path string) {
	h.Broadcast(domain.Event{
		Type:    domain.EventNavigate,
		Payload: domain.NavigatePayload{Path: path},
	})
}

// Run starts the hub's event loop and returns when ctx is done, closing
// every client. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Register hands a new client to the run loop. It reports false once the
// hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister hands a departing client to the run loop.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}

	h.logger.Info("client registered",
		"client_id", client.ID,
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	userClients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, exists := userClients[client]; !exists {
		return
	}
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	client.CloseSend()

	h.logger.Info("client unregistered", "client_id", client.ID, "user_id", client.UserID)
}

func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
	)

	for _, userClients := range h.clients {
		for client := range userClients {
			if !client.trySend(event) {
				h.logger.Warn("client send buffer full, dropping client", "client_id", client.ID)
				h.removeLocked(client)
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, userClients := range h.clients {
		for client := range userClients {
			h.removeLocked(client)
		}
	}
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
