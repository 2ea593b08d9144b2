package viewmodel

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
)

// Reconciler applies push events to the session's view models and relays
// every applied change to the browser tabs.
type Reconciler struct {
	Board  *TicketBoard
	Roster *WorkerRoster
	Feed   *NotificationFeed

	analyticsMu sync.RWMutex
	analytics   *domain.Analytics
	created     []time.Time

	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Reconciler)

// WithClock overrides the observation clock.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithBroadcaster relays applied events to b.
func WithBroadcaster(b ports.EventBroadcaster) Option {
	return func(r *Reconciler) { r.broadcaster = b }
}

func NewReconciler(logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		Board:  NewTicketBoard(RecentLimit),
		Roster: NewWorkerRoster(),
		Feed:   NewNotificationFeed(NotificationLimit),
		logger: logger.With("component", "reconciler"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the reconciler's clock reading. Callers stamp fetches with it
// before issuing them.
func (r *Reconciler) Now() time.Time {
	return r.now()
}

// Attach registers the reconciler's listeners on ch. The returned func removes
// only those listeners and leaves the connection open.
func (r *Reconciler) Attach(ch ports.PushChannel) (detach func()) {
	handles := map[domain.EventName]ports.ListenerHandle{
		domain.EventTicketCreated:  ch.On(domain.EventTicketCreated, r.onTicketCreated),
		domain.EventTicketUpdated:  ch.On(domain.EventTicketUpdated, r.onTicketUpdated),
		domain.EventTicketAssigned: ch.On(domain.EventTicketAssigned, r.onTicketAssigned),
		domain.EventWorkerStatus:   ch.On(domain.EventWorkerStatus, r.onWorkerStatus),
	}
	return func() {
		for event, h := range handles {
			ch.Off(event, h)
		}
	}
}

// createdBacklog bounds the ticket.created times kept for SetAnalytics.
const createdBacklog = 256

// SetAnalytics replaces the dashboard summary with a fetch result issued at
// issuedAt. Tickets created by events observed after issuedAt are counted on
// top of it.
func (r *Reconciler) SetAnalytics(a *domain.Analytics, issuedAt time.Time) {
	r.analyticsMu.Lock()
	defer r.analyticsMu.Unlock()
	r.created = slices.DeleteFunc(r.created, func(at time.Time) bool { return !at.After(issuedAt) })
	if a == nil {
		r.analytics = nil
		return
	}
	cp := *a
	cp.TotalTickets += len(r.created)
	cp.PendingTickets += len(r.created)
	r.analytics = &cp
}

// Analytics returns the dashboard summary, or nil before the first load.
func (r *Reconciler) Analytics() *domain.Analytics {
	r.analyticsMu.RLock()
	defer r.analyticsMu.RUnlock()
	if r.analytics == nil {
		return nil
	}
	cp := *r.analytics
	return &cp
}

// Reset clears every view model.
func (r *Reconciler) Reset() {
	r.Board.Reset()
	r.Roster.Reset()
	r.Feed.Reset()
	r.analyticsMu.Lock()
	r.analytics = nil
	r.created = nil
	r.analyticsMu.Unlock()
}

func (r *Reconciler) onTicketCreated(data json.RawMessage) {
	var t domain.Ticket
	if !r.decode(domain.EventTicketCreated, data, &t) {
		return
	}
	at := r.now()
	r.Board.ApplyCreated(t, at)
	r.analyticsMu.Lock()
	r.created = append(r.created, at)
	if len(r.created) > createdBacklog {
		r.created = slices.Delete(r.created, 0, len(r.created)-createdBacklog)
	}
	if r.analytics != nil {
		r.analytics.TotalTickets++
		r.analytics.PendingTickets++
	}
	r.analyticsMu.Unlock()
	r.Feed.Push(domain.NewTicketCreatedNotification(&t, at))
	r.relay(domain.EventTicketCreated, t, t.ID)
}

func (r *Reconciler) onTicketUpdated(data json.RawMessage) {
	var t domain.Ticket
	if !r.decode(domain.EventTicketUpdated, data, &t) {
		return
	}
	at := r.now()
	r.Board.ApplyUpdated(t, at)
	r.Feed.Push(domain.NewTicketUpdatedNotification(&t, at))
	r.relay(domain.EventTicketUpdated, t, t.ID)
}

func (r *Reconciler) onTicketAssigned(data json.RawMessage) {
	var p domain.TicketAssignedPayload
	if !r.decode(domain.EventTicketAssigned, data, &p) {
		return
	}
	worker, _ := r.Roster.Get(p.WorkerID)
	if _, ok := r.Board.ApplyAssigned(p.TicketID, p.WorkerID, worker, r.now()); !ok {
		r.logger.Debug("assignment for unknown ticket", "ticket_id", p.TicketID)
	}
	r.relay(domain.EventTicketAssigned, p, p.TicketID)
}

func (r *Reconciler) onWorkerStatus(data json.RawMessage) {
	var p domain.WorkerStatusPayload
	if !r.decode(domain.EventWorkerStatus, data, &p) {
		return
	}
	if !p.Status.IsValid() {
		r.logger.Warn("ignoring unknown worker status", "worker_id", p.WorkerID, "status", p.Status)
		return
	}
	if !r.Roster.ApplyStatus(p.WorkerID, p.Status, r.now()) {
		r.logger.Debug("status for worker not yet loaded", "worker_id", p.WorkerID)
	}
	r.relay(domain.EventWorkerStatus, p, 0)
}

func (r *Reconciler) decode(event domain.EventName, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		r.logger.Warn("dropping undecodable push event", "event", event, "error", err)
		return false
	}
	return true
}

func (r *Reconciler) relay(event domain.EventName, payload any, ticketID int64) {
	if r.broadcaster == nil {
		return
	}
	r.broadcaster.Broadcast(domain.Event{Type: event, Payload: payload, TicketID: ticketID})
}
