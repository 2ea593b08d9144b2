package viewmodel

import (
	"slices"
	"sync"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
)

// RecentLimit bounds the recent-tickets view.
const RecentLimit = 10

// version is one observed copy of a ticket.
type version struct {
	ticket     domain.Ticket
	observedAt time.Time
	fromEvent  bool
}

// newerThan orders versions by updated_at, falling back to the time each copy
// was observed when updated_at does not decide.
func (v version) newerThan(o version) bool {
	a, b := v.ticket.UpdatedAt, o.ticket.UpdatedAt
	if !a.IsZero() && !b.IsZero() && !a.Equal(b) {
		return a.After(b)
	}
	return v.observedAt.After(o.observedAt)
}

// TicketBoard holds the ticket list and the bounded recent view. Each id has
// exactly one stored copy, so every view shows the same fields for it.
type TicketBoard struct {
	mu          sync.RWMutex
	latest      map[int64]version
	all         []int64
	recent      []int64
	recentLimit int
}

// NewTicketBoard creates an empty board. A limit below 1 uses RecentLimit.
func NewTicketBoard(recentLimit int) *TicketBoard {
	if recentLimit < 1 {
		recentLimit = RecentLimit
	}
	return &TicketBoard{
		latest:      make(map[int64]version),
		recentLimit: recentLimit,
	}
}

// Load merges a fetch result issued at issuedAt. A copy already applied from
// a later observation survives, and tickets created by events after the fetch
// was issued stay at the head.
func (b *TicketBoard) Load(tickets []domain.Ticket, issuedAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fetched := make(map[int64]bool, len(tickets))
	ids := make([]int64, 0, len(tickets))
	for i := range tickets {
		t := tickets[i].Clone()
		if fetched[t.ID] {
			continue
		}
		fetched[t.ID] = true
		ids = append(ids, t.ID)

		incoming := version{ticket: t, observedAt: issuedAt}
		if current, ok := b.latest[t.ID]; ok && current.newerThan(incoming) {
			continue
		}
		b.latest[t.ID] = incoming
	}

	var head []int64
	for _, id := range b.all {
		v := b.latest[id]
		if !fetched[id] && v.fromEvent && v.observedAt.After(issuedAt) {
			head = append(head, id)
		}
	}
	b.all = append(head, ids...)

	keep := make(map[int64]bool, len(b.all))
	for _, id := range b.all {
		keep[id] = true
	}
	for id, v := range b.latest {
		if !keep[id] && !v.observedAt.After(issuedAt) {
			delete(b.latest, id)
		}
	}

	b.recent = slices.Clone(b.all[:min(len(b.all), b.recentLimit)])
}

// ApplyCreated prepends a new ticket to both views. A ticket that is already
// on the board is treated as an update.
func (b *TicketBoard) ApplyCreated(t domain.Ticket, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if slices.Contains(b.all, t.ID) {
		b.store(t, at)
		return
	}
	b.latest[t.ID] = version{ticket: t.Clone(), observedAt: at, fromEvent: true}
	b.all = slices.Insert(b.all, 0, t.ID)
	b.recent = slices.Insert(b.recent, 0, t.ID)
	if len(b.recent) > b.recentLimit {
		b.recent = b.recent[:b.recentLimit]
	}
}

// ApplyUpdated replaces the ticket in place in every view that shows it.
// An update for a ticket not yet on the board is kept so a later Load does
// not overwrite it with an older copy. It reports whether a view changed.
func (b *TicketBoard) ApplyUpdated(t domain.Ticket, at time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store(t, at)
	return slices.Contains(b.all, t.ID) || slices.Contains(b.recent, t.ID)
}

func (b *TicketBoard) store(t domain.Ticket, at time.Time) {
	incoming := version{ticket: t.Clone(), observedAt: at}
	if current, ok := b.latest[t.ID]; ok {
		incoming.fromEvent = current.fromEvent
	}
	b.latest[t.ID] = incoming
}

// ApplyAssigned patches the assignee of a known ticket. worker may be nil when
// the roster does not know the worker.
func (b *TicketBoard) ApplyAssigned(ticketID, workerID int64, worker *domain.Worker, at time.Time) (domain.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.latest[ticketID]
	if !ok {
		return domain.Ticket{}, false
	}
	t := v.ticket.Clone()
	t.AssignedWorkerID = &workerID
	t.AssignedWorker = nil
	if worker != nil {
		w := worker.Clone()
		t.AssignedWorker = &w
	}
	v.ticket = t
	v.observedAt = at
	b.latest[ticketID] = v
	return t.Clone(), true
}

// Tickets returns the full list.
func (b *TicketBoard) Tickets() []domain.Ticket {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.collect(b.all)
}

// Recent returns the bounded recent view.
func (b *TicketBoard) Recent() []domain.Ticket {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.collect(b.recent)
}

// Get returns the current copy of a ticket shown on the board.
func (b *TicketBoard) Get(id int64) (domain.Ticket, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !slices.Contains(b.all, id) {
		return domain.Ticket{}, false
	}
	v := b.latest[id]
	return v.ticket.Clone(), true
}

// Len returns the size of the full list.
func (b *TicketBoard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.all)
}

// Reset empties the board.
func (b *TicketBoard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = make(map[int64]version)
	b.all = nil
	b.recent = nil
}

func (b *TicketBoard) collect(ids []int64) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(ids))
	for _, id := range ids {
		v := b.latest[id]
		out = append(out, v.ticket.Clone())
	}
	return out
}
