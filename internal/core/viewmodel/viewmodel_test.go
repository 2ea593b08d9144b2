package viewmodel_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/mocks"
	"github.com/lorrc/civic-dashboard/internal/core/viewmodel"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func ticket(id int64, status domain.TicketStatus, updated time.Time) domain.Ticket {
	return domain.Ticket{
		ID:        id,
		Category:  domain.CategoryPothole,
		Status:    status,
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
	}
}

func ticketIDs(tickets []domain.Ticket) []int64 {
	out := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func newConnected(t *testing.T, opts ...viewmodel.Option) (*viewmodel.Reconciler, *mocks.PushChannel) {
	t.Helper()
	clock := &stepClock{now: t0}
	opts = append([]viewmodel.Option{viewmodel.WithClock(clock.Now)}, opts...)
	r := viewmodel.NewReconciler(logging.Discard(), opts...)
	ch := mocks.NewPushChannel()
	r.Attach(ch)
	require.NoError(t, ch.Connect(t.Context()))
	return r, ch
}

func TestTicketBoard_LoadSetsBothViews(t *testing.T) {
	board := viewmodel.NewTicketBoard(3)
	var tickets []domain.Ticket
	for i := int64(1); i <= 5; i++ {
		tickets = append(tickets, ticket(i, domain.StatusSubmitted, t0))
	}

	board.Load(tickets, t0)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ticketIDs(board.Tickets()))
	assert.Equal(t, []int64{1, 2, 3}, ticketIDs(board.Recent()))
}

func TestTicketBoard_CreatedPrependsAndTrimsRecent(t *testing.T) {
	board := viewmodel.NewTicketBoard(3)
	board.Load([]domain.Ticket{
		ticket(1, domain.StatusSubmitted, t0),
		ticket(2, domain.StatusSubmitted, t0),
		ticket(3, domain.StatusSubmitted, t0),
	}, t0)

	board.ApplyCreated(ticket(9, domain.StatusSubmitted, t0), t0.Add(time.Minute))

	assert.Equal(t, []int64{9, 1, 2, 3}, ticketIDs(board.Tickets()))
	assert.Equal(t, []int64{9, 1, 2}, ticketIDs(board.Recent()))
}

func TestTicketBoard_DuplicateCreatedDoesNotDuplicate(t *testing.T) {
	board := viewmodel.NewTicketBoard(3)
	board.Load([]domain.Ticket{ticket(1, domain.StatusSubmitted, t0), ticket(2, domain.StatusSubmitted, t0)}, t0)

	board.ApplyCreated(ticket(2, domain.StatusTriaged, t0.Add(time.Minute)), t0.Add(time.Minute))

	assert.Equal(t, []int64{1, 2}, ticketIDs(board.Tickets()))
	got, ok := board.Get(2)
	require.True(t, ok)
	assert.Equal(t, domain.StatusTriaged, got.Status)
}

func TestTicketBoard_UpdateDoesNotReorder(t *testing.T) {
	board := viewmodel.NewTicketBoard(10)
	board.Load([]domain.Ticket{
		ticket(1, domain.StatusSubmitted, t0),
		ticket(2, domain.StatusSubmitted, t0),
		ticket(3, domain.StatusSubmitted, t0),
	}, t0)

	changed := board.ApplyUpdated(ticket(2, domain.StatusResolved, t0.Add(time.Hour)), t0.Add(time.Hour))

	assert.True(t, changed)
	assert.Equal(t, []int64{1, 2, 3}, ticketIDs(board.Tickets()))
	assert.Equal(t, domain.StatusResolved, board.Tickets()[1].Status)
}

// An update that lands while a fetch is in flight survives the fetch result.
func TestTicketBoard_EventBeforeFetchResolves(t *testing.T) {
	board := viewmodel.NewTicketBoard(10)
	issuedAt := t0
	eventAt := t0.Add(time.Second)

	board.ApplyUpdated(ticket(5, domain.StatusTriaged, t0), eventAt)
	board.Load([]domain.Ticket{
		ticket(4, domain.StatusSubmitted, t0),
		ticket(5, domain.StatusSubmitted, t0),
	}, issuedAt)

	got, ok := board.Get(5)
	require.True(t, ok)
	assert.Equal(t, domain.StatusTriaged, got.Status)
	assert.Equal(t, []int64{4, 5}, ticketIDs(board.Tickets()))
}

func TestTicketBoard_NewerFetchWins(t *testing.T) {
	board := viewmodel.NewTicketBoard(10)
	board.Load([]domain.Ticket{ticket(5, domain.StatusSubmitted, t0)}, t0)
	board.ApplyUpdated(ticket(5, domain.StatusTriaged, t0.Add(time.Minute)), t0.Add(time.Minute))

	board.Load([]domain.Ticket{ticket(5, domain.StatusResolved, t0.Add(time.Hour))}, t0.Add(time.Hour))

	got, _ := board.Get(5)
	assert.Equal(t, domain.StatusResolved, got.Status)
}

func TestTicketBoard_CreatedDuringFetchStaysAtHead(t *testing.T) {
	board := viewmodel.NewTicketBoard(10)
	board.ApplyCreated(ticket(51, domain.StatusSubmitted, t0), t0.Add(time.Second))

	board.Load([]domain.Ticket{ticket(1, domain.StatusSubmitted, t0)}, t0)
	assert.Equal(t, []int64{51, 1}, ticketIDs(board.Tickets()))

	board.Load([]domain.Ticket{ticket(1, domain.StatusSubmitted, t0)}, t0.Add(time.Minute))
	assert.Equal(t, []int64{1}, ticketIDs(board.Tickets()), "a later fetch is authoritative")
}

func TestTicketBoard_ReturnsCopies(t *testing.T) {
	board := viewmodel.NewTicketBoard(10)
	board.Load([]domain.Ticket{ticket(1, domain.StatusSubmitted, t0)}, t0)

	list := board.Tickets()
	list[0].Status = domain.StatusClosed

	got, _ := board.Get(1)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
}

func TestReconciler_UpdatedEventReachesEveryView(t *testing.T) {
	r, ch := newConnected(t)
	var tickets []domain.Ticket
	for i := int64(1); i <= 12; i++ {
		tickets = append(tickets, ticket(i, domain.StatusSubmitted, t0))
	}
	r.Board.Load(tickets, t0)

	updated := ticket(7, domain.StatusInProgress, t0.Add(time.Hour))
	updated.AssignedDept = "Public Works"
	require.NoError(t, ch.Deliver(domain.EventTicketUpdated, updated))

	find := func(list []domain.Ticket) domain.Ticket {
		for _, tk := range list {
			if tk.ID == 7 {
				return tk
			}
		}
		return domain.Ticket{}
	}
	inFull := find(r.Board.Tickets())
	inRecent := find(r.Board.Recent())
	assert.Equal(t, domain.StatusInProgress, inFull.Status)
	assert.Equal(t, inFull, inRecent)
	assert.Equal(t, "Public Works", inRecent.AssignedDept)
}

func TestReconciler_NotificationsAreBounded(t *testing.T) {
	r, ch := newConnected(t)

	for i := int64(1); i <= 25; i++ {
		require.NoError(t, ch.Deliver(domain.EventTicketCreated, ticket(100+i, domain.StatusSubmitted, t0)))
	}

	items := r.Feed.Items()
	require.Len(t, items, viewmodel.NotificationLimit)
	for i, n := range items {
		assert.True(t, strings.HasPrefix(n.ID, fmt.Sprintf("ticket-%d-", 125-i)), n.ID)
		if i > 0 {
			assert.True(t, n.Timestamp.Before(items[i-1].Timestamp), "newest first")
		}
	}
	assert.Equal(t, 20, r.Feed.Unread())
	assert.Len(t, r.Board.Recent(), viewmodel.RecentLimit)
	assert.Equal(t, 25, r.Board.Len())

	r.Feed.MarkAllRead()
	assert.Zero(t, r.Feed.Unread())
	assert.Len(t, r.Feed.Items(), viewmodel.NotificationLimit)
}

func TestReconciler_UpdatedNotification(t *testing.T) {
	r, ch := newConnected(t)

	require.NoError(t, ch.Deliver(domain.EventTicketUpdated, ticket(3, domain.StatusResolved, t0)))

	items := r.Feed.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Ticket #3 status changed to resolved", items[0].Message)
}

func TestReconciler_AssignedAndWorkerStatus(t *testing.T) {
	r, ch := newConnected(t)
	r.Roster.Load([]domain.Worker{
		{ID: 1, Name: "Mike Johnson", Status: domain.WorkerOnline},
		{ID: 2, Name: "Sarah Williams", Status: domain.WorkerOnline},
	}, t0)
	r.Board.Load([]domain.Ticket{ticket(5, domain.StatusTriaged, t0)}, t0)

	require.NoError(t, ch.Deliver(domain.EventTicketAssigned, domain.TicketAssignedPayload{TicketID: 5, WorkerID: 2}))
	require.NoError(t, ch.Deliver(domain.EventWorkerStatus, domain.WorkerStatusPayload{WorkerID: 2, Status: domain.WorkerBusy}))

	got, _ := r.Board.Get(5)
	require.NotNil(t, got.AssignedWorkerID)
	assert.Equal(t, int64(2), *got.AssignedWorkerID)
	require.NotNil(t, got.AssignedWorker)
	assert.Equal(t, "Sarah Williams", got.AssignedWorker.Name)

	w, ok := r.Roster.Get(2)
	require.True(t, ok)
	assert.Equal(t, domain.WorkerBusy, w.Status)
	assert.Equal(t, []string{"Mike Johnson", "Sarah Williams"}, []string{r.Roster.Workers()[0].Name, r.Roster.Workers()[1].Name})
}

func TestReconciler_IgnoresBadPayloads(t *testing.T) {
	r, ch := newConnected(t)
	r.Roster.Load([]domain.Worker{{ID: 1, Status: domain.WorkerOnline}}, t0)

	require.NoError(t, ch.Deliver(domain.EventTicketCreated, "not a ticket"))
	require.NoError(t, ch.Deliver(domain.EventWorkerStatus, domain.WorkerStatusPayload{WorkerID: 1, Status: "asleep"}))

	assert.Zero(t, r.Board.Len())
	assert.Empty(t, r.Feed.Items())
	w, _ := r.Roster.Get(1)
	assert.Equal(t, domain.WorkerOnline, w.Status)
}

func TestReconciler_DetachKeepsConnection(t *testing.T) {
	clock := &stepClock{now: t0}
	r := viewmodel.NewReconciler(logging.Discard(), viewmodel.WithClock(clock.Now))
	ch := mocks.NewPushChannel()
	ch.On(domain.EventTicketCreated, func(json.RawMessage) {})

	detach := r.Attach(ch)
	require.NoError(t, ch.Connect(t.Context()))
	assert.Equal(t, 2, ch.ListenerCount(domain.EventTicketCreated))

	detach()

	assert.True(t, ch.IsConnected())
	assert.Equal(t, 1, ch.ListenerCount(domain.EventTicketCreated), "only the reconciler's listener is removed")
	assert.Zero(t, ch.ListenerCount(domain.EventWorkerStatus))

	require.NoError(t, ch.Deliver(domain.EventTicketCreated, ticket(1, domain.StatusSubmitted, t0)))
	assert.Zero(t, r.Board.Len())
}

func TestReconciler_RelaysAppliedEvents(t *testing.T) {
	broadcaster := mocks.NewMockEventBroadcaster()
	broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventTicketCreated && e.TicketID == 8
	})).Once()
	broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventWorkerStatus
	})).Once()

	_, ch := newConnected(t, viewmodel.WithBroadcaster(broadcaster))

	require.NoError(t, ch.Deliver(domain.EventTicketCreated, ticket(8, domain.StatusSubmitted, t0)))
	require.NoError(t, ch.Deliver(domain.EventWorkerStatus, domain.WorkerStatusPayload{WorkerID: 3, Status: domain.WorkerOffline}))

	broadcaster.AssertExpectations(t)
}

func TestReconciler_Reset(t *testing.T) {
	r, ch := newConnected(t)
	require.NoError(t, ch.Deliver(domain.EventTicketCreated, ticket(1, domain.StatusSubmitted, t0)))
	r.Roster.Load([]domain.Worker{{ID: 1}}, t0)

	r.Reset()

	assert.Zero(t, r.Board.Len())
	assert.Empty(t, r.Roster.Workers())
	assert.Empty(t, r.Feed.Items())
}

func TestReconciler_CreatedEventBumpsAnalytics(t *testing.T) {
	r, ch := newConnected(t)
	require.NoError(t, ch.Deliver(domain.EventTicketCreated, ticket(1, domain.StatusSubmitted, t0)))
	assert.Nil(t, r.Analytics(), "no summary before the first load")

	r.SetAnalytics(&domain.Analytics{TotalTickets: 50, PendingTickets: 12}, r.Now())
	require.NoError(t, ch.Deliver(domain.EventTicketCreated, ticket(2, domain.StatusSubmitted, t0)))

	a := r.Analytics()
	require.NotNil(t, a)
	assert.Equal(t, 51, a.TotalTickets)
	assert.Equal(t, 13, a.PendingTickets)
}

func TestReconciler_CreatedDuringAnalyticsFetchIsCounted(t *testing.T) {
	r, ch := newConnected(t)
	issued := r.Now()
	require.NoError(t, ch.Deliver(domain.EventTicketCreated, ticket(9, domain.StatusSubmitted, t0)))

	r.SetAnalytics(&domain.Analytics{TotalTickets: 50, PendingTickets: 12}, issued)

	a := r.Analytics()
	require.NotNil(t, a)
	assert.Equal(t, 51, a.TotalTickets)
	assert.Equal(t, 13, a.PendingTickets)

	r.SetAnalytics(&domain.Analytics{TotalTickets: 51, PendingTickets: 13}, r.Now())
	assert.Equal(t, 51, r.Analytics().TotalTickets, "a newer fetch already includes the ticket")
}

func TestWorkerRoster_StatusEventBeforeFetchResolves(t *testing.T) {
	r, ch := newConnected(t)
	stale := []domain.Worker{
		{ID: 2, Name: "Sarah Williams", Status: domain.WorkerOnline},
		{ID: 3, Name: "Tom Brown", Status: domain.WorkerOnline},
	}
	r.Roster.Load(stale, t0)

	issued := r.Now()
	require.NoError(t, ch.Deliver(domain.EventWorkerStatus, domain.WorkerStatusPayload{WorkerID: 2, Status: domain.WorkerBusy}))
	r.Roster.Load(stale, issued)

	w, ok := r.Roster.Get(2)
	require.True(t, ok)
	assert.Equal(t, domain.WorkerBusy, w.Status)
	w, _ = r.Roster.Get(3)
	assert.Equal(t, domain.WorkerOnline, w.Status)

	r.Roster.Load(stale, r.Now())
	w, _ = r.Roster.Get(2)
	assert.Equal(t, domain.WorkerOnline, w.Status, "a fetch issued after the event wins")
}

func TestWorkerRoster_StatusForWorkerNotYetLoaded(t *testing.T) {
	r, ch := newConnected(t)
	issued := r.Now()
	require.NoError(t, ch.Deliver(domain.EventWorkerStatus, domain.WorkerStatusPayload{WorkerID: 4, Status: domain.WorkerOffline}))
	_, ok := r.Roster.Get(4)
	require.False(t, ok)

	r.Roster.Load([]domain.Worker{{ID: 4, Name: "Lisa Davis", Status: domain.WorkerOnline}}, issued)

	w, ok := r.Roster.Get(4)
	require.True(t, ok)
	assert.Equal(t, domain.WorkerOffline, w.Status)
}
