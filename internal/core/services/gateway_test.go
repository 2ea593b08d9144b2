package services_test

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/services"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGateway_ReadsFromRemote(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	live := &domain.Page[domain.Ticket]{
		Items:   []domain.Ticket{remoteTicket(1, domain.StatusSubmitted)},
		Total:   1,
		Page:    1,
		PerPage: 50,
	}
	f.remote.On("ListTickets", ctx, domain.TicketFilters{}).Return(live, nil).Once()

	page, err := f.gateway.ListTickets(ctx, domain.TicketFilters{})

	require.NoError(t, err)
	assert.Equal(t, live, page)
	assert.Equal(t, services.ModeLive, f.gateway.Mode())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GatewayReads.WithLabelValues("list_tickets", "remote")))
	f.remote.AssertExpectations(t)
}

// A fallback answer obeys the same filter, sort and pagination contract as a live one.
func TestGateway_FallbackKeepsListContract(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	filters := domain.TicketFilters{Page: 2, Limit: 10}
	f.remote.On("ListTickets", ctx, filters).Return(nil, networkDown("GET /tickets")).Once()

	page, err := f.gateway.ListTickets(ctx, filters)

	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PerPage)
	assert.Equal(t, 50, page.Total)
	for i := 1; i < len(page.Items); i++ {
		assert.False(t, page.Items[i].CreatedAt.After(page.Items[i-1].CreatedAt), "newest first")
	}

	direct, err := f.synthetic.ListTickets(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, direct, page)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GatewayFallbacks.WithLabelValues("list_tickets", "network_unavailable")))
}

func TestGateway_FallbackForEveryRead(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	down := networkDown("remote")
	f.remote.On("GetTicket", ctx, int64(3)).Return(nil, down)
	f.remote.On("ListWorkers", ctx).Return(nil, down)
	f.remote.On("GetWorker", ctx, int64(2)).Return(nil, down)
	f.remote.On("ListDepartments", ctx).Return(nil, down)
	f.remote.On("GetAnalytics", ctx).Return(nil, down)
	f.remote.On("GetHotspots", ctx, (*domain.BoundingBox)(nil)).Return(nil, down)
	f.remote.On("GetTopHotspots", ctx).Return(nil, down)
	f.remote.On("ListUsers", ctx).Return(nil, down)

	// Each read trips the latch; rewind it so the next read probes again.
	reads := []func() (any, error){
		func() (any, error) { return f.gateway.GetTicket(ctx, 3) },
		func() (any, error) { return f.gateway.ListWorkers(ctx) },
		func() (any, error) { return f.gateway.GetWorker(ctx, 2) },
		func() (any, error) { return f.gateway.ListDepartments(ctx) },
		func() (any, error) { return f.gateway.GetAnalytics(ctx) },
		func() (any, error) { return f.gateway.GetHotspots(ctx, nil) },
		func() (any, error) { return f.gateway.GetTopHotspots(ctx) },
		func() (any, error) { return f.gateway.ListUsers(ctx) },
	}
	for _, read := range reads {
		f.latch.Reset()
		v, err := read()
		require.NoError(t, err)
		assert.NotNil(t, v)
	}
	f.remote.AssertExpectations(t)
}

func TestGateway_TimedLatch(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	f.remote.On("ListWorkers", ctx).Return(nil, networkDown("GET /workers")).Once()

	_, err := f.gateway.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, services.ModeRetrying, f.gateway.Mode())

	// Inside the window the remote is not consulted.
	_, err = f.gateway.ListWorkers(ctx)
	require.NoError(t, err)
	f.remote.AssertNumberOfCalls(t, "ListWorkers", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GatewayFallbacks.WithLabelValues("list_workers", "latched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Degraded))

	// After the window one probe goes out, and success restores live mode.
	f.clock.Advance(31 * time.Second)
	f.remote.On("ListWorkers", ctx).Return([]domain.Worker{{ID: 99, Name: "Live"}}, nil).Once()

	workers, err := f.gateway.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Live", workers[0].Name)
	assert.Equal(t, services.ModeLive, f.gateway.Mode())
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.Degraded))
}

func TestGateway_OfflineSessionNeverTouchesRemote(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	f.latch.TripSticky("test")
	f.clock.Advance(time.Hour)

	_, err := f.gateway.ListTickets(ctx, domain.TicketFilters{})
	require.NoError(t, err)
	_, err = f.gateway.GetAnalytics(ctx)
	require.NoError(t, err)

	err = f.gateway.UpdateTicketStatus(ctx, 1, ports.UpdateStatusParams{Status: domain.StatusResolved})
	assert.True(t, apperrors.IsNetworkUnavailable(err))

	assert.Equal(t, services.ModeOffline, f.gateway.Mode())
	f.remote.AssertNotCalled(t, "ListTickets", mock.Anything, mock.Anything)
	f.remote.AssertNotCalled(t, "GetAnalytics", mock.Anything)
	f.remote.AssertNotCalled(t, "UpdateTicketStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestGateway_ApplicationErrorsPropagate(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", apperrors.FromStatus(http.StatusNotFound, "Ticket not found"), apperrors.ErrNotFound},
		{"forbidden", apperrors.FromStatus(http.StatusForbidden, "Forbidden"), apperrors.ErrForbidden},
		{"validation", apperrors.FromStatus(http.StatusUnprocessableEntity, "Invalid filters"), apperrors.ErrValidation},
		{"unauthenticated", apperrors.FromStatus(http.StatusUnauthorized, "Token expired"), apperrors.ErrUnauthenticated},
		{"server error", apperrors.FromStatus(http.StatusInternalServerError, "boom"), apperrors.ErrRemote},
		{"canceled", context.Canceled, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newGatewayFixture(t)
			f.remote.On("GetTicket", ctx, int64(7)).Return(nil, tt.err).Once()

			ticket, err := f.gateway.GetTicket(ctx, 7)

			assert.Nil(t, ticket)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, services.ModeLive, f.gateway.Mode(), "no fallback")
		})
	}
}

func TestGateway_ValidatesBeforeCalling(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)

	_, err := f.gateway.ListTickets(ctx, domain.TicketFilters{Limit: 5000, Status: "reopened"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	var verrs *apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Errors, "limit")
	assert.Contains(t, verrs.Errors, "status")

	_, err = f.gateway.GetTicket(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = f.gateway.AssignTicket(ctx, 1, ports.AssignTicketParams{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = f.gateway.BulkUpdateStatus(ctx, ports.BulkStatusParams{
		TicketIDs:          []int64{1, 1},
		UpdateStatusParams: ports.UpdateStatusParams{Status: domain.StatusClosed},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	f.remote.AssertExpectations(t)
	assert.Empty(t, f.remote.Calls)
}

func TestGateway_OfflineHugePageIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	f.latch.TripSticky("mock authentication")

	_, err := f.gateway.ListTickets(ctx, domain.TicketFilters{Page: math.MaxInt, Limit: domain.MaxPageLimit})

	var verrs *apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Errors, "page")
	assert.Empty(t, f.remote.Calls)
}

func TestGateway_WritesFailLoudly(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	params := ports.AssignTicketParams{AssignedDept: "Sanitation"}
	f.remote.On("AssignTicket", ctx, int64(1), params).Return(networkDown("POST /tickets/1/assign")).Once()

	err := f.gateway.AssignTicket(ctx, 1, params)

	assert.True(t, apperrors.IsNetworkUnavailable(err))
	ticket, err := f.synthetic.GetTicket(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Public Works", ticket.AssignedDept, "synthetic data is never written")
	assert.Equal(t, services.ModeLive, f.gateway.Mode(), "a failed write does not trip the latch")
}

func TestGateway_WritesReachRemote(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	worker := int64(4)

	bulk := ports.BulkAssignParams{
		TicketIDs:          []int64{1, 2, 3},
		AssignTicketParams: ports.AssignTicketParams{AssignedDept: "Water Department", AssignedWorkerID: &worker},
	}
	user := domain.UserParams{Name: "Dana Ops", Email: "dana@civic.com", Role: domain.RoleViewer}

	f.remote.On("BulkAssign", ctx, bulk).Return(nil).Once()
	f.remote.On("AddComment", ctx, int64(2), ports.AddCommentParams{Text: "On site"}).Return(nil).Once()
	f.remote.On("UpdateWorkerStatus", ctx, int64(4), ports.WorkerStatusParams{Status: domain.WorkerBusy}).Return(nil).Once()
	f.remote.On("CreateUser", ctx, user).Return(&domain.User{ID: 9, Name: "Dana Ops", Role: domain.RoleViewer}, nil).Once()
	f.remote.On("DeleteUser", ctx, int64(9)).Return(nil).Once()

	require.NoError(t, f.gateway.BulkAssign(ctx, bulk))
	require.NoError(t, f.gateway.AddComment(ctx, 2, ports.AddCommentParams{Text: "On site"}))
	require.NoError(t, f.gateway.UpdateWorkerStatus(ctx, 4, ports.WorkerStatusParams{Status: domain.WorkerBusy}))
	created, err := f.gateway.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)
	require.NoError(t, f.gateway.DeleteUser(ctx, 9))

	f.remote.AssertExpectations(t)
}
