package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/validation"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
)

const (
	sourceRemote    = "remote"
	sourceSynthetic = "synthetic"

	reasonLatched     = "latched"
	reasonUnavailable = "network_unavailable"
)

// errOffline is reported for writes attempted while the session is offline.
var errOffline = errors.New("session is in offline mode")

// Gateway answers reads from the remote service and falls back to the
// synthetic dataset when the remote cannot be reached. Writes always go to
// the remote.
type Gateway struct {
	remote    ports.RemoteAPI
	synthetic ports.DataSource
	latch     *Availability
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

var _ ports.DataSource = (*Gateway)(nil)

func NewGateway(remote ports.RemoteAPI, synthetic ports.DataSource, latch *Availability, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		remote:    remote,
		synthetic: synthetic,
		latch:     latch,
		logger:    logger.With("component", "gateway"),
		metrics:   m,
	}
}

// Mode reports which source currently answers reads.
func (g *Gateway) Mode() Mode {
	return g.latch.Mode()
}

// read runs live against the remote unless the latch is tripped, and falls
// back only on network-unavailable errors.
func read[T any](ctx context.Context, g *Gateway, op string, live, fallback func(context.Context) (T, error)) (T, error) {
	if g.latch.Degraded() {
		g.metrics.GatewayFallbacks.WithLabelValues(op, reasonLatched).Inc()
		return fromSynthetic(ctx, g, op, fallback)
	}

	v, err := live(ctx)
	if err == nil {
		g.latch.Recovered()
		g.metrics.GatewayReads.WithLabelValues(op, sourceRemote).Inc()
		return v, nil
	}
	if !apperrors.IsNetworkUnavailable(err) {
		return v, err
	}

	g.latch.TripTimed(op)
	g.metrics.GatewayFallbacks.WithLabelValues(op, reasonUnavailable).Inc()
	g.logger.WarnContext(ctx, "serving synthetic data", "operation", op, "error", err)
	return fromSynthetic(ctx, g, op, fallback)
}

func fromSynthetic[T any](ctx context.Context, g *Gateway, op string, fallback func(context.Context) (T, error)) (T, error) {
	g.metrics.GatewayReads.WithLabelValues(op, sourceSynthetic).Inc()
	return fallback(ctx)
}

func (g *Gateway) ListTickets(ctx context.Context, filters domain.TicketFilters) (*domain.Page[domain.Ticket], error) {
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}
	return read(ctx, g, "list_tickets",
		func(ctx context.Context) (*domain.Page[domain.Ticket], error) { return g.remote.ListTickets(ctx, filters) },
		func(ctx context.Context) (*domain.Page[domain.Ticket], error) { return g.synthetic.ListTickets(ctx, filters) },
	)
}

func (g *Gateway) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	if err := validation.Var("id", id, "gt=0"); err != nil {
		return nil, err
	}
	return read(ctx, g, "get_ticket",
		func(ctx context.Context) (*domain.Ticket, error) { return g.remote.GetTicket(ctx, id) },
		func(ctx context.Context) (*domain.Ticket, error) { return g.synthetic.GetTicket(ctx, id) },
	)
}

func (g *Gateway) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	return read(ctx, g, "list_workers", g.remote.ListWorkers, g.synthetic.ListWorkers)
}

func (g *Gateway) GetWorker(ctx context.Context, id int64) (*domain.Worker, error) {
	if err := validation.Var("id", id, "gt=0"); err != nil {
		return nil, err
	}
	return read(ctx, g, "get_worker",
		func(ctx context.Context) (*domain.Worker, error) { return g.remote.GetWorker(ctx, id) },
		func(ctx context.Context) (*domain.Worker, error) { return g.synthetic.GetWorker(ctx, id) },
	)
}

func (g *Gateway) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return read(ctx, g, "list_departments", g.remote.ListDepartments, g.synthetic.ListDepartments)
}

func (g *Gateway) GetAnalytics(ctx context.Context) (*domain.Analytics, error) {
	return read(ctx, g, "get_analytics", g.remote.GetAnalytics, g.synthetic.GetAnalytics)
}

func (g *Gateway) GetHotspots(ctx context.Context, bbox *domain.BoundingBox) ([]domain.Hotspot, error) {
	return read(ctx, g, "get_hotspots",
		func(ctx context.Context) ([]domain.Hotspot, error) { return g.remote.GetHotspots(ctx, bbox) },
		func(ctx context.Context) ([]domain.Hotspot, error) { return g.synthetic.GetHotspots(ctx, bbox) },
	)
}

func (g *Gateway) GetTopHotspots(ctx context.Context) ([]domain.Hotspot, error) {
	return read(ctx, g, "get_top_hotspots", g.remote.GetTopHotspots, g.synthetic.GetTopHotspots)
}

func (g *Gateway) ListUsers(ctx context.Context) ([]domain.User, error) {
	return read(ctx, g, "list_users", g.remote.ListUsers, g.synthetic.ListUsers)
}

// write validates params, refuses to run in offline mode and otherwise calls
// the remote. Writes are never mirrored into synthetic data.
func (g *Gateway) write(ctx context.Context, op string, params any, call func(context.Context) error) error {
	if params != nil {
		if err := validation.Struct(params); err != nil {
			return err
		}
	}
	if g.latch.Mode() == ModeOffline {
		return &apperrors.NetworkError{Op: op, Err: errOffline}
	}
	if err := call(ctx); err != nil {
		if apperrors.IsNetworkUnavailable(err) {
			g.logger.WarnContext(ctx, "write failed, remote unavailable", "operation", op, "error", err)
		}
		return err
	}
	return nil
}

func (g *Gateway) AssignTicket(ctx context.Context, id int64, params ports.AssignTicketParams) error {
	if err := validation.Var("id", id, "gt=0"); err != nil {
		return err
	}
	return g.write(ctx, "assign_ticket", params, func(ctx context.Context) error {
		return g.remote.AssignTicket(ctx, id, params)
	})
}

func (g *Gateway) UpdateTicketStatus(ctx context.Context, id int64, params ports.UpdateStatusParams) error {
	if err := validation.Var("id", id, "gt=0"); err != nil {
		return err
	}
	return g.write(ctx, "update_ticket_status", params, func(ctx context.Context) error {
		return g.remote.UpdateTicketStatus(ctx, id, params)
	})
}

func (g *Gateway) AddComment(ctx context.Context, id int64, params ports.AddCommentParams) error {
	if err := validation.Var("id", id, "gt=0"); err != nil {
		return err
	}
	return g.write(ctx, "add_comment", params, func(ctx context.Context) error {
		return g.remote.AddComment(ctx, id, params)
	})
}

func (g *Gateway) BulkAssign(ctx context.Context, params ports.BulkAssignParams) error {
	return g.write(ctx, "bulk_assign", params, func(ctx context.Context) error {
		return g.remote.BulkAssign(ctx, params)
	})
}

func (g *Gateway) BulkUpdateStatus(ctx context.Context, params ports.BulkStatusParams) error {
	return g.write(ctx, "bulk_update_status", params, func(ctx context.Context) error {
		return g.remote.BulkUpdateStatus(ctx, params)
	})
}

func (g *Gateway) UpdateWorkerStatus(ctx context.Context, id int64, params ports.WorkerStatusParams) error {
	if err := validation.Var("id", id, "gt=0"); err != nil {
		return err
	}
	return g.write(ctx, "update_worker_status", params, func(ctx context.Context) error {
		return g.remote.UpdateWorkerStatus(ctx, id, params)
	})
}

func (g *Gateway) CreateUser(ctx context.Context, params domain.UserParams) (*domain.User, error) {
	var user *domain.User
	err := g.write(ctx, "create_user", params, func(ctx context.Context) error {
		var err error
		user, err = g.remote.CreateUser(ctx, params)
		return err
	})
	return user, err
}

func (g *Gateway) UpdateUser(ctx context.Context, id int64, params domain.UserParams) (*domain.User, error) {
	if err := validation.Var("id", id, "gt=0"); err != nil {
		return nil, err
	}
	var user *domain.User
	err := g.write(ctx, "update_user", params, func(ctx context.Context) error {
		var err error
		user, err = g.remote.UpdateUser(ctx, id, params)
		return err
	})
	return user, err
}

func (g *Gateway) DeleteUser(ctx context.Context, id int64) error {
	if err := validation.Var("id", id, "gt=0"); err != nil {
		return err
	}
	return g.write(ctx, "delete_user", nil, func(ctx context.Context) error {
		return g.remote.DeleteUser(ctx, id)
	})
}
