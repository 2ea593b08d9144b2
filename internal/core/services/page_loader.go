package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/viewmodel"
	"golang.org/x/sync/errgroup"
)

// DashboardTicketLimit is how many tickets the dashboard keeps in memory.
const DashboardTicketLimit = 1000

// Dashboard is the rendered state of the dashboard page.
type Dashboard struct {
	Tickets       []domain.Ticket       `json:"tickets"`
	Recent        []domain.Ticket       `json:"recent"`
	Analytics     *domain.Analytics     `json:"analytics"`
	Workers       []domain.Worker       `json:"workers"`
	Departments   []domain.Department   `json:"departments"`
	Hotspots      []domain.Hotspot      `json:"hotspots"`
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
	Mode          Mode                  `json:"mode"`
	Live          bool                  `json:"live"`
}

// PageLoader performs the initial concurrent load of a page and seeds the
// view models with the result.
type PageLoader struct {
	gateway    *Gateway
	reconciler *viewmodel.Reconciler
	push       ports.PushChannel
	logger     *slog.Logger

	mu          sync.RWMutex
	departments []domain.Department
	hotspots    []domain.Hotspot
}

func NewPageLoader(gateway *Gateway, reconciler *viewmodel.Reconciler, push ports.PushChannel, logger *slog.Logger) *PageLoader {
	return &PageLoader{
		gateway:    gateway,
		reconciler: reconciler,
		push:       push,
		logger:     logger.With("component", "page_loader"),
	}
}

// LoadDashboard fetches tickets, analytics and workers together and fails if
// any of them fails. Departments and hotspots are optional and come back
// empty when they cannot be loaded.
func (l *PageLoader) LoadDashboard(ctx context.Context) (*Dashboard, error) {
	issuedAt := l.reconciler.Now()

	var (
		page      *domain.Page[domain.Ticket]
		analytics *domain.Analytics
		workers   []domain.Worker
	)
	required, rctx := errgroup.WithContext(ctx)
	required.Go(func() error {
		var err error
		page, err = l.gateway.ListTickets(rctx, domain.TicketFilters{Limit: DashboardTicketLimit})
		return err
	})
	required.Go(func() error {
		var err error
		analytics, err = l.gateway.GetAnalytics(rctx)
		return err
	})
	required.Go(func() error {
		var err error
		workers, err = l.gateway.ListWorkers(rctx)
		return err
	})

	departments := []domain.Department{}
	hotspots := []domain.Hotspot{}
	var optional errgroup.Group
	optional.Go(func() error {
		d, err := l.gateway.ListDepartments(ctx)
		if err != nil {
			l.logger.WarnContext(ctx, "departments unavailable", "error", err)
			return nil
		}
		departments = d
		return nil
	})
	optional.Go(func() error {
		h, err := l.gateway.GetHotspots(ctx, nil)
		if err != nil {
			l.logger.WarnContext(ctx, "hotspots unavailable", "error", err)
			return nil
		}
		hotspots = h
		return nil
	})

	err := required.Wait()
	_ = optional.Wait()
	if err != nil {
		return nil, err
	}

	l.reconciler.Board.Load(page.Items, issuedAt)
	l.reconciler.Roster.Load(workers, issuedAt)
	l.reconciler.SetAnalytics(analytics, issuedAt)
	l.mu.Lock()
	l.departments = departments
	l.hotspots = hotspots
	l.mu.Unlock()

	return l.Snapshot(), nil
}

// Snapshot returns the dashboard from the view models without fetching.
func (l *PageLoader) Snapshot() *Dashboard {
	l.mu.RLock()
	departments, hotspots := l.departments, l.hotspots
	l.mu.RUnlock()

	d := &Dashboard{
		Tickets:       l.reconciler.Board.Tickets(),
		Recent:        l.reconciler.Board.Recent(),
		Analytics:     l.reconciler.Analytics(),
		Workers:       l.reconciler.Roster.Workers(),
		Departments:   departments,
		Hotspots:      hotspots,
		Notifications: l.reconciler.Feed.Items(),
		Unread:        l.reconciler.Feed.Unread(),
		Mode:          l.gateway.Mode(),
		Live:          l.push.IsConnected(),
	}
	if d.Departments == nil {
		d.Departments = []domain.Department{}
	}
	if d.Hotspots == nil {
		d.Hotspots = []domain.Hotspot{}
	}
	return d
}
