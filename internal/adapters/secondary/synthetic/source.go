package synthetic

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
)

// Source answers reads from a dataset generated once per process.
// Every method returns copies, so callers may mutate results freely.
type Source struct {
	seed   int64
	now    func() time.Time
	logger *slog.Logger

	once sync.Once
	data *Dataset
}

var _ ports.DataSource = (*Source)(nil)

// Option customizes a Source.
type Option func(*Source)

// WithClock sets the time the dataset is generated relative to.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// NewSource creates a lazily generated source. A zero seed picks one from the clock.
func NewSource(seed int64, logger *slog.Logger, opts ...Option) *Source {
	s := &Source{
		seed:   seed,
		now:    time.Now,
		logger: logger.With("component", "synthetic_source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dataset returns the underlying snapshot, generating it on first use.
func (s *Source) Dataset() *Dataset {
	s.once.Do(func() {
		now := s.now()
		seed := s.seed
		if seed == 0 {
			seed = now.UnixNano()
		}
		s.data = Generate(seed, now)
		s.logger.Info("synthetic dataset generated",
			"seed", seed,
			"tickets", len(s.data.Tickets),
			"hotspots", len(s.data.Hotspots),
		)
	})
	return s.data
}

func (s *Source) ListTickets(_ context.Context, filters domain.TicketFilters) (*domain.Page[domain.Ticket], error) {
	page := domain.FilterTickets(s.Dataset().Tickets, filters)
	return &page, nil
}

func (s *Source) GetTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	for i := range s.Dataset().Tickets {
		t := &s.data.Tickets[i]
		if t.ID == id {
			c := t.Clone()
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError(apperrors.ErrTicketNotFound, "Ticket not found")
}

func (s *Source) ListWorkers(_ context.Context) ([]domain.Worker, error) {
	workers := make([]domain.Worker, len(s.Dataset().Workers))
	for i, w := range s.data.Workers {
		workers[i] = w.Clone()
	}
	return workers, nil
}

func (s *Source) GetWorker(_ context.Context, id int64) (*domain.Worker, error) {
	for _, w := range s.Dataset().Workers {
		if w.ID == id {
			c := w.Clone()
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError(apperrors.ErrWorkerNotFound, "Worker not found")
}

func (s *Source) ListDepartments(_ context.Context) ([]domain.Department, error) {
	return append([]domain.Department(nil), s.Dataset().Departments...), nil
}

func (s *Source) GetAnalytics(_ context.Context) (*domain.Analytics, error) {
	a := s.Dataset().Analytics
	return &a, nil
}

// GetHotspots returns clusters whose centre lies in bbox, or all of them for a nil bbox.
func (s *Source) GetHotspots(_ context.Context, bbox *domain.BoundingBox) ([]domain.Hotspot, error) {
	hotspots := make([]domain.Hotspot, 0, len(s.Dataset().Hotspots))
	for _, h := range s.data.Hotspots {
		if bbox == nil || bbox.Contains(h.Location) {
			hotspots = append(hotspots, h)
		}
	}
	return hotspots, nil
}

func (s *Source) GetTopHotspots(_ context.Context) ([]domain.Hotspot, error) {
	all := s.Dataset().Hotspots
	return append([]domain.Hotspot{}, all[:min(topHotspots, len(all))]...), nil
}

func (s *Source) ListUsers(_ context.Context) ([]domain.User, error) {
	return append([]domain.User(nil), s.Dataset().Users...), nil
}
