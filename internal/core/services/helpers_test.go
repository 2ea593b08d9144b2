package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/synthetic"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/lorrc/civic-dashboard/internal/core/mocks"
	"github.com/lorrc/civic-dashboard/internal/core/services"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/logging"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const testSeed = 42

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: epoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type gatewayFixture struct {
	gateway   *services.Gateway
	latch     *services.Availability
	remote    *mocks.MockRemoteAPI
	synthetic *synthetic.Source
	clock     *testClock
	metrics   *metrics.Metrics
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	clock := newTestClock()
	m := metrics.New(prometheus.NewRegistry())
	remote := mocks.NewMockRemoteAPI()
	source := synthetic.NewSource(testSeed, logging.Discard(), synthetic.WithClock(clock.Now))
	latch := services.NewAvailability(30*time.Second, clock.Now, logging.Discard(), m)
	return &gatewayFixture{
		gateway:   services.NewGateway(remote, source, latch, logging.Discard(), m),
		latch:     latch,
		remote:    remote,
		synthetic: source,
		clock:     clock,
		metrics:   m,
	}
}

func networkDown(op string) error {
	return &apperrors.NetworkError{Op: op, Err: errConnRefused}
}

var errConnRefused = &connRefused{}

type connRefused struct{}

func (*connRefused) Error() string { return "dial tcp 127.0.0.1:3000: connect: connection refused" }

func remoteTicket(id int64, status domain.TicketStatus) domain.Ticket {
	return domain.Ticket{
		ID:        id,
		Category:  domain.CategoryPothole,
		Status:    status,
		CreatedAt: epoch.Add(-time.Duration(id) * time.Hour),
		UpdatedAt: epoch.Add(-time.Duration(id) * time.Hour),
	}
}
