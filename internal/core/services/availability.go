package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
)

// Mode describes which source answers reads.
type Mode string

const (
	ModeLive Mode = "live"
	// ModeRetrying skips the remote until the retry window ends.
	ModeRetrying Mode = "retrying"
	// ModeOffline lasts until logout; the session holds a locally minted token.
	ModeOffline Mode = "offline"
)

// Availability is the degraded-mode latch consulted before every gateway read.
type Availability struct {
	mu         sync.Mutex
	sticky     bool
	until      time.Time
	retryAfter time.Duration
	degraded   bool

	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAvailability creates a live latch. now may be nil.
func NewAvailability(retryAfter time.Duration, now func() time.Time, logger *slog.Logger, m *metrics.Metrics) *Availability {
	if now == nil {
		now = time.Now
	}
	return &Availability{
		retryAfter: retryAfter,
		now:        now,
		logger:     logger.With("component", "availability"),
		metrics:    m,
	}
}

// Mode reports the current policy.
func (a *Availability) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.modeLocked()
}

// Degraded reports whether reads should skip the remote.
func (a *Availability) Degraded() bool {
	return a.Mode() != ModeLive
}

// TripSticky keeps reads on synthetic data until Reset.
func (a *Availability) TripSticky(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.sticky {
		a.logger.Warn("switching to offline mode", "reason", reason)
	}
	a.sticky = true
	a.modeLocked()
}

// TripTimed skips the remote for the retry window.
func (a *Availability) TripTimed(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.until = a.now().Add(a.retryAfter)
	a.logger.Warn("remote unavailable, serving synthetic data",
		"reason", reason,
		"retry_after", a.retryAfter,
	)
	a.modeLocked()
}

// Recovered clears a timed trip after a successful remote call.
func (a *Availability) Recovered() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.until = time.Time{}
	a.modeLocked()
}

// Reset returns to live mode.
func (a *Availability) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sticky = false
	a.until = time.Time{}
	a.modeLocked()
}

// modeLocked computes the mode and keeps the gauge in step with it.
func (a *Availability) modeLocked() Mode {
	mode := ModeLive
	switch {
	case a.sticky:
		mode = ModeOffline
	case a.now().Before(a.until):
		mode = ModeRetrying
	}
	if degraded := mode != ModeLive; degraded != a.degraded {
		a.degraded = degraded
		a.metrics.SetDegraded(degraded)
	}
	return mode
}
