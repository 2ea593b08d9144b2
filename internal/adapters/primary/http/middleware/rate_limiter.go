package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides IP-based rate limiting
type RateLimiter struct {
	visitors *visitorSet
}

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	RequestsPerSecond float64       // Requests allowed per second
	BurstSize         int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up old visitors
	TTL               time.Duration // How long to keep inactive visitors
}

// NewRateLimiter creates a rate limiter. Idle visitors are evicted until ctx
// is done.
func NewRateLimiter(ctx context.Context, cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{visitors: newVisitorSet(ctx, cfg)}
}

// Allow checks if a request from the given IP is allowed
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.visitors.allow(ip)
}

// Middleware returns an HTTP middleware that rate limits requests
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", "RATE_LIMITED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitByKey limits by an arbitrary key, such as the identifier a
// verification code is requested for.
type RateLimitByKey struct {
	visitors *visitorSet
}

// NewRateLimitByKey creates a key-based rate limiter
func NewRateLimitByKey(ctx context.Context, cfg RateLimiterConfig) *RateLimitByKey {
	return &RateLimitByKey{visitors: newVisitorSet(ctx, cfg)}
}

// Allow checks if a request with the given key is allowed
func (rl *RateLimitByKey) Allow(key string) bool {
	return rl.visitors.allow(strings.ToLower(strings.TrimSpace(key)))
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitorSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
}

func newVisitorSet(ctx context.Context, cfg RateLimiterConfig) *visitorSet {
	s := &visitorSet{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.BurstSize,
	}
	interval, ttl := cfg.CleanupInterval, cfg.TTL
	if interval <= 0 {
		interval = time.Minute
	}
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	go s.cleanup(ctx, interval, ttl)
	return s
}

func (s *visitorSet) allow(key string) bool {
	s.mu.Lock()
	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = time.Now()
	s.mu.Unlock()
	return v.limiter.Allow()
}

func (s *visitorSet) cleanup(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			for key, v := range s.visitors {
				if time.Since(v.lastSeen) > ttl {
					delete(s.visitors, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// getClientIP extracts the client IP from the request
// It checks X-Forwarded-For and X-Real-IP headers first (for reverse proxies)
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
