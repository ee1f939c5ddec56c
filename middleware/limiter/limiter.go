// Package limiter throttles callers with per-client token buckets.
package limiter

import (
	"sync"

	"golang.org/x/time/rate"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/middleware"
)

// RateLimiter keeps one token bucket per ClientID. Requests without a client
// share a single bucket.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limit: limit, burst: burst, clients: make(map[string]*rate.Limiter)}
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute rejects the request with ErrRateLimited when the client's bucket
// is empty.
func (m *RateLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if !m.limiter(ctx.ClientID).Allow() {
		return kgperrors.ErrRateLimited
	}
	return next(ctx)
}

func (m *RateLimiter) limiter(client string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.clients[client]
	if !ok {
		l = rate.NewLimiter(m.limit, m.burst)
		m.clients[client] = l
	}
	return l
}

// Clients reports how many buckets are tracked.
func (m *RateLimiter) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Reset drops every bucket.
func (m *RateLimiter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = make(map[string]*rate.Limiter)
}
