package ratelimit

import (
	"sync"
	"time"
)

// PerUserConfig configures a PerUserLimiter.
type PerUserConfig struct {
	MaxTokens     float64       // Burst capacity per user
	RefillRate    float64       // Tokens refilled per second
	CleanupPeriod time.Duration // How often idle buckets are discarded
}

// PerUserLimiter keeps one token bucket per user id and discards buckets
// that have refilled completely, so memory stays proportional to the set of
// currently active users.
type PerUserLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	config   PerUserConfig
	onDrop   func()
	stopCh   chan struct{}
}

// NewPerUserLimiter creates a per-user limiter and starts its cleanup loop.
// Call Stop when done.
func NewPerUserLimiter(cfg PerUserConfig) *PerUserLimiter {
	p := &PerUserLimiter{
		limiters: make(map[string]*Limiter),
		config:   cfg,
		stopCh:   make(chan struct{}),
	}
	go p.cleanupLoop()
	return p
}

// OnDrop registers a callback invoked whenever a request is rejected.
func (p *PerUserLimiter) OnDrop(fn func()) {
	p.onDrop = fn
}

// Allow reports whether a request for the user may proceed. An empty user id
// is never limited; the handler layer rejects those before reaching here.
func (p *PerUserLimiter) Allow(userID string) bool {
	if userID == "" {
		return true
	}

	p.mu.RLock()
	limiter, exists := p.limiters[userID]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		limiter, exists = p.limiters[userID]
		if !exists {
			limiter = New(p.config.MaxTokens, p.config.RefillRate)
			p.limiters[userID] = limiter
		}
		p.mu.Unlock()
	}

	allowed := limiter.Allow()
	if !allowed && p.onDrop != nil {
		p.onDrop()
	}
	return allowed
}

// ActiveCount returns the number of users with live buckets.
func (p *PerUserLimiter) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.limiters)
}

func (p *PerUserLimiter) cleanupLoop() {
	ticker := time.NewTicker(p.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.mu.Lock()
			for id, limiter := range p.limiters {
				if limiter.IsFull() {
					delete(p.limiters, id)
				}
			}
			p.mu.Unlock()
		}
	}
}

// Stop terminates the cleanup loop. Safe to call multiple times.
func (p *PerUserLimiter) Stop() {
	select {
	case <-p.stopCh:
	default:
		close(p.stopCh)
	}
}
