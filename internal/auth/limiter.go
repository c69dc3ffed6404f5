package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"doggygallery/internal/logging"
)

// Limiter tracks failed authentication attempts per client address. Each
// address may fail maxFailures times in a burst; the allowance refills
// evenly over window.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing maxFailures failures per window.
func NewLimiter(maxFailures int, window time.Duration) *Limiter {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(maxFailures)),
		burst:    maxFailures,
		window:   window,
		now:      time.Now,
	}
}

// Blocked reports whether addr has used up its failure allowance.
func (l *Limiter) Blocked(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[addr]
	if !ok {
		return false
	}
	return v.limiter.TokensAt(l.now()) < 1
}

// Failure records a failed attempt from addr.
func (l *Limiter) Failure(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[addr] = v
	}
	v.lastSeen = now
	v.limiter.AllowN(now, 1)
	logging.Debug("Recorded failed auth attempt from %s (%.0f remaining)", addr, v.limiter.TokensAt(now))
}

// Clear forgets addr after a successful login.
func (l *Limiter) Clear(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.visitors[addr]; ok {
		delete(l.visitors, addr)
		logging.Debug("Cleared auth failure history for %s", addr)
	}
}

// Cleanup drops addresses whose last failure is older than the window; by
// then their allowance has fully refilled.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for addr, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, addr)
		}
	}
	logging.Debug("Cleaned up auth limiter: %d tracked addresses", len(l.visitors))
}

// Tracked returns the number of addresses with recorded failures.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// RunJanitor calls Cleanup every interval until ctx is cancelled.
func (l *Limiter) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
