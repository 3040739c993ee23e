package validate

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultRateLimit is the number of operations accepted per window
	DefaultRateLimit = 100

	// DefaultRateWindow is the length of one rate limit window
	DefaultRateWindow = time.Minute

	// DefaultRateCleanupInterval is how often expired windows are dropped
	DefaultRateCleanupInterval = 5 * time.Minute
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window rate limiter keyed by connection ID
type Limiter struct {
	clock  clockwork.Clock
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a limiter allowing max operations per window per key
func NewLimiter(clock clockwork.Clock, max int, win time.Duration) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if max <= 0 {
		max = DefaultRateLimit
	}
	if win <= 0 {
		win = DefaultRateWindow
	}
	return &Limiter{
		clock:   clock,
		max:     max,
		window:  win,
		windows: make(map[string]*window),
	}
}

// Allow records an operation for key and reports whether it is within the limit
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	if w.count >= l.max {
		return false
	}

	w.count++
	return true
}

// Forget drops the state held for key
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Cleanup drops every window that has expired and returns how many were removed
func (l *Limiter) Cleanup() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Run calls Cleanup every interval until ctx is done
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRateCleanupInterval
	}

	ticker := l.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			l.Cleanup()
		}
	}
}
