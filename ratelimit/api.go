package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter holds one user's token bucket and the time it was last used.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// APILimiter is a per-user token bucket for authenticated API traffic.
type APILimiter struct {
	rate            rate.Limit
	burst           int
	cleanupInterval time.Duration

	mu       sync.Mutex
	limiters map[string]*userLimiter

	stopCh chan struct{}
	once   sync.Once
}

// NewAPILimiter allows perMinute requests per user with a burst of the same
// size, and starts the idle-entry cleanup loop.
func NewAPILimiter(perMinute int, cleanupInterval time.Duration) *APILimiter {
	l := &APILimiter{
		rate:            rate.Limit(float64(perMinute) / 60.0),
		burst:           perMinute,
		cleanupInterval: cleanupInterval,
		limiters:        make(map[string]*userLimiter),
		stopCh:          make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *APILimiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}

// Allow takes a token for userID. When none is available it reports how long
// until one is.
func (l *APILimiter) Allow(userID string) (bool, time.Duration) {
	lim := l.getOrCreate(userID)
	now := time.Now()

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len reports the number of tracked users.
func (l *APILimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *APILimiter) getOrCreate(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ul, ok := l.limiters[userID]; ok {
		ul.lastAccess = time.Now()
		return ul.limiter
	}
	ul := &userLimiter{
		limiter:    rate.NewLimiter(l.rate, l.burst),
		lastAccess: time.Now(),
	}
	l.limiters[userID] = ul
	return ul.limiter
}

func (l *APILimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// cleanup drops users idle for more than two cleanup intervals.
func (l *APILimiter) cleanup() {
	ttl := l.cleanupInterval * 2
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, ul := range l.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(l.limiters, userID)
		}
	}
}
