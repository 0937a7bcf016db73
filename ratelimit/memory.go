package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps a sliding-window log per key in process memory. It is
// correct for a single instance; use RedisLimiter when several instances share
// the budget.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	maxAge  time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryLimiter starts a background loop that drops keys idle for longer
// than maxAge every cleanupInterval. maxAge should be the longest policy window.
func NewMemoryLimiter(maxAge, cleanupInterval time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string][]time.Time),
		maxAge:  maxAge,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop(cleanupInterval)
	return l
}

// Stop ends the cleanup goroutine.
func (l *MemoryLimiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}

func (l *MemoryLimiter) Allow(_ context.Context, policy Policy, key string) (Decision, error) {
	now := l.now()
	cutoff := now.Add(-policy.Window)
	k := bucketKey(policy, key)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := prune(l.windows[k], cutoff)
	if len(hits) >= policy.Limit {
		l.windows[k] = hits
		retry := time.Duration(0)
		if len(hits) > 0 {
			retry = hits[0].Add(policy.Window).Sub(now)
		}
		if retry <= 0 {
			retry = time.Second
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}

	hits = append(hits, now)
	l.windows[k] = hits
	return Decision{Allowed: true, Remaining: policy.Limit - len(hits)}, nil
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// prune drops timestamps at or before cutoff. hits is in ascending order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

func (l *MemoryLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
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

func (l *MemoryLimiter) cleanup() {
	cutoff := l.now().Add(-l.maxAge)

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, hits := range l.windows {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.windows, k)
		}
	}
}
