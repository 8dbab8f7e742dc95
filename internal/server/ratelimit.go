package server

import (
	"sync"
	"time"
)

// RateLimiter is an in-memory sliding-window limiter keyed by client address.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max < 1 {
		max = 1
	}
	return &RateLimiter{max: max, window: window, hits: map[string][]time.Time{}, now: time.Now}
}

// Allow records a request for key when it fits in the window. On refusal it
// returns the instant the oldest request leaves the window.
func (l *RateLimiter) Allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	hits := l.prune(key, now)
	if len(hits) >= l.max {
		return false, hits[0].Add(l.window)
	}
	l.hits[key] = append(hits, now)
	return true, time.Time{}
}

// Remaining is how many more requests key may make right now.
func (l *RateLimiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return max(0, l.max-len(l.prune(key, l.now())))
}

func (l *RateLimiter) prune(key string, now time.Time) []time.Time {
	hits := l.hits[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(hits) && hits[i].Before(cutoff) {
		i++
	}
	hits = hits[i:]
	if len(hits) == 0 {
		delete(l.hits, key)
		return nil
	}
	l.hits[key] = hits
	return hits
}
