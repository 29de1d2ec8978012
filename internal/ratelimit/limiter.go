// Package ratelimit throttles device traffic with a per-key sliding window.
// Caregiver phones can retry location reports aggressively on flaky networks;
// the window keeps one misbehaving device from flooding the feed.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports one admission decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// SlidingWindow counts requests per key over a trailing window. The sliding
// window avoids the burst-at-boundary problem of fixed buckets.
type SlidingWindow struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	limit  int
	window time.Duration

	now func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow admits or rejects one request for key.
func (s *SlidingWindow) Allow(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	timestamps := s.prune(key, now)

	if len(timestamps) >= s.limit {
		return Result{
			Allowed: false,
			ResetAt: timestamps[0].Add(s.window),
			Limit:   s.limit,
		}
	}

	timestamps = append(timestamps, now)
	s.windows[key] = timestamps
	return Result{
		Allowed:   true,
		Remaining: s.limit - len(timestamps),
		ResetAt:   timestamps[0].Add(s.window),
		Limit:     s.limit,
	}
}

// Reset clears the window for key.
func (s *SlidingWindow) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
}

// prune drops timestamps older than the window. Empty keys are removed so the
// map does not grow with every device ever seen. Caller holds the lock.
func (s *SlidingWindow) prune(key string, now time.Time) []time.Time {
	timestamps := s.windows[key]
	cutoff := now.Add(-s.window)
	i := 0
	for ; i < len(timestamps); i++ {
		if timestamps[i].After(cutoff) {
			break
		}
	}
	timestamps = timestamps[i:]
	if len(timestamps) == 0 {
		delete(s.windows, key)
		return nil
	}
	s.windows[key] = timestamps
	return timestamps
}
