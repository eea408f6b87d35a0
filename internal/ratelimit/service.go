package ratelimit

import (
	"callautomation-server/internal/observability"
	"context"
	"sync"
	"time"
)

const window = time.Minute

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed      bool      `json:"allowed"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"reset_at"`
	RetryAfterMs int       `json:"retry_after_ms,omitempty"`
}

// Service is a per-key sliding-window limiter held in memory. It guards
// endpoints that place billable calls.
type Service struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	now      func() time.Time
	logger   *observability.Logger
}

// NewService allows limit requests per key per minute. A limit <= 0
// disables the limiter.
func NewService(limit int, logger *observability.Logger) *Service {
	return &Service{
		requests: make(map[string][]time.Time),
		limit:    limit,
		now:      time.Now,
		logger:   logger,
	}
}

// CheckRateLimit records a request for key and reports whether it is
// within the limit. Rejected requests are not recorded.
func (s *Service) CheckRateLimit(ctx context.Context, key string) RateLimitResult {
	now := s.now()
	if s.limit <= 0 {
		return RateLimitResult{Allowed: true, ResetAt: now}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	windowStart := now.Add(-window)
	kept := s.requests[key][:0]
	for _, ts := range s.requests[key] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= s.limit {
		s.requests[key] = kept
		resetAt := kept[0].Add(window)
		return RateLimitResult{
			Allowed:      false,
			Limit:        s.limit,
			Remaining:    0,
			ResetAt:      resetAt,
			RetryAfterMs: int(resetAt.Sub(now).Milliseconds()),
		}
	}

	kept = append(kept, now)
	s.requests[key] = kept
	return RateLimitResult{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - len(kept),
		ResetAt:   kept[0].Add(window),
	}
}

// Prune drops keys with no requests inside the window.
func (s *Service) Prune() int {
	windowStart := s.now().Add(-window)
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for key, stamps := range s.requests {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(windowStart) {
			delete(s.requests, key)
			pruned++
		}
	}
	return pruned
}
