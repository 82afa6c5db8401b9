// Package ratelimit provides per-tool token bucket rate limiting for MCP tools.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limit is a token bucket refill rate and capacity.
type Limit struct {
	PerMinute float64
	Burst     int
}

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	limit  Limit
	tokens float64
	last   time.Time
	now    func() time.Time // injectable clock for testing
}

// NewLimiter creates a full bucket.
func NewLimiter(limit Limit) *Limiter {
	return &Limiter{
		limit:  limit,
		tokens: float64(limit.Burst),
		now:    time.Now,
	}
}

// Allow takes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.last.IsZero() {
		if elapsed := now.Sub(l.last).Minutes(); elapsed > 0 {
			l.tokens = min(l.tokens+l.limit.PerMinute*elapsed, float64(l.limit.Burst))
		}
	}
	l.last = now

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// DefaultLimits returns the per-tool limits of the porewalk MCP server.
// Simulations are expensive; queries are cheap.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"porewalk_simulate":  {PerMinute: 6, Burst: 2},
		"porewalk_runs":      {PerMinute: 60, Burst: 10},
		"porewalk_outcomes":  {PerMinute: 30, Burst: 5},
		"porewalk_scenarios": {PerMinute: 60, Burst: 10},
	}
}

// NewToolLimiters creates one limiter per tool.
func NewToolLimiters(limits map[string]Limit) ToolLimiters {
	out := make(ToolLimiters, len(limits))
	for tool, limit := range limits {
		out[tool] = NewLimiter(limit)
	}
	return out
}

// CheckLimit returns an error if toolName is rate limited. Tools without a
// configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}
