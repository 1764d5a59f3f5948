// Package server implements a small fixed-window rate limiter for
// per-connection throttling that protects rooms from chat floods.
package server

import (
	"sync"
	"time"
)

type rateLimiter struct {
	mu       sync.Mutex
	tokens   int
	capacity int
	interval time.Duration
	windowAt time.Time
}

func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		tokens:   capacity,
		capacity: capacity,
		interval: interval,
		windowAt: time.Now(),
	}
}

func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.windowAt) >= rl.interval {
		rl.tokens = rl.capacity
		rl.windowAt = now
	}

	if rl.tokens == 0 {
		return false
	}

	rl.tokens--
	return true
}
