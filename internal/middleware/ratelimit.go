package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements per-client sliding window rate limiting.
// Uses in-memory state — each instance enforces independently.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	mu          sync.Mutex
	clients     map[string]*clientWindow
}

type clientWindow struct {
	timestamps []time.Time
	lastAccess time.Time
}

// NewRateLimiter creates a rate limiter with the given requests-per-second limit.
func NewRateLimiter(maxPerSecond int) *RateLimiter {
	rl := &RateLimiter{
		maxRequests: maxPerSecond,
		window:      time.Second,
		clients:     make(map[string]*clientWindow),
	}
	go rl.cleanup()
	return rl
}

// Allow checks if a request from the given client is allowed.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, ok := rl.clients[clientID]
	if !ok {
		cw = &clientWindow{}
		rl.clients[clientID] = cw
	}

	// Remove timestamps outside the window
	cutoff := now.Add(-rl.window)
	start := 0
	for start < len(cw.timestamps) && cw.timestamps[start].Before(cutoff) {
		start++
	}
	cw.timestamps = cw.timestamps[start:]
	cw.lastAccess = now

	if len(cw.timestamps) >= rl.maxRequests {
		return false
	}

	cw.timestamps = append(cw.timestamps, now)
	return true
}

// cleanup removes stale client entries every 60 seconds.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-5 * time.Minute)
		for clientID, cw := range rl.clients {
			if cw.lastAccess.Before(cutoff) {
				delete(rl.clients, clientID)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware returns an HTTP middleware that applies rate limiting keyed by
// the client's address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientAddr(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   "RATE_LIMIT_EXCEEDED",
				"message": "Too many requests. Please slow down.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
