package security

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter throttles requests per client IP with a fixed allowance
// that refills each window. It sits in front of the credential endpoints
// (adult login, child login) to slow down guessing.
type RateLimiter struct {
	clients map[string]*client
	mu      sync.RWMutex
	rate    int           // requests allowed per window
	window  time.Duration // refill interval
}

type client struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a rate limiter allowing rate requests per window
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		rate:    rate,
		window:  window,
	}
	go rl.cleanupClients()
	return rl
}

// Allow reports whether a request from the given IP is within its allowance
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	c, exists := rl.clients[ip]
	if !exists {
		c = &client{
			tokens:     rl.rate,
			lastRefill: time.Now(),
		}
		rl.clients[ip] = c
	}
	rl.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastRefill) >= rl.window {
		c.tokens = rl.rate
		c.lastRefill = now
	}

	if c.tokens > 0 {
		c.tokens--
		return true
	}
	return false
}

// cleanupClients drops entries idle for more than two windows so the map
// does not grow without bound
func (rl *RateLimiter) cleanupClients() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, c := range rl.clients {
			c.mu.Lock()
			if now.Sub(c.lastRefill) > rl.window*2 {
				delete(rl.clients, ip)
			}
			c.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}

// GetClientIP extracts the client IP from the request, preferring the
// forwarding headers set by a reverse proxy
func GetClientIP(r *http.Request) string {
	// X-Forwarded-For may hold a comma-separated chain; the first entry
	// is the originating client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}
