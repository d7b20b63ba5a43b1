package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller.
type RateLimiter struct {
	callers map[string]*limiterEntry
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		callers: make(map[string]*limiterEntry),
		rate:    r,
		burst:   b,
	}
}

// GetLimiter returns the limiter for key, creating it on first use.
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, exists := rl.callers[key]; exists {
		entry.lastSeen = time.Now()
		return entry.limiter
	}
	entry := &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst), lastSeen: time.Now()}
	rl.callers[key] = entry
	return entry.limiter
}

// Prune forgets callers not seen for longer than idle.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	pruned := 0
	for key, e := range rl.callers {
		if now.Sub(e.lastSeen) > idle {
			delete(rl.callers, key)
			pruned++
		}
	}
	return pruned
}

// RateLimitMiddleware keys callers by user id when known, by client IP otherwise.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, err := GetUserID(c); err == nil {
			key = "user:" + userID
		}
		if !rl.GetLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// PerMinute converts a requests-per-minute budget to a rate.Limit.
func PerMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}
