package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	// PerMinute is the sustained number of requests allowed per client IP.
	PerMinute float64
	Burst     int
	// Idle is how long an unused limiter is kept.
	Idle time.Duration
}

// RateLimiter keeps one token bucket per client IP. Idle buckets expire.
type RateLimiter struct {
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Idle <= 0 {
		config.Idle = 10 * time.Minute
	}
	if config.Burst < 1 {
		config.Burst = 1
	}
	return &RateLimiter{
		limiters: cache.New(config.Idle, 2*config.Idle),
		rate:     rate.Limit(config.PerMinute / 60),
		burst:    config.Burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	if err := rl.limiters.Add(key, l, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := rl.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// RateLimit rejects requests over the caller's budget with 429.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		l := rl.limiter(key)
		if !l.Allow() {
			if rl.rate > 0 {
				c.Header("Retry-After", strconv.Itoa(int(1/float64(rl.rate))+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests, try again later",
				Code:  "RATE_LIMITED",
			})
			return
		}
		// Touch the entry so active clients keep their bucket.
		rl.limiters.Set(key, l, cache.DefaultExpiration)
		c.Next()
	}
}
