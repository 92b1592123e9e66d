package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window per-IP limiter backed by Redis.
type RateLimiter struct {
	client func() *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client func() *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// RateLimitMiddleware fails open: no Redis client or a Redis error lets the
// request through.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	client := rl.client()
	if client == nil {
		c.Next()
		return
	}

	key := "ratelimit:" + c.ClientIP()
	pipe := client.TxPipeline()
	incr := pipe.Incr(c.Request.Context(), key)
	pipe.ExpireNX(c.Request.Context(), key, rl.window)
	if _, err := pipe.Exec(c.Request.Context()); err != nil {
		c.Error(err)
		c.Next()
		return
	}

	if incr.Val() > rl.limit {
		seconds := int(rl.window.Seconds())
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", seconds),
		})
		return
	}
	c.Next()
}
