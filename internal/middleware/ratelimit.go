package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/yourorg/videotube/internal/utils"
)

// RateLimiter is a fixed-window counter backed by redis. A nil limiter
// passes everything through.
type RateLimiter struct {
	redis  *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	if r == nil {
		return nil
	}
	return &RateLimiter{redis: r, prefix: prefix, limit: limit, window: window}
}

func (r *RateLimiter) ByIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r == nil || r.redis == nil {
			return c.Next()
		}
		key := fmt.Sprintf("%s:%s", r.prefix, c.IP())
		count, err := r.redis.Incr(c.Context(), key).Result()
		if err != nil {
			// limiter outage must not take the API down
			return c.Next()
		}
		if count == 1 {
			r.redis.Expire(c.Context(), key, r.window)
		}
		if count > int64(r.limit) {
			return utils.NewAPIError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}
