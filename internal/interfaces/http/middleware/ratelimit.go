package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/servora/servora/internal/infrastructure/ratelimit"
	"github.com/servora/servora/internal/shared/constants"
	"github.com/servora/servora/internal/shared/logger"
	"github.com/servora/servora/internal/shared/utils"
)

// RateLimiter enforces a shared request budget on a route group.
// Authenticated requests are counted per user, anonymous ones per client IP.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	windows []ratelimit.Window
	logger  logger.Interface
}

func NewRateLimiter(redisClient redis.Cmdable, limit int, window time.Duration, log logger.Interface) *RateLimiter {
	if window < time.Second {
		window = time.Minute
	}
	return &RateLimiter{
		limiter: ratelimit.NewRedisRateLimiter(redisClient),
		windows: []ratelimit.Window{{Duration: window, Limit: limit}},
		logger:  log,
	}
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if userID := c.GetString(constants.ContextKeyUserID); userID != "" {
			key = "user:" + userID
		}

		decision, err := rl.limiter.Allow(c.Request.Context(), key, rl.windows)
		if err != nil {
			rl.logger.Warnw("rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
