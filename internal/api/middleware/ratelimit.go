package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// LoginRateLimit 按客户端 IP 限制登录频率，超限返回 429。
// Redis 不可用时放行并记录 warn。
func LoginRateLimit(limiter *ratelimit.RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), "login:"+c.ClientIP())
		if err != nil {
			if logger != nil {
				logger.Warn("login rate limit check failed", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !decision.Allowed {
			metrics.LoginRateLimitedTotal.Inc()
			secs := int(math.Ceil(decision.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts, try again later"})
			return
		}
		c.Next()
	}
}
