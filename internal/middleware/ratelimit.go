package middleware

import (
	"net/http"
	"strconv"
	"time"

	"crisisintel/internal/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateCounter is the slice of the rate-limit store the middleware
// needs. Hit returns the running total for the key's current window.
type RateCounter interface {
	Hit(scopeKey string, windowStart time.Time) (int, error)
}

// RateLimit enforces a fixed-window limit per client IP for one scope.
// A counter failure lets the request through so a storage outage never
// locks everyone out.
func RateLimit(counter RateCounter, scope string, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		windowStart := now.Truncate(window)
		key := scope + ":ip:" + c.ClientIP()

		hits, err := counter.Hit(key, windowStart)
		if err != nil {
			logger.Warn("Rate limit check failed, allowing request", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		if hits > limit {
			retryAfter := window - now.Sub(windowStart)
			if retryAfter <= 0 {
				retryAfter = window
			}
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			abortWithCode(c, http.StatusTooManyRequests, apierr.CodeRateLimited, "Too many attempts, retry later")
			return
		}

		c.Next()
	}
}
