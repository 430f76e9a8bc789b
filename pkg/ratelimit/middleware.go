package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"busseat/internal/shared/middleware"
	"busseat/internal/shared/utils/response"
	"busseat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware limits requests per client IP and route class
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		if rateLimiter.isWhitelisted(clientIP) {
			c.Next()
			return
		}
		enforce(c, rateLimiter, "ip:"+clientIP, getRateLimitType(c.FullPath()))
	}
}

// PerRider limits seat claims per authenticated rider, so riders sharing
// an address do not share a budget. It must run after BearerAuth.
func PerRider(rateLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.IdentityFrom(c)
		if !ok {
			c.Next()
			return
		}
		enforce(c, rateLimiter, "rider:"+identity.UserID, RateLimitTypeRiderBooking)
	}
}

// enforce lets the request through when Redis cannot answer
func enforce(c *gin.Context, rateLimiter *RateLimiter, subject string, limitType RateLimitType) {
	ctx := c.Request.Context()

	result, err := rateLimiter.IsAllowed(ctx, subject, limitType)
	if err != nil {
		logger.GetDefault().WarnContext(ctx, "Rate limit check failed", "error", err, "subject", subject)
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

	if !result.Allowed {
		logger.GetDefault().LogRateLimitExceeded(ctx, subject, c.FullPath())
		c.Header("Retry-After", strconv.Itoa(int(rateLimiter.config.WindowDuration.Seconds())))
		response.RespondJSON(c, response.StatusError, http.StatusTooManyRequests,
			"Rate limit exceeded", nil, map[string]interface{}{
				"limit":      result.Limit,
				"reset_time": result.ResetTime,
			})
		c.Abort()
		return
	}

	c.Next()
}

func getRateLimitType(path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"):
		return RateLimitTypeHealth
	case strings.Contains(path, "/auth/"):
		return RateLimitTypeAuth
	case strings.Contains(path, "/bookings"):
		return RateLimitTypeBooking
	// riders poll these while picking a seat
	case strings.Contains(path, "/seats"),
		strings.Contains(path, "/schedules"):
		return RateLimitTypePublic
	default:
		return RateLimitTypeDefault
	}
}

// getClientIP prefers the first valid proxy header over RemoteAddr
func getClientIP(c *gin.Context) string {
	for _, candidate := range []string{
		strings.TrimSpace(strings.Split(c.GetHeader("X-Forwarded-For"), ",")[0]),
		c.GetHeader("X-Real-IP"),
	} {
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
