package middleware

import (
	"strconv"
	"strings"

	"github.com/ezfoia/foia_api/pkg/ratelimit"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const rateLimitMessage = "Too many requests. Please try again later."

// OnDenied is called for every rejected request.
type OnDenied func(limiter string)

// RateLimit guards a route with l, keyed by caller IP. Store errors let the
// request through.
func RateLimit(l *ratelimit.Limiter, onDenied OnDenied) fiber.Handler {
	name := l.Config().Name
	return func(c *fiber.Ctx) error {
		ip := ClientIP(c)

		res, err := l.Check(c.UserContext(), ip)
		if err != nil {
			log.WithFields(log.Fields{
				"limiter": name,
				"error":   err.Error(),
			}).Warn("Rate limit store unavailable, allowing request")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Config().Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			if onDenied != nil {
				onDenied(name)
			}
			log.WithFields(log.Fields{
				"limiter": name,
				"ip":      ip,
			}).Info("Rate limit exceeded")

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(res.RetryAfterSeconds()))
			return shared.ResponseError(c, fiber.StatusTooManyRequests, rateLimitMessage, nil)
		}

		return c.Next()
	}
}

// ClientIP takes the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address. Empty results become "unknown".
func ClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if ip := c.Context().RemoteIP(); ip != nil && !ip.IsUnspecified() {
		return ip.String()
	}

	return "unknown"
}
