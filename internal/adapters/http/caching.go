package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != "GET" {
			return err
		}
		if existing := string(c.Response().Header.Peek("Cache-Control")); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		case path == "/v1/crossings" || path == "/api/crossings":
			ttl = "public, max-age=3600" // crossing list rarely changes

		case strings.HasPrefix(path, "/v1/crossings/nearby"):
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/history") || strings.HasSuffix(path, "/history"):
			ttl = "public, max-age=120"

		case strings.HasPrefix(path, "/v1/highres") || strings.HasPrefix(path, "/api/"):
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=30" // detections change every cycle
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
