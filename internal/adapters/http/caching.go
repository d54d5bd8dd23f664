package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware fills in Cache-Control for GET responses the handler
// left unmarked. The catalog is immutable for the life of the process, so
// feature reads can be cached much longer than status endpoints.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || c.Get(fiber.HeaderCacheControl) != "" {
			return err
		}
		if policy := cachePolicy(c.Path()); policy != "" {
			c.Set(fiber.HeaderCacheControl, policy)
		}
		return err
	}
}

func cachePolicy(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready":
		return "public, max-age=10"
	case path == "/metrics", path == "/v1/catalog/stats":
		return "no-cache"
	case path == "/graphql", strings.HasPrefix(path, "/v1/ws/"):
		return "private, max-age=0"
	case path == "/v1/features/lookup":
		return "public, max-age=3600"
	case strings.HasPrefix(path, "/v1/features"):
		return "public, max-age=600"
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=300"
	}
	return ""
}
