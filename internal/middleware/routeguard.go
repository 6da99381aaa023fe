package middleware

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/gittrends-dev/gittrends-backend/internal/dto"
	"github.com/gittrends-dev/gittrends-backend/internal/token"
	"github.com/gofiber/fiber/v2"
)

// Paths reachable without a session, matched exactly or as a path prefix.
var publicPaths = []string{
	"/",
	"/login",
	"/signup",
	"/about",
	"/forgot-password",
	"/api/auth/signup",
	"/api/auth/signin",
	"/api/auth/signout",
	"/api/auth/me",
	"/api/auth/github",
	"/api/auth/callback",
	"/api/health",
	"/api/trending",
	"/metrics",
}

var staticFileRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|svg|ico|js|css|woff|woff2|ttf|otf)$`)

// TokenVerifier validates a session token; the guard never mints.
type TokenVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

// RouteGuard classifies every inbound path as public or protected. Public
// paths pass without the cookie being inspected. Protected page paths
// without a verifiable session redirect to the login surface with the
// original path preserved; protected API paths get a plain 401 instead.
// Verification happens on every request; nothing is cached.
func RouteGuard(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		if isPublicPath(path) || staticFileRe.MatchString(path) {
			return c.Next()
		}

		raw := c.Cookies("auth-token")
		if raw != "" {
			if claims, err := verifier.Verify(raw); err == nil {
				c.Locals("session", claims)
				return c.Next()
			}
		}

		if strings.HasPrefix(path, "/api/") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		target := "/login?redirectTo=" + url.QueryEscape(path)
		return c.Redirect(target, fiber.StatusTemporaryRedirect)
	}
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
