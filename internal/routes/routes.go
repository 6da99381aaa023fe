package routes

import (
	"time"

	"github.com/gittrends-dev/gittrends-backend/internal/config"
	"github.com/gittrends-dev/gittrends-backend/internal/handlers"
	"github.com/gittrends-dev/gittrends-backend/internal/metrics"
	"github.com/gittrends-dev/gittrends-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	repoHandler *handlers.RepoHandler,
	collector *metrics.Collector,
) {
	app.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)
	api.Get("/trending", repoHandler.Trending)

	// Auth — public; stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/signup", authHandler.SignUp)
	auth.Post("/signin", authHandler.SignIn)
	auth.Post("/signout", authHandler.SignOut)
	auth.Get("/me", authHandler.Me)
	auth.Get("/github", authHandler.GitHubLogin)
	auth.Get("/callback", authHandler.Callback)

	// Protected API routes: machine clients get a 401, never a redirect.
	api.Get("/favorites", middleware.JWTProtected(cfg), repoHandler.Favorites)
}
