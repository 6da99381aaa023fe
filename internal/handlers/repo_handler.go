package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// RepoHandler serves the repository surfaces of the dashboard. There is no
// GitHub data integration yet; both endpoints return the placeholder empty
// states the UI renders.
type RepoHandler struct{}

func NewRepoHandler() *RepoHandler {
	return &RepoHandler{}
}

// Trending is public.
// GET /api/trending
func (h *RepoHandler) Trending(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"repositories": []fiber.Map{},
		"message":      "Connect to GitHub to see trending repositories",
	})
}

// Favorites requires a session.
// GET /api/favorites
func (h *RepoHandler) Favorites(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"repositories": []fiber.Map{},
		"message":      "You haven't added any favorites yet",
	})
}
