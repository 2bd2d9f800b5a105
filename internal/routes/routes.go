package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/videotube/internal/handlers"
	"github.com/yourorg/videotube/internal/middleware"
)

// Register wires the /users surface. requireAuth guards the session-gated
// routes; limiter (may be nil) throttles the anonymous auth endpoints.
func Register(app *fiber.App, h *handlers.UserHandler, requireAuth fiber.Handler, limiter *middleware.RateLimiter) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	api := app.Group("/api/v1")
	users := api.Group("/users")

	throttled := func(handler fiber.Handler) []fiber.Handler {
		if limiter == nil {
			return []fiber.Handler{handler}
		}
		return []fiber.Handler{limiter.ByIP(), handler}
	}

	users.Post("/register", throttled(h.Register)...)
	users.Post("/login", throttled(h.Login)...)
	users.Post("/refresh-token", h.RefreshToken)

	users.Post("/logout", requireAuth, h.Logout)
	users.Post("/change-password", requireAuth, h.ChangePassword)
	users.Get("/current-user", requireAuth, h.GetCurrentUser)
	users.Patch("/update-account", requireAuth, h.UpdateAccount)
	users.Patch("/update-avatar", requireAuth, h.UpdateAvatar)
	users.Patch("/update-coverimage", requireAuth, h.UpdateCoverImage)
	users.Get("/c/:username", requireAuth, h.GetChannelProfile)
	users.Post("/c/:username/subscribe", requireAuth, h.ToggleSubscription)
	users.Get("/history", requireAuth, h.GetWatchHistory)
	users.Post("/history/:videoId", requireAuth, h.RecordWatch)
}
