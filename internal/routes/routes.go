package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/mhalesto/localloop/internal/config"
	"github.com/mhalesto/localloop/internal/handlers"
	"github.com/mhalesto/localloop/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	statusHandler *handlers.StatusHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Public feed reads
	api.Get("/statuses", statusHandler.Feed)
	api.Get("/statuses/:id/replies", statusHandler.GetReplies)

	// Writes require JWT and a stricter limit: 20 req/min per IP
	write := api.Group("", limiter.New(limiter.Config{
		Max:               20,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}), middleware.JWTProtected(cfg))
	write.Post("/statuses", statusHandler.Create)
	write.Post("/statuses/:id/replies", statusHandler.AddReply)
	write.Post("/statuses/:id/reactions", statusHandler.React)
	write.Post("/statuses/:id/reports", statusHandler.Report)

	// Moderation tooling
	admin := api.Group("/admin", middleware.AdminRequired(cfg))
	admin.Get("/statuses/reported", statusHandler.Reported)
	admin.Post("/statuses/cleanup", statusHandler.Cleanup)
}
