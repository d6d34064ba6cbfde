package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mhalesto/localloop/internal/config"
	"github.com/mhalesto/localloop/internal/dto"
)

// AdminRequired gates moderation endpoints behind the configured admin token.
func AdminRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}
