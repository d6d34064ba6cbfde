package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mhalesto/localloop/internal/config"
	"github.com/mhalesto/localloop/internal/dto"
	"github.com/mhalesto/localloop/internal/status"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// CurrentAuthor builds the denormalized author snapshot from the verified
// JWT claims the auth platform issued.
func CurrentAuthor(c *fiber.Ctx) (status.Author, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return status.Author{}, errors.New("invalid token in context")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return status.Author{}, errors.New("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return status.Author{}, errors.New("missing sub claim")
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	picture, _ := claims["picture"].(string)
	nickname, _ := claims["nickname"].(string)
	return status.Author{
		UID:         sub,
		DisplayName: name,
		Email:       email,
		PhotoURL:    picture,
		Nickname:    nickname,
	}, nil
}
