package middleware

import (
	"log"
	"strings"

	"productapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired is a Fiber middleware that admits requests carrying a valid
// bearer token. The token subject is stored in Locals under "username".
func AuthRequired(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") || parts[1] == "" {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}
		tokenString := parts[1]

		subject, err := tokens.SubjectOf(tokenString)
		if err != nil {
			log.Printf("JWT decoding failed: %v", err)
			return unauthorized(c, "Invalid or expired token")
		}
		if !tokens.Validate(tokenString, subject) {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals("username", subject)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"status":  fiber.StatusUnauthorized,
	})
}
