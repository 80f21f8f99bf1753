package middleware

import (
	"crypto/subtle"
	"strings"

	"compliance-rag/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderInternalSecret = "X-Internal-Secret"
	HeaderUserID         = "X-User-ID"
)

// AuthMiddleware accepts either a user bearer token or, for service-to-service
// calls, the internal shared secret together with an explicit user id.
// The resolved identity is stored in Locals("userID").
func AuthMiddleware(jwtManager *auth.JWTManager, internalSecret string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret := c.Get(HeaderInternalSecret); secret != "" {
			if internalSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(internalSecret)) != 1 {
				logger.Warn("Invalid internal secret", zap.String("ip", c.IP()))
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"error":   "Invalid internal secret",
				})
			}
			userID := c.Get(HeaderUserID)
			if _, err := uuid.Parse(userID); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "X-User-ID must be a valid UUID",
				})
			}
			c.Locals("userID", userID)
			c.Locals("internal", true)
			return c.Next()
		}

		token := c.Get("Authorization")
		if token == "" {
			logger.Warn("Missing authorization token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization token required",
			})
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		c.Locals("userID", claims.UserID)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}
