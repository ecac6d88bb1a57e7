package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/walletchat/backend/internal/auth"
	"github.com/walletchat/backend/internal/config"
	"go.uber.org/zap"
)

const (
	CtxAddress = "wallet_address"
	CtxNetwork = "wallet_network"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxAddress, claims.Address)
		c.Locals(CtxNetwork, claims.Network)

		return c.Next()
	}
}

// GetAddress returns the proven wallet address of the caller.
func GetAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxAddress).(string)
	return addr
}

func GetNetwork(c *fiber.Ctx) string {
	n, _ := c.Locals(CtxNetwork).(string)
	return n
}
