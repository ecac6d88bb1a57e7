package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/walletchat/backend/internal/config"
	"github.com/walletchat/backend/internal/http/handlers"
	"github.com/walletchat/backend/internal/middleware"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	channelHandler *handlers.ChannelHandler,
	messageHandler *handlers.MessageHandler,
	profileHandler *handlers.ProfileHandler,
	walletHandler *handlers.WalletHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/proof-payload", authHandler.ProofPayload)
	api.Post("/auth/connect", authHandler.Connect)

	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Wallet
	protected.Get("/wallet/balance", walletHandler.Balance)

	// Channels
	protected.Post("/channels", channelHandler.CreateChannel)
	protected.Get("/channels", channelHandler.ListChannels)
	protected.Get("/channels/:id", channelHandler.GetChannel)
	protected.Post("/channels/:id/join", channelHandler.JoinChannel)
	protected.Post("/channels/:id/leave", channelHandler.LeaveChannel)

	// Messages
	protected.Get("/channels/:id/messages", messageHandler.ListMessages)
	protected.Post("/channels/:id/messages", messageHandler.SendMessage)

	// Profiles
	protected.Put("/profiles/me", profileHandler.UpdateProfile)
	protected.Get("/profiles", profileHandler.ListProfiles)
	protected.Get("/profiles/:address", profileHandler.GetProfile)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
