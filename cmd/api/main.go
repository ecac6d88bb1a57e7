package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/walletchat/backend/internal/config"
	"github.com/walletchat/backend/internal/db"
	"github.com/walletchat/backend/internal/events"
	apphttp "github.com/walletchat/backend/internal/http"
	"github.com/walletchat/backend/internal/http/handlers"
	"github.com/walletchat/backend/internal/repositories"
	"github.com/walletchat/backend/internal/services"
	"github.com/walletchat/backend/internal/ton"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// TON lite server (optional)
	var lite *ton.LiteClient
	if cfg.LiteServerHost != "" {
		lite, err = ton.NewLiteClient(ctx, cfg.LiteServerHost, cfg.LiteServerPort, cfg.LiteServerKey)
		if err != nil {
			log.Warn("lite server unavailable, balances will read as 0", zap.Error(err))
			lite = nil
		}
	}

	// Repositories
	channelRepo := repositories.NewChannelRepo(pool)
	messageRepo := repositories.NewMessageRepo(pool)
	profileRepo := repositories.NewProfileRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	channelService := services.NewChannelService(channelRepo, auditRepo, publisher, log)
	messageService := services.NewMessageService(messageRepo, channelRepo, publisher, log)
	profileService := services.NewProfileService(profileRepo, publisher, log)
	walletService := services.NewWalletService(walletRepo, cfg, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(walletService, cfg, log)
	channelHandler := handlers.NewChannelHandler(channelService, log)
	messageHandler := handlers.NewMessageHandler(messageService, profileService, log)
	profileHandler := handlers.NewProfileHandler(profileService, log)
	walletHandler := handlers.NewWalletHandler(lite, cfg.TONNetwork, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	wsHub.Start(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, channelHandler, messageHandler, profileHandler, walletHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
