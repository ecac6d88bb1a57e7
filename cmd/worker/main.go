package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/walletchat/backend/internal/config"
	"github.com/walletchat/backend/internal/db"
	"github.com/walletchat/backend/internal/models"
	"github.com/walletchat/backend/internal/repositories"
	"go.uber.org/zap"
)

// Presence sweeper: downgrades profile status as last_seen ages out.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	profileRepo := repositories.NewProfileRepo(pool)

	log.Info("presence worker started",
		zap.Duration("away_after", cfg.AwayAfter),
		zap.Duration("offline_after", cfg.OfflineAfter),
	)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			sweepPresence(ctx, profileRepo, cfg, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func sweepPresence(ctx context.Context, profileRepo *repositories.ProfileRepo, cfg *config.Config, log *zap.Logger) {
	away, err := profileRepo.MarkStale(ctx, models.StatusOnline, models.StatusAway, cfg.AwayAfter)
	if err != nil {
		log.Error("failed to mark profiles away", zap.Error(err))
		return
	}

	offline, err := profileRepo.MarkStale(ctx, models.StatusAway, models.StatusOffline, cfg.OfflineAfter)
	if err != nil {
		log.Error("failed to mark profiles offline", zap.Error(err))
		return
	}

	if away > 0 || offline > 0 {
		log.Info("presence sweep", zap.Int64("away", away), zap.Int64("offline", offline))
	}
}
