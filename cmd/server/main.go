package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/api"
	"github.com/riftlane/match-backend/internal/broadcast"
	"github.com/riftlane/match-backend/internal/cache"
	"github.com/riftlane/match-backend/internal/config"
	"github.com/riftlane/match-backend/internal/jobs"
	"github.com/riftlane/match-backend/internal/logging"
	"github.com/riftlane/match-backend/internal/repository/postgres"
	"github.com/riftlane/match-backend/internal/service"
	"github.com/riftlane/match-backend/internal/websocket"
)

// defaultChampions seeds timed-out pick auto-selection when no external
// catalog is configured.
var defaultChampions = []string{
	"aatrox", "ahri", "akali", "ashe", "braum", "caitlyn", "darius", "ezreal",
	"garen", "janna", "jinx", "kaisa", "leesin", "leona", "lux", "malphite",
	"morgana", "nautilus", "orianna", "renekton", "sett", "thresh", "vayne",
	"viktor", "yasuo", "zed",
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	matches := postgres.NewMatchRepository(db)

	rdb, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	store := cache.NewStore(rdb, cfg.CacheTTL, cfg.QueueTTL)
	bus := broadcast.NewBus(rdb, logger)

	services := service.New(store, matches, bus, service.StaticCatalog(defaultChampions), service.Config{
		TeamSize:        cfg.TeamSize,
		MaxRatingSpread: cfg.MaxRatingSpread,
		AcceptTimeout:   cfg.AcceptTimeout,
		PhaseTimer:      cfg.PhaseTimer,
		TimeoutPolicy:   service.TimeoutPolicy(cfg.TimeoutPolicy),
	}, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Feed cross-process events to local websocket clients.
	go func() {
		if err := bus.Run(ctx, hub.Dispatch); err != nil && ctx.Err() == nil {
			logger.Error("event subscription ended", zap.Error(err))
		}
	}()

	runner := jobs.NewRunner(logger,
		jobs.Job{Name: "match-pass", Interval: cfg.MatchPassInterval, Run: services.Queue.RunMatchPass},
		jobs.Job{Name: "proposal-sweep", Interval: cfg.SweepInterval, Run: services.Acceptance.SweepExpired},
		jobs.Job{Name: "draft-sweep", Interval: cfg.SweepInterval, Run: services.Draft.SweepExpired},
		jobs.Job{Name: "reconcile", Interval: cfg.ReconcileInterval, Run: services.Reconciler.Run},
		jobs.Job{Name: "recover-stalled", Interval: cfg.ReconcileInterval, Run: func(ctx context.Context) error {
			if err := services.Acceptance.RecoverStalled(ctx); err != nil {
				return err
			}
			return services.Monitor.RecoverStalled(ctx)
		}},
		jobs.Job{Name: "status-broadcast", Interval: cfg.BroadcastInterval, Run: services.Broadcaster.Run},
	)
	runner.Start(ctx)

	router := api.NewRouter(services, hub, cfg, logger)
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	runner.Stop()
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
