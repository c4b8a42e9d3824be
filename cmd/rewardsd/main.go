package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shieldfi/testnet-rewards/internal/api"
	"github.com/shieldfi/testnet-rewards/internal/chain"
	"github.com/shieldfi/testnet-rewards/internal/config"
	"github.com/shieldfi/testnet-rewards/internal/db"
	"github.com/shieldfi/testnet-rewards/internal/rewards"
	"github.com/shieldfi/testnet-rewards/internal/websocket"
	"github.com/shieldfi/testnet-rewards/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Debug)
	defer logger.Sync()

	logger.Info("Testnet rewards service starting...")

	store, err := db.NewDBService(cfg.Database, db.DefaultDBOperations{})
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer store.Close()

	wsManager := websocket.NewWebSocketManager()
	go wsManager.Run()

	svc := rewards.NewService(store, wsManager)

	r := api.SetupRouter(svc, wsManager)
	go func() {
		if err := r.Run(cfg.Server.Addr()); err != nil {
			logger.Fatal("Failed to run server: %v", err)
		}
	}()

	go broadcastLeaderboard(svc, wsManager, cfg.Rewards)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Chain.Enabled {
		watcher, err := chain.NewWatcher(cfg.Chain.RPCURL, cfg.Chain.VaultAddress,
			cfg.Chain.StartBlock, cfg.Chain.PollInterval, svc, nil)
		if err != nil {
			logger.Fatal("Failed to start chain watcher: %v", err)
		}
		go watcher.Run(ctx)
		logger.Info("Chain watcher started for vault %s", cfg.Chain.VaultAddress)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
}

// broadcastLeaderboard periodically pushes the current standings to all
// websocket subscribers.
func broadcastLeaderboard(svc *rewards.Service, wsManager *websocket.WebSocketManager, cfg config.RewardsConfig) {
	ticker := time.NewTicker(cfg.LeaderboardBroadcastInterval)
	defer ticker.Stop()

	for range ticker.C {
		leaderboard, err := svc.GetLeaderboard(cfg.LeaderboardBroadcastSize)
		if err != nil {
			logger.Error("Failed to get leaderboard: %v", err)
			continue
		}
		if err := wsManager.BroadcastLeaderboardUpdate(leaderboard); err != nil {
			logger.Error("Failed to broadcast leaderboard: %v", err)
		}
	}
}
