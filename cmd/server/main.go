package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/hyper_pnl/internal/config"
	"github.com/vitos/hyper_pnl/internal/infrastructure/exchange"
	"github.com/vitos/hyper_pnl/internal/infrastructure/logger"
	"github.com/vitos/hyper_pnl/internal/infrastructure/storage"
	"github.com/vitos/hyper_pnl/internal/usecase"
	"github.com/vitos/hyper_pnl/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Exchange (Hyperliquid)
	var mids *exchange.MidsStream
	if cfg.Exchange.MidsStream {
		mids = exchange.NewMidsStream(cfg.Exchange.WSEndpoint, log)
		dialCtx, cancel := context.WithTimeout(context.Background(), cfg.Exchange.Timeout)
		if err := mids.Connect(dialCtx); err != nil {
			// REST allMids still works without the stream.
			log.Warn("Mids stream unavailable", zap.Error(err))
		}
		cancel()
		defer mids.Close()
	}
	hl := exchange.NewHyperliquidAdapter(exchange.HyperliquidOptions{
		BaseURL:        cfg.Exchange.RESTEndpoint,
		Timeout:        cfg.Exchange.Timeout,
		DefaultBuilder: cfg.Builder.Address,
		Mids:           mids,
		MidsMaxAge:     cfg.Exchange.MidsMaxAge,
		MaxPages:       cfg.Exchange.MaxFillPages,
	}, log)

	// 5. Init Service
	svc := usecase.NewAnalyticsService(hl, store, usecase.AnalyticsConfig{
		BuilderID:       cfg.Builder.Address,
		MaxStartCapital: cfg.MaxStartCapital(),
		Leaderboard: usecase.LeaderboardConfig{
			Concurrency:  cfg.Leaderboard.Concurrency,
			DefaultLimit: cfg.Leaderboard.DefaultLimit,
		},
	}, log)

	// 6. Init Web Server
	server := web.NewServer(web.Options{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, svc, store, log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 7. Start Server
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 8. Wait for Shutdown
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown failed", zap.Error(err))
	}
}
