package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ysaito/spotbot/internal/config"
	"github.com/ysaito/spotbot/internal/domain"
	"github.com/ysaito/spotbot/internal/infrastructure/exchange"
	"github.com/ysaito/spotbot/internal/infrastructure/logger"
	"github.com/ysaito/spotbot/internal/infrastructure/storage"
	"github.com/ysaito/spotbot/internal/usecase"
	"github.com/ysaito/spotbot/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	local, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer local.Close()

	var remote *storage.MySQLStore
	if cfg.Storage.MySQLDSN != "" {
		remote, err = storage.NewMySQLStore(cfg.Storage.MySQLDSN)
		if err != nil {
			log.Warn("Failed to init mysql, continuing with local storage only", zap.Error(err))
			remote = nil
		} else {
			defer remote.Close()
		}
	}

	var remotePositions domain.PositionStore
	var remoteTrades domain.TradeLogger
	if remote != nil {
		remotePositions = remote
		remoteTrades = remote
	}
	positions := storage.NewTieredPositionStore(remotePositions, local, log)
	trades := storage.NewFanoutTradeLogger(local, remoteTrades, log)

	client := exchange.NewBitflyerClient(cfg.APIKey, cfg.APISecret, "")
	candles := exchange.NewBinanceCandleSource("", nil)

	signals := usecase.NewSignalGenerator(log)
	engine := usecase.NewEngine(candles, client, positions, trades, signals, cfg.Timeframe, log)
	runner := usecase.NewRunner(engine, cfg, log)

	server := web.NewServer(cfg.Server.Port, runner, local, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown failed", zap.Error(err))
	}
}
