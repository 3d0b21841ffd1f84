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
)

const cycleBackoff = 60 * time.Second

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

	for _, sc := range cfg.Symbols {
		log.Info("Trading symbol configured",
			zap.String("symbol", sc.Symbol),
			zap.String("strategy", string(sc.Strategy)),
			zap.Float64("max_position_pct", sc.MaxPositionPct),
			zap.Float64("stop_loss_pct", sc.StopLossPct))
	}
	log.Warn("LIVE TRADING against a real account, interrupt within the grace period to abort",
		zap.Duration("grace", 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-time.After(10 * time.Second):
	case <-ctx.Done():
		log.Info("Aborted before first cycle")
		return
	}

	interval := time.Duration(cfg.IntervalSec) * time.Second
	log.Info("Starting trade loop",
		zap.Duration("interval", interval),
		zap.Int("symbols", len(cfg.Symbols)))
	runner.Loop(ctx, interval, cycleBackoff)

	log.Info("Shutting down...")
}
