// Command check verifies exchange connectivity and credentials without
// placing any order: it prints the balance, the ticker for each configured
// symbol, and a sample of the candle feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ysaito/spotbot/internal/config"
	"github.com/ysaito/spotbot/internal/domain"
	"github.com/ysaito/spotbot/internal/infrastructure/exchange"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := exchange.NewBitflyerClient(cfg.APIKey, cfg.APISecret, "")
	candles := exchange.NewBinanceCandleSource("", nil)

	fmt.Println("Checking bitFlyer credentials...")
	balance, err := client.Balance(ctx)
	if err != nil {
		fmt.Printf("Balance check failed: %v\n", err)
		os.Exit(1)
	}
	for currency, asset := range balance {
		if asset.Free > 0 || asset.Used > 0 {
			fmt.Printf("  %s: free=%f used=%f\n", currency, asset.Free, asset.Used)
		}
	}

	for _, sc := range cfg.Symbols {
		price, err := client.LastPrice(ctx, sc.Symbol)
		if err != nil {
			fmt.Printf("Ticker check failed for %s: %v\n", sc.Symbol, err)
			os.Exit(1)
		}
		fmt.Printf("%s last price: %f\n", sc.Symbol, price)

		bars, err := candles.Candles(ctx, sc.Symbol, cfg.Timeframe, 5)
		if err != nil {
			fmt.Printf("Candle feed check failed for %s: %v\n", sc.Symbol, err)
			os.Exit(1)
		}
		if len(bars) == 0 {
			fmt.Printf("Candle feed returned no data for %s, check the proxy pair\n", sc.Symbol)
			os.Exit(1)
		}
		fmt.Printf("%s candle feed ok, latest close %f (proxy %s)\n",
			sc.Symbol, bars[len(bars)-1].Close, domain.BaseCurrency(sc.Symbol)+"USDT")
	}

	fmt.Println("All checks passed.")
}
