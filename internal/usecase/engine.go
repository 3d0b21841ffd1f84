package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ysaito/spotbot/internal/config"
	"github.com/ysaito/spotbot/internal/domain"
)

// minQuoteBalance is the fixed quote-currency floor below which buys are not
// attempted at all.
const minQuoteBalance = 1000.0

// minTradableBalance returns the smallest base-currency holding that counts
// as "we meaningfully hold this asset". This is a local heuristic for the
// position-held flag, not the exchange's official minimum order size.
func minTradableBalance(symbol string) float64 {
	if domain.BaseCurrency(symbol) == "BTC" {
		return 0.001
	}
	return 0.01
}

// lotUnit returns the order-size increment the exchange accepts for the
// symbol's base currency.
func lotUnit(symbol string) float64 {
	if domain.BaseCurrency(symbol) == "BTC" {
		return 0.001
	}
	return 0.01
}

// truncateToLot rounds a quantity down to a whole number of lot units. It
// never rounds up: an order must not exceed what the balance actually covers.
func truncateToLot(qty, unit float64) float64 {
	if unit <= 0 {
		return qty
	}
	// The epsilon absorbs float noise from the division without ever
	// lifting a genuinely short quantity over the next lot boundary.
	return math.Floor(qty/unit+1e-9) * unit
}

// Engine runs one decision cycle for one symbol: fetch data, derive the
// position-held flag, check the stop-loss, generate the strategy signal,
// size and place the order, and record the result.
type Engine struct {
	candles   domain.CandleSource
	exchange  domain.Exchange
	positions domain.PositionStore
	trades    domain.TradeLogger
	signals   *SignalGenerator
	log       *zap.Logger
	timeframe string
	lookback  int
	now       func() time.Time
}

func NewEngine(
	candles domain.CandleSource,
	exchange domain.Exchange,
	positions domain.PositionStore,
	trades domain.TradeLogger,
	signals *SignalGenerator,
	timeframe string,
	log *zap.Logger,
) *Engine {
	return &Engine{
		candles:   candles,
		exchange:  exchange,
		positions: positions,
		trades:    trades,
		signals:   signals,
		log:       log,
		timeframe: timeframe,
		lookback:  100,
		now:       time.Now,
	}
}

// ProcessSymbol never returns an error: any failure is recorded on the
// result so one symbol's trouble cannot abort the rest of the cycle.
func (e *Engine) ProcessSymbol(ctx context.Context, cfg config.SymbolConfig) *domain.TradeResult {
	res := &domain.TradeResult{
		Symbol:   cfg.Symbol,
		Strategy: string(cfg.Strategy),
		Signal:   domain.SignalHold,
		Action:   domain.ActionNone,
	}
	if err := e.process(ctx, cfg, res); err != nil {
		res.Error = err.Error()
		e.log.Error("symbol processing failed",
			zap.String("symbol", cfg.Symbol), zap.Error(err))
	}
	return res
}

func (e *Engine) process(ctx context.Context, cfg config.SymbolConfig, res *domain.TradeResult) error {
	symbol := cfg.Symbol
	base := domain.BaseCurrency(symbol)
	quote := domain.QuoteCurrency(symbol)

	candles, err := e.candles.Candles(ctx, symbol, e.timeframe, e.lookback)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	balance, err := e.exchange.Balance(ctx)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}
	quoteBalance := balance[quote].Free
	baseBalance := balance[base].Free

	price, err := e.exchange.LastPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetch ticker: %w", err)
	}

	minBalance := minTradableBalance(symbol)

	// Held-or-not comes from the live balance; the position store only
	// supplies the entry price for stop-loss math. Balance is ground truth
	// for "do we hold", the store for "at what price did we enter".
	hasPosition := baseBalance > minBalance

	trend := ClassifyTrend(closes, TrendMAPeriod, TrendLookback)

	signal := e.signals.For(cfg, closes, hasPosition)
	if cfg.Strategy == config.StrategyRSIContrarian &&
		signal == domain.SignalBuy && trend == domain.TrendDown {
		// The contrarian entry is the one place an oversold reading can
		// walk straight into a falling market; the trend gate blocks it.
		e.log.Info("buy suppressed by downtrend", zap.String("symbol", symbol))
		signal = domain.SignalHold
	}

	res.Signal = signal
	res.Trend = trend
	res.Price = price
	res.QuoteBalance = quoteBalance
	res.BaseBalance = baseBalance
	res.HasPosition = hasPosition

	e.log.Info("signal",
		zap.String("symbol", symbol),
		zap.String("strategy", string(cfg.Strategy)),
		zap.String("signal", string(signal)),
		zap.String("trend", string(trend)),
		zap.Float64("price", price))

	unit := lotUnit(symbol)

	// Stop-loss wins over whatever the strategy said.
	if baseBalance > minBalance && e.stopLossHit(ctx, symbol, price, cfg.StopLossPct) {
		amount := truncateToLot(baseBalance, unit)
		ack, err := e.exchange.MarketSell(ctx, symbol, amount)
		if err != nil {
			// Position record stays so a later cycle can retry the exit.
			return fmt.Errorf("stop-loss sell: %w", err)
		}
		res.Action = domain.ActionSell
		res.Signal = domain.SignalStopLoss
		res.Amount = amount
		res.OrderID = ack.ID
		e.refreshBalances(ctx, base, quote, res)
		e.clearPosition(ctx, symbol)
		e.logTrade(ctx, res, price)
		e.log.Warn("stop loss executed", zap.String("symbol", symbol),
			zap.Float64("amount", amount), zap.Float64("price", price))
		return nil
	}

	switch {
	case signal == domain.SignalBuy && quoteBalance > minQuoteBalance:
		spend := quoteBalance * cfg.MaxPositionPct
		amount := truncateToLot(spend/price, unit)

		minAmount, err := e.exchange.MinOrderAmount(ctx, symbol)
		if err != nil {
			return fmt.Errorf("fetch min order amount: %w", err)
		}
		if amount < minAmount {
			e.log.Warn("buy amount below exchange minimum",
				zap.String("symbol", symbol),
				zap.Float64("amount", amount), zap.Float64("min", minAmount))
			return nil
		}

		ack, err := e.exchange.MarketBuy(ctx, symbol, amount)
		if err != nil {
			// No position is recorded for an unconfirmed order.
			return fmt.Errorf("buy order: %w", err)
		}
		res.Action = domain.ActionBuy
		res.Amount = amount
		res.OrderID = ack.ID
		e.refreshBalances(ctx, base, quote, res)
		if err := e.positions.Save(ctx, symbol, price, amount); err != nil {
			e.log.Warn("failed to record position", zap.String("symbol", symbol), zap.Error(err))
		}
		e.logTrade(ctx, res, price)
		e.log.Info("buy executed", zap.String("symbol", symbol),
			zap.Float64("amount", amount), zap.Float64("price", price))

	case signal == domain.SignalSell && baseBalance > minBalance:
		amount := truncateToLot(baseBalance, unit)
		ack, err := e.exchange.MarketSell(ctx, symbol, amount)
		if err != nil {
			return fmt.Errorf("sell order: %w", err)
		}
		res.Action = domain.ActionSell
		res.Amount = amount
		res.OrderID = ack.ID
		e.refreshBalances(ctx, base, quote, res)
		e.clearPosition(ctx, symbol)
		e.logTrade(ctx, res, price)
		e.log.Info("sell executed", zap.String("symbol", symbol),
			zap.Float64("amount", amount), zap.Float64("price", price))
	}

	return nil
}

// stopLossHit reports whether the recorded entry price has dropped by at
// least the configured fraction. A balance with no recorded entry price gets
// no stop-loss protection: there is nothing to measure the drop against.
func (e *Engine) stopLossHit(ctx context.Context, symbol string, price, stopLossPct float64) bool {
	pos, err := e.positions.Load(ctx, symbol)
	if err != nil {
		e.log.Warn("failed to load position", zap.String("symbol", symbol), zap.Error(err))
		return false
	}
	if pos == nil || pos.EntryPrice <= 0 {
		return false
	}

	drop := (pos.EntryPrice - price) / pos.EntryPrice
	if drop >= stopLossPct {
		e.log.Warn("stop loss triggered",
			zap.String("symbol", symbol),
			zap.Float64("entry", pos.EntryPrice),
			zap.Float64("current", price),
			zap.Float64("drop_pct", drop*100))
		return true
	}
	return false
}

// refreshBalances re-fetches holdings after an order so the result reports
// the post-trade state. A failed refresh keeps the pre-trade snapshot.
func (e *Engine) refreshBalances(ctx context.Context, base, quote string, res *domain.TradeResult) {
	balance, err := e.exchange.Balance(ctx)
	if err != nil {
		e.log.Warn("failed to refresh balances", zap.Error(err))
		return
	}
	res.QuoteBalance = balance[quote].Free
	res.BaseBalance = balance[base].Free
}

func (e *Engine) clearPosition(ctx context.Context, symbol string) {
	if err := e.positions.Clear(ctx, symbol); err != nil {
		e.log.Warn("failed to clear position", zap.String("symbol", symbol), zap.Error(err))
	}
}

// logTrade appends the executed action to the trade log. The trade itself
// already succeeded, so a logging failure is a warning, never an abort.
func (e *Engine) logTrade(ctx context.Context, res *domain.TradeResult, price float64) {
	entry := domain.TradeLogEntry{
		Timestamp:    e.now(),
		Action:       res.Action,
		Symbol:       res.Symbol,
		Amount:       res.Amount,
		Price:        price,
		QuoteBalance: res.QuoteBalance,
		BaseBalance:  res.BaseBalance,
		Signal:       res.Signal,
		OrderID:      res.OrderID,
	}
	if err := e.trades.Log(ctx, entry); err != nil {
		e.log.Warn("failed to log trade", zap.String("symbol", res.Symbol), zap.Error(err))
	}
}
