package usecase

import (
	"math"

	"go.uber.org/zap"

	"github.com/ysaito/spotbot/internal/config"
	"github.com/ysaito/spotbot/internal/domain"
	"github.com/ysaito/spotbot/internal/indicator"
)

// SignalGenerator maps a close-price series and the current position state to
// a buy/sell/hold signal. It is stateless across calls: the only state is the
// hasPosition flag passed in.
type SignalGenerator struct {
	log *zap.Logger
}

func NewSignalGenerator(log *zap.Logger) *SignalGenerator {
	return &SignalGenerator{log: log}
}

// For dispatches on the symbol's configured strategy. An unknown strategy
// resolves to a hold with a logged warning, never an error.
func (g *SignalGenerator) For(cfg config.SymbolConfig, closes []float64, hasPosition bool) domain.Signal {
	switch cfg.Strategy {
	case config.StrategyMACrossover:
		return g.maCrossover(closes, cfg.MAShortPeriod, cfg.MALongPeriod, hasPosition)
	case config.StrategyRSIContrarian:
		return g.rsiContrarian(closes, cfg.RSIPeriod, cfg.RSIOversold, cfg.RSIOverbought, hasPosition)
	default:
		g.log.Warn("unknown strategy, holding",
			zap.String("symbol", cfg.Symbol),
			zap.String("strategy", string(cfg.Strategy)))
		return domain.SignalHold
	}
}

// maCrossover emits a buy on a golden cross when flat and a sell on a dead
// cross when holding. Equality on the prior candle counts as being on the
// crossing side, so a flat-then-diverging pair of averages still confirms a
// cross.
func (g *SignalGenerator) maCrossover(closes []float64, shortPeriod, longPeriod int, hasPosition bool) domain.Signal {
	n := len(closes)
	if n < 2 {
		return domain.SignalHold
	}

	short := indicator.SMA(closes, shortPeriod)
	long := indicator.SMA(closes, longPeriod)

	if math.IsNaN(short[n-1]) || math.IsNaN(long[n-1]) {
		g.log.Warn("not enough data for moving averages",
			zap.Int("candles", n), zap.Int("long_period", longPeriod))
		return domain.SignalHold
	}

	curShort, curLong := short[n-1], long[n-1]
	prevShort, prevLong := short[n-2], long[n-2]

	goldenCross := prevShort <= prevLong && curShort > curLong
	deadCross := prevShort >= prevLong && curShort < curLong

	if hasPosition {
		// This variant only exits existing positions; it never re-enters
		// while held.
		if deadCross {
			g.log.Info("dead cross detected",
				zap.Float64("short", curShort), zap.Float64("long", curLong))
			return domain.SignalSell
		}
		return domain.SignalHold
	}

	if goldenCross {
		g.log.Info("golden cross detected",
			zap.Float64("short", curShort), zap.Float64("long", curLong))
		return domain.SignalBuy
	}
	return domain.SignalHold
}

// rsiContrarian buys oversold and sells overbought, with strict inequality on
// both bounds.
func (g *SignalGenerator) rsiContrarian(closes []float64, period int, oversold, overbought float64, hasPosition bool) domain.Signal {
	rsi, ok := indicator.RSI(closes, period)
	if !ok {
		g.log.Warn("not enough data for RSI",
			zap.Int("candles", len(closes)), zap.Int("period", period))
		return domain.SignalHold
	}

	if hasPosition {
		if rsi > overbought {
			g.log.Info("RSI overbought", zap.Float64("rsi", rsi))
			return domain.SignalSell
		}
		return domain.SignalHold
	}

	if rsi < oversold {
		g.log.Info("RSI oversold", zap.Float64("rsi", rsi))
		return domain.SignalBuy
	}
	return domain.SignalHold
}
