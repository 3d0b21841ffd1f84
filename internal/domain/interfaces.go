package domain

import "context"

// CandleSource provides OHLCV history for a symbol. The feed may come from a
// different venue than the trading account (a price-correlated proxy pair),
// so callers must treat the data as opaque and not assume the feed symbol
// matches the trading symbol.
type CandleSource interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}

// Exchange is the order gateway for the trading account.
type Exchange interface {
	Balance(ctx context.Context) (map[string]Asset, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
	MarketBuy(ctx context.Context, symbol string, amount float64) (*OrderAck, error)
	MarketSell(ctx context.Context, symbol string, amount float64) (*OrderAck, error)
	MinOrderAmount(ctx context.Context, symbol string) (float64, error)
}

// PositionStore persists at most one open-position record per symbol.
// Load returns (nil, nil) when no record exists.
type PositionStore interface {
	Save(ctx context.Context, symbol string, entryPrice, amount float64) error
	Load(ctx context.Context, symbol string) (*Position, error)
	Clear(ctx context.Context, symbol string) error
}

// TradeLogger appends one record per executed (non-hold) action.
type TradeLogger interface {
	Log(ctx context.Context, entry TradeLogEntry) error
}

// TradeHistory reads back the local trade log, newest first.
type TradeHistory interface {
	RecentTrades(ctx context.Context, limit int) ([]TradeLogEntry, error)
}
