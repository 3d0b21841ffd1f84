package domain

import (
	"strings"
	"time"
)

// Signal is the output of a strategy for one symbol at one point in time.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"

	// SignalStopLoss is a label, not a strategy output: when the stop-loss
	// overrides the strategy, the executed trade is recorded under this name.
	SignalStopLoss Signal = "stop_loss"
)

// Action is what the decision engine actually did for a symbol in one cycle.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionNone Action = "none"
)

// Trend is a longer-horizon tag, independent of the strategy signal.
type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
)

// Candle is one OHLCV bar from the market data feed.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Position records the believed entry state for a symbol. At most one live
// record exists per symbol. The entry price is the sole input to stop-loss
// math; it is a best-effort local note, not the exchange's cost basis.
type Position struct {
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	Amount     float64   `json:"amount"`
	EntryTime  time.Time `json:"entry_time"`
}

// Asset is one currency's holdings in a balance snapshot.
type Asset struct {
	Free float64 `json:"free"`
	Used float64 `json:"used"`
}

// OrderAck is the exchange's confirmation of an accepted market order.
type OrderAck struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TradeResult is the outcome of one decision cycle for one symbol. It is
// created fresh each cycle and consumed by the trade log and the HTTP
// response; it is never persisted as state.
type TradeResult struct {
	Symbol       string  `json:"symbol"`
	Strategy     string  `json:"strategy"`
	Signal       Signal  `json:"signal"`
	Action       Action  `json:"action"`
	Trend        Trend   `json:"trend,omitempty"`
	Price        float64 `json:"price"`
	QuoteBalance float64 `json:"balance_quote"`
	BaseBalance  float64 `json:"balance_base"`
	HasPosition  bool    `json:"has_position"`
	Amount       float64 `json:"amount,omitempty"`
	OrderID      string  `json:"order_id,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// TradeLogEntry is one row of the append-only trade log. Balances are the
// post-trade snapshot.
type TradeLogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	Symbol       string    `json:"symbol"`
	Amount       float64   `json:"amount"`
	Price        float64   `json:"price"`
	QuoteBalance float64   `json:"balance_quote"`
	BaseBalance  float64   `json:"balance_base"`
	Signal       Signal    `json:"signal"`
	OrderID      string    `json:"order_id"`
}

// BaseCurrency returns the asset being traded, e.g. "BTC" for "BTC/JPY".
func BaseCurrency(symbol string) string {
	if i := strings.Index(symbol, "/"); i >= 0 {
		return symbol[:i]
	}
	return symbol
}

// QuoteCurrency returns the pricing currency, e.g. "JPY" for "BTC/JPY".
func QuoteCurrency(symbol string) string {
	if i := strings.Index(symbol, "/"); i >= 0 {
		return symbol[i+1:]
	}
	return ""
}
