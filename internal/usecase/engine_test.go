package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ysaito/spotbot/internal/domain"
	"github.com/ysaito/spotbot/internal/usecase"
)

type fakeCandles struct {
	closes []float64
	err    error
}

func (f *fakeCandles) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	candles := make([]domain.Candle, len(f.closes))
	for i, c := range f.closes {
		candles[i] = domain.Candle{Time: int64(i), Close: c}
	}
	return candles, nil
}

type fakeOrder struct {
	symbol string
	amount float64
}

type fakeExchange struct {
	balances  map[string]domain.Asset
	price     float64
	minAmount float64
	buyErr    error
	sellErr   error
	buys      []fakeOrder
	sells     []fakeOrder
}

func (f *fakeExchange) Balance(ctx context.Context) (map[string]domain.Asset, error) {
	return f.balances, nil
}

func (f *fakeExchange) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, nil
}

func (f *fakeExchange) MarketBuy(ctx context.Context, symbol string, amount float64) (*domain.OrderAck, error) {
	if f.buyErr != nil {
		return nil, f.buyErr
	}
	f.buys = append(f.buys, fakeOrder{symbol, amount})
	return &domain.OrderAck{ID: "buy-1", Status: "accepted"}, nil
}

func (f *fakeExchange) MarketSell(ctx context.Context, symbol string, amount float64) (*domain.OrderAck, error) {
	if f.sellErr != nil {
		return nil, f.sellErr
	}
	f.sells = append(f.sells, fakeOrder{symbol, amount})
	return &domain.OrderAck{ID: "sell-1", Status: "accepted"}, nil
}

func (f *fakeExchange) MinOrderAmount(ctx context.Context, symbol string) (float64, error) {
	return f.minAmount, nil
}

type memStore struct {
	positions map[string]*domain.Position
	cleared   int
}

func newMemStore() *memStore {
	return &memStore{positions: make(map[string]*domain.Position)}
}

func (m *memStore) Save(ctx context.Context, symbol string, entryPrice, amount float64) error {
	m.positions[symbol] = &domain.Position{Symbol: symbol, EntryPrice: entryPrice, Amount: amount}
	return nil
}

func (m *memStore) Load(ctx context.Context, symbol string) (*domain.Position, error) {
	return m.positions[symbol], nil
}

func (m *memStore) Clear(ctx context.Context, symbol string) error {
	delete(m.positions, symbol)
	m.cleared++
	return nil
}

type memLog struct {
	entries []domain.TradeLogEntry
}

func (m *memLog) Log(ctx context.Context, e domain.TradeLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func newTestEngine(candles *fakeCandles, ex *fakeExchange, store *memStore, tlog *memLog) *usecase.Engine {
	return usecase.NewEngine(candles, ex, store, tlog,
		usecase.NewSignalGenerator(zap.NewNop()), "1h", zap.NewNop())
}

func TestStopLossThresholdIsInclusive(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		wantSell bool
	}{
		{"9 percent drop holds", 910000, false},
		{"10 percent drop sells", 900000, true},
		{"11 percent drop sells", 890000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExchange{
				balances: map[string]domain.Asset{
					"BTC": {Free: 0.5},
					"JPY": {Free: 0},
				},
				price:     tt.price,
				minAmount: 0.001,
			}
			store := newMemStore()
			store.Save(context.Background(), "BTC/JPY", 1000000, 0.5)
			tlog := &memLog{}

			engine := newTestEngine(&fakeCandles{closes: repeat(100, 60)}, ex, store, tlog)
			res := engine.ProcessSymbol(context.Background(), maConfig())

			if res.Error != "" {
				t.Fatalf("unexpected error: %s", res.Error)
			}
			if tt.wantSell {
				if res.Action != domain.ActionSell || res.Signal != domain.SignalStopLoss {
					t.Errorf("got action=%v signal=%v, want sell/stop_loss", res.Action, res.Signal)
				}
				if len(ex.sells) != 1 || !floatEquals(ex.sells[0].amount, 0.5) {
					t.Errorf("sells = %+v, want one full-balance sell", ex.sells)
				}
				if store.positions["BTC/JPY"] != nil {
					t.Error("position should be cleared after stop-loss exit")
				}
				if len(tlog.entries) != 1 || tlog.entries[0].Signal != domain.SignalStopLoss {
					t.Errorf("trade log = %+v, want one stop_loss entry", tlog.entries)
				}
			} else {
				if res.Action != domain.ActionNone || len(ex.sells) != 0 {
					t.Errorf("got action=%v sells=%+v, want no trade", res.Action, ex.sells)
				}
			}
		})
	}
}

func TestStopLossOverridesStrategySell(t *testing.T) {
	// The strategy itself would sell here too; the stop-loss must win and
	// label the trade as its own.
	deadCross := append(repeat(100, 20), 102, 102, 102, 97, 92)
	ex := &fakeExchange{
		balances:  map[string]domain.Asset{"BTC": {Free: 0.2}, "JPY": {Free: 0}},
		price:     850000,
		minAmount: 0.001,
	}
	store := newMemStore()
	store.Save(context.Background(), "BTC/JPY", 1000000, 0.2)

	engine := newTestEngine(&fakeCandles{closes: deadCross}, ex, store, &memLog{})
	res := engine.ProcessSymbol(context.Background(), maConfig())

	if res.Signal != domain.SignalStopLoss {
		t.Errorf("signal = %v, want stop_loss", res.Signal)
	}
	if res.Action != domain.ActionSell {
		t.Errorf("action = %v, want sell", res.Action)
	}
}

func TestBuySizingTruncatesToLot(t *testing.T) {
	goldenCross := append(repeat(100, 20), 98, 98, 98, 103, 108)
	ex := &fakeExchange{
		balances:  map[string]domain.Asset{"BTC": {Free: 0}, "JPY": {Free: 1000000}},
		price:     3000000,
		minAmount: 0.001,
	}
	store := newMemStore()
	tlog := &memLog{}

	engine := newTestEngine(&fakeCandles{closes: goldenCross}, ex, store, tlog)
	res := engine.ProcessSymbol(context.Background(), maConfig())

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.Action != domain.ActionBuy {
		t.Fatalf("action = %v, want buy", res.Action)
	}
	// 35% of 1,000,000 at 3,000,000 is 0.11666..., truncated to 0.116.
	if len(ex.buys) != 1 || !floatEquals(ex.buys[0].amount, 0.116) {
		t.Errorf("buys = %+v, want one order of 0.116", ex.buys)
	}

	pos := store.positions["BTC/JPY"]
	if pos == nil {
		t.Fatal("position should be recorded after a confirmed buy")
	}
	if !floatEquals(pos.EntryPrice, 3000000) || !floatEquals(pos.Amount, 0.116) {
		t.Errorf("position = %+v, want entry 3000000 amount 0.116", pos)
	}
	if len(tlog.entries) != 1 || tlog.entries[0].Action != domain.ActionBuy {
		t.Errorf("trade log = %+v, want one buy entry", tlog.entries)
	}
}

func TestBuyBelowExchangeMinimumIsSkipped(t *testing.T) {
	goldenCross := append(repeat(100, 20), 98, 98, 98, 103, 108)
	ex := &fakeExchange{
		balances:  map[string]domain.Asset{"BTC": {Free: 0}, "JPY": {Free: 2000}},
		price:     3000000,
		minAmount: 0.001,
	}
	store := newMemStore()

	engine := newTestEngine(&fakeCandles{closes: goldenCross}, ex, store, &memLog{})
	res := engine.ProcessSymbol(context.Background(), maConfig())

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.Action != domain.ActionNone || len(ex.buys) != 0 {
		t.Errorf("got action=%v buys=%+v, want no order", res.Action, ex.buys)
	}
	if store.positions["BTC/JPY"] != nil {
		t.Error("no position should be recorded without an order")
	}
}

func TestBuySkippedWhenQuoteBalanceLow(t *testing.T) {
	goldenCross := append(repeat(100, 20), 98, 98, 98, 103, 108)
	ex := &fakeExchange{
		balances:  map[string]domain.Asset{"BTC": {Free: 0}, "JPY": {Free: 900}},
		price:     3000000,
		minAmount: 0.001,
	}

	engine := newTestEngine(&fakeCandles{closes: goldenCross}, ex, newMemStore(), &memLog{})
	res := engine.ProcessSymbol(context.Background(), maConfig())

	if res.Signal != domain.SignalBuy {
		t.Errorf("signal = %v, want buy", res.Signal)
	}
	if res.Action != domain.ActionNone || len(ex.buys) != 0 {
		t.Errorf("got action=%v buys=%+v, want no order below the quote floor", res.Action, ex.buys)
	}
}

func TestFailedBuyRecordsNoPosition(t *testing.T) {
	goldenCross := append(repeat(100, 20), 98, 98, 98, 103, 108)
	ex := &fakeExchange{
		balances:  map[string]domain.Asset{"BTC": {Free: 0}, "JPY": {Free: 1000000}},
		price:     3000000,
		minAmount: 0.001,
		buyErr:    errors.New("insufficient funds"),
	}
	store := newMemStore()
	tlog := &memLog{}

	engine := newTestEngine(&fakeCandles{closes: goldenCross}, ex, store, tlog)
	res := engine.ProcessSymbol(context.Background(), maConfig())

	if res.Error == "" {
		t.Error("expected the order failure on the result")
	}
	if store.positions["BTC/JPY"] != nil {
		t.Error("no position may be recorded for an unconfirmed order")
	}
	if len(tlog.entries) != 0 {
		t.Errorf("trade log = %+v, want empty", tlog.entries)
	}
}

func TestFailedSellKeepsPosition(t *testing.T) {
	deadCross := append(repeat(100, 20), 102, 102, 102, 97, 92)
	ex := &fakeExchange{
		balances:  map[string]domain.Asset{"BTC": {Free: 0.2}, "JPY": {Free: 0}},
		price:     990000,
		minAmount: 0.001,
		sellErr:   errors.New("exchange maintenance"),
	}
	store := newMemStore()
	store.Save(context.Background(), "BTC/JPY", 1000000, 0.2)

	engine := newTestEngine(&fakeCandles{closes: deadCross}, ex, store, &memLog{})
	res := engine.ProcessSymbol(context.Background(), maConfig())

	if res.Error == "" {
		t.Error("expected the order failure on the result")
	}
	if store.positions["BTC/JPY"] == nil {
		t.Error("position must survive a failed exit so a later cycle can retry")
	}
}

func TestDustBalanceGetsNoStopLoss(t *testing.T) {
	// Holdings below the tradable minimum do not count as a position even
	// with a stale entry record and a deep drawdown.
	ex := &fakeExchange{
		balances:  map[string]domain.Asset{"BTC": {Free: 0.0005}, "JPY": {Free: 0}},
		price:     500000,
		minAmount: 0.001,
	}
	store := newMemStore()
	store.Save(context.Background(), "BTC/JPY", 1000000, 0.0005)

	engine := newTestEngine(&fakeCandles{closes: repeat(100, 60)}, ex, store, &memLog{})
	res := engine.ProcessSymbol(context.Background(), maConfig())

	if res.HasPosition {
		t.Error("dust balance should not count as holding a position")
	}
	if res.Action != domain.ActionNone || len(ex.sells) != 0 {
		t.Errorf("got action=%v sells=%+v, want no trade", res.Action, ex.sells)
	}
}

func TestDowntrendBlocksContrarianBuy(t *testing.T) {
	n := usecase.TrendMAPeriod + usecase.TrendLookback + 5
	falling := make([]float64, n)
	for i := range falling {
		falling[i] = float64(2 * (n - i))
	}

	ex := &fakeExchange{
		balances:  map[string]domain.Asset{"ETH": {Free: 0}, "JPY": {Free: 1000000}},
		price:     300000,
		minAmount: 0.01,
	}

	engine := newTestEngine(&fakeCandles{closes: falling}, ex, newMemStore(), &memLog{})
	res := engine.ProcessSymbol(context.Background(), rsiConfig())

	if res.Trend != domain.TrendDown {
		t.Fatalf("trend = %v, want downtrend", res.Trend)
	}
	if res.Signal != domain.SignalHold || len(ex.buys) != 0 {
		t.Errorf("got signal=%v buys=%+v, want suppressed buy", res.Signal, ex.buys)
	}
}

func TestCandleFetchErrorIsIsolated(t *testing.T) {
	engine := newTestEngine(&fakeCandles{err: errors.New("feed down")},
		&fakeExchange{}, newMemStore(), &memLog{})
	res := engine.ProcessSymbol(context.Background(), maConfig())

	if res.Error == "" {
		t.Error("expected the fetch failure on the result")
	}
	if res.Action != domain.ActionNone {
		t.Errorf("action = %v, want none", res.Action)
	}
}
