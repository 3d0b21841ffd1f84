package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ysaito/spotbot/internal/domain"
)

const BinanceBaseURL = "https://api.binance.com"

// BinanceCandleSource fetches OHLCV history from Binance's public klines
// endpoint. The trading venue itself has no candle API, so a price-correlated
// proxy pair on another venue feeds the indicators; only the relative price
// movement matters to them. No API key is needed.
type BinanceCandleSource struct {
	baseURL string
	client  *http.Client
	proxies map[string]string
}

// NewBinanceCandleSource maps trading symbols to Binance proxy pairs, e.g.
// "BTC/JPY" -> "BTCUSDT". Symbols missing from the map default to the base
// currency against USDT.
func NewBinanceCandleSource(baseURL string, proxies map[string]string) *BinanceCandleSource {
	if baseURL == "" {
		baseURL = BinanceBaseURL
	}
	return &BinanceCandleSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		proxies: proxies,
	}
}

func (s *BinanceCandleSource) proxySymbol(symbol string) string {
	if p, ok := s.proxies[symbol]; ok {
		return p
	}
	return domain.BaseCurrency(symbol) + "USDT"
}

func (s *BinanceCandleSource) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("symbol", s.proxySymbol(symbol))
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("binance klines error: %s", string(body))
	}

	// Klines arrive as heterogeneous arrays: open time is a number, the
	// OHLCV fields are decimal strings.
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("binance klines: short row with %d fields", len(k))
		}
		var c domain.Candle
		if err := json.Unmarshal(k[0], &c.Time); err != nil {
			return nil, err
		}
		fields := []struct {
			raw json.RawMessage
			dst *float64
		}{
			{k[1], &c.Open}, {k[2], &c.High}, {k[3], &c.Low},
			{k[4], &c.Close}, {k[5], &c.Volume},
		}
		for _, f := range fields {
			var s string
			if err := json.Unmarshal(f.raw, &s); err != nil {
				return nil, err
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, err
			}
			*f.dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}
