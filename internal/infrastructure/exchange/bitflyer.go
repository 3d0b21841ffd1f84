package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ysaito/spotbot/internal/domain"
)

const BitflyerBaseURL = "https://api.bitflyer.com"

// BitflyerClient is the order gateway for a bitFlyer spot account. bitFlyer
// has no testnet: every request here touches a live account.
type BitflyerClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
}

func NewBitflyerClient(apiKey, apiSecret, baseURL string) *BitflyerClient {
	if baseURL == "" {
		baseURL = BitflyerBaseURL
	}
	return &BitflyerClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// productCode maps "BTC/JPY" to bitFlyer's "BTC_JPY".
func productCode(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "_")
}

func (c *BitflyerClient) sign(timestamp, method, path, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(h.Sum(nil))
}

// sendPrivate performs an authenticated request. The signature covers
// timestamp + method + path (including query) + body.
func (c *BitflyerClient) sendPrivate(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("ACCESS-KEY", c.apiKey)
	req.Header.Set("ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("ACCESS-SIGN", c.sign(timestamp, method, path, string(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bitflyer API error: %s", string(respBody))
	}
	return respBody, nil
}

func (c *BitflyerClient) Balance(ctx context.Context) (map[string]domain.Asset, error) {
	body, err := c.sendPrivate(ctx, http.MethodGet, "/v1/me/getbalance", nil)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		CurrencyCode string  `json:"currency_code"`
		Amount       float64 `json:"amount"`
		Available    float64 `json:"available"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}

	balance := make(map[string]domain.Asset, len(entries))
	for _, e := range entries {
		balance[e.CurrencyCode] = domain.Asset{
			Free: e.Available,
			Used: e.Amount - e.Available,
		}
	}
	return balance, nil
}

func (c *BitflyerClient) LastPrice(ctx context.Context, symbol string) (float64, error) {
	url := c.baseURL + "/v1/ticker?product_code=" + productCode(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("bitflyer ticker error: %s", string(body))
	}

	var ticker struct {
		LTP float64 `json:"ltp"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, err
	}
	if ticker.LTP <= 0 {
		return 0, fmt.Errorf("bitflyer ticker: no last price for %s", symbol)
	}
	return ticker.LTP, nil
}

func (c *BitflyerClient) MarketBuy(ctx context.Context, symbol string, amount float64) (*domain.OrderAck, error) {
	return c.sendChildOrder(ctx, symbol, "BUY", amount)
}

func (c *BitflyerClient) MarketSell(ctx context.Context, symbol string, amount float64) (*domain.OrderAck, error) {
	return c.sendChildOrder(ctx, symbol, "SELL", amount)
}

func (c *BitflyerClient) sendChildOrder(ctx context.Context, symbol, side string, amount float64) (*domain.OrderAck, error) {
	payload := map[string]any{
		"product_code":     productCode(symbol),
		"child_order_type": "MARKET",
		"side":             side,
		"size":             amount,
	}

	body, err := c.sendPrivate(ctx, http.MethodPost, "/v1/me/sendchildorder", payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		AcceptanceID string `json:"child_order_acceptance_id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if result.AcceptanceID == "" {
		return nil, fmt.Errorf("bitflyer order rejected: %s", string(body))
	}
	return &domain.OrderAck{ID: result.AcceptanceID, Status: "accepted"}, nil
}

// MinOrderAmount returns the exchange's minimum order size for the symbol.
// bitFlyer publishes these as fixed per-product minimums rather than via an
// API field, so the adapter owns the table; it is the authoritative value for
// order sizing, distinct from the engine's own dust threshold.
func (c *BitflyerClient) MinOrderAmount(ctx context.Context, symbol string) (float64, error) {
	switch domain.BaseCurrency(symbol) {
	case "BTC":
		return 0.001, nil
	case "ETH":
		return 0.01, nil
	default:
		return 0.01, nil
	}
}
