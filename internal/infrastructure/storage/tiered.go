package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/ysaito/spotbot/internal/domain"
)

// TieredPositionStore prefers the remote backend and falls back to the local
// one when the remote fails. The fallback is per operation, so a transient
// remote outage degrades to local state instead of stopping trading.
type TieredPositionStore struct {
	remote domain.PositionStore
	local  domain.PositionStore
	log    *zap.Logger
}

func NewTieredPositionStore(remote, local domain.PositionStore, log *zap.Logger) *TieredPositionStore {
	return &TieredPositionStore{remote: remote, local: local, log: log}
}

func (t *TieredPositionStore) Save(ctx context.Context, symbol string, entryPrice, amount float64) error {
	if t.remote != nil {
		err := t.remote.Save(ctx, symbol, entryPrice, amount)
		if err == nil {
			return nil
		}
		t.log.Warn("remote position save failed, using local store",
			zap.String("symbol", symbol), zap.Error(err))
	}
	return t.local.Save(ctx, symbol, entryPrice, amount)
}

func (t *TieredPositionStore) Load(ctx context.Context, symbol string) (*domain.Position, error) {
	if t.remote != nil {
		p, err := t.remote.Load(ctx, symbol)
		if err == nil {
			return p, nil
		}
		t.log.Warn("remote position load failed, using local store",
			zap.String("symbol", symbol), zap.Error(err))
	}
	return t.local.Load(ctx, symbol)
}

func (t *TieredPositionStore) Clear(ctx context.Context, symbol string) error {
	if t.remote != nil {
		if err := t.remote.Clear(ctx, symbol); err != nil {
			t.log.Warn("remote position clear failed, clearing local store",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return t.local.Clear(ctx, symbol)
}

// FanoutTradeLogger writes every executed trade to the local log and mirrors
// it to the remote one. The local write is authoritative; a remote failure is
// logged and dropped so an audit-mirror outage never blocks an order cycle.
type FanoutTradeLogger struct {
	local  domain.TradeLogger
	remote domain.TradeLogger
	log    *zap.Logger
}

func NewFanoutTradeLogger(local, remote domain.TradeLogger, log *zap.Logger) *FanoutTradeLogger {
	return &FanoutTradeLogger{local: local, remote: remote, log: log}
}

func (f *FanoutTradeLogger) Log(ctx context.Context, e domain.TradeLogEntry) error {
	if f.remote != nil {
		if err := f.remote.Log(ctx, e); err != nil {
			f.log.Warn("remote trade log failed",
				zap.String("symbol", e.Symbol), zap.Error(err))
		}
	}
	return f.local.Log(ctx, e)
}
