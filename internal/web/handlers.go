package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ysaito/spotbot/internal/domain"
)

const defaultTradesLimit = 50

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// handleTrade runs one full decision cycle and returns the per-symbol results.
// Failures for one symbol appear in its result entry; they never abort the
// cycle or change the response status.
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	cycle := s.runner.RunCycle(r.Context())
	s.writeJSON(w, cycle)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	trades, err := s.history.RecentTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []domain.TradeLogEntry{}
	}
	s.writeJSON(w, trades)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type symbolStatus struct {
		Symbol   string `json:"symbol"`
		Strategy string `json:"strategy"`
	}

	symbols := make([]symbolStatus, 0, len(s.cfg.Symbols))
	for _, sc := range s.cfg.Symbols {
		symbols = append(symbols, symbolStatus{Symbol: sc.Symbol, Strategy: string(sc.Strategy)})
	}

	var buys, sells int
	trades, err := s.history.RecentTrades(r.Context(), defaultTradesLimit)
	if err != nil {
		s.logger.Warn("Failed to summarize trades", zap.Error(err))
	}
	for _, t := range trades {
		switch t.Action {
		case domain.ActionBuy:
			buys++
		case domain.ActionSell:
			sells++
		}
	}

	s.writeJSON(w, map[string]any{
		"exchange":     "bitflyer",
		"uptime":       time.Since(s.started).Round(time.Second).String(),
		"timeframe":    s.cfg.Timeframe,
		"symbols":      symbols,
		"recent_buys":  buys,
		"recent_sells": sells,
	})
}
