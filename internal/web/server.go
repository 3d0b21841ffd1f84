package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ysaito/spotbot/internal/config"
	"github.com/ysaito/spotbot/internal/domain"
	"github.com/ysaito/spotbot/internal/usecase"
)

// Server is the schedule-triggered deployment mode: an external scheduler
// hits /trade once per interval and each request runs exactly one decision
// cycle. No state lives in the process between requests beyond the uptime
// clock, so instances can be replaced freely.
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	runner  *usecase.Runner
	history domain.TradeHistory
	cfg     *config.Config
	logger  *zap.Logger
	started time.Time
}

func NewServer(
	port int,
	runner *usecase.Runner,
	history domain.TradeHistory,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		runner:  runner,
		history: history,
		cfg:     cfg,
		logger:  logger,
		started: time.Now(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /trade", s.handleTrade)
	s.router.HandleFunc("GET /trades", s.handleTrades)
	s.router.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
