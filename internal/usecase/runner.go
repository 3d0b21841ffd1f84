package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ysaito/spotbot/internal/config"
	"github.com/ysaito/spotbot/internal/domain"
)

// CycleResult is one full pass over the configured symbols. It is the
// response body of the schedule-triggered HTTP mode.
type CycleResult struct {
	ID        string                `json:"id"`
	Timestamp time.Time             `json:"timestamp"`
	Exchange  string                `json:"exchange"`
	Symbols   []*domain.TradeResult `json:"symbols"`
}

// Runner sequences decision cycles. Symbols are processed strictly one after
// another: orders share one account balance, and interleaving them would race
// on the available-balance checks.
type Runner struct {
	engine *Engine
	cfg    *config.Config
	log    *zap.Logger
	mu     sync.Mutex
	now    func() time.Time
}

func NewRunner(engine *Engine, cfg *config.Config, log *zap.Logger) *Runner {
	return &Runner{engine: engine, cfg: cfg, log: log, now: time.Now}
}

// RunCycle performs exactly one pass over all configured symbols. The mutex
// serializes concurrent triggers (e.g. overlapping HTTP invocations) for the
// same reason symbols are sequential within a pass.
func (r *Runner) RunCycle(ctx context.Context) *CycleResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &CycleResult{
		ID:        uuid.NewString(),
		Timestamp: r.now(),
		Exchange:  "bitflyer",
	}
	for _, sc := range r.cfg.Symbols {
		res.Symbols = append(res.Symbols, r.engine.ProcessSymbol(ctx, sc))
	}
	return res
}

// Loop is the persistent deployment mode: one cycle, a fixed sleep, forever.
// Anything escaping per-symbol handling is caught here and followed by a
// shorter backoff sleep; the loop exits only when ctx is cancelled.
func (r *Runner) Loop(ctx context.Context, interval, backoff time.Duration) {
	for {
		sleep := interval
		if err := r.runCycleSafe(ctx); err != nil {
			r.log.Error("cycle failed", zap.Error(err))
			sleep = backoff
		}

		r.log.Info("sleeping until next cycle", zap.Duration("interval", sleep))
		select {
		case <-ctx.Done():
			r.log.Info("loop stopped")
			return
		case <-time.After(sleep):
		}
	}
}

func (r *Runner) runCycleSafe(ctx context.Context) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &cyclePanic{value: v}
		}
	}()

	cycle := r.RunCycle(ctx)
	r.log.Info("cycle finished",
		zap.String("cycle_id", cycle.ID),
		zap.Int("symbols", len(cycle.Symbols)))
	return nil
}

type cyclePanic struct{ value any }

func (p *cyclePanic) Error() string { return fmt.Sprintf("panic during cycle: %v", p.value) }
