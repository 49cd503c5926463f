package backtest

import (
	"time"

	"github.com/google/uuid"

	"riptide/internal/metrics"
	"riptide/internal/risk"
	"riptide/internal/signal"
)

// RunStatus tracks a run through the store and the HTTP surface.
type RunStatus string

const (
	RunPending  RunStatus = "pending"
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// Run is the persisted identity of one backtest execution.
type Run struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Error     string    `json:"error,omitempty"`
	Bars      int       `json:"bars"`
}

// NewRun mints a run identity with a fresh UUID.
func NewRun(symbol, timeframe string) Run {
	return Run{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Timeframe: timeframe,
		Status:    RunPending,
		StartedAt: time.Now().UTC(),
	}
}

// EquityPoint is one bar of the marked-to-close equity curve.
type EquityPoint struct {
	OpenTime int64   `json:"open_time"` // Unix ms
	Equity   float64 `json:"equity"`
	Price    float64 `json:"price"`
	Drawdown float64 `json:"drawdown"` // fraction from the running peak, <= 0
}

// DailySummary is the end-of-day risk snapshot kept for reporting.
type DailySummary struct {
	Date             string  `json:"date"`
	StartingCapital  float64 `json:"starting_capital"`
	EndingCapital    float64 `json:"ending_capital"`
	RealizedPnL      float64 `json:"realized_pnl"`
	Trades           int     `json:"trades"`
	BreakerTriggered bool    `json:"breaker_triggered"`
}

// Result bundles everything a finished run produced.
type Result struct {
	Run      Run                `json:"run"`
	Equity   []EquityPoint      `json:"equity"`
	Trades   []risk.TradeRecord `json:"trades"`
	Bundles  []signal.Bundle    `json:"-"`
	Daily    []DailySummary     `json:"daily"`
	Metrics  metrics.Metrics    `json:"metrics"`
	Partial  bool               `json:"partial"` // true when cancelled mid-run
	BarsSeen int                `json:"bars_seen"`
}

func (r *Result) equityValues() []float64 {
	out := make([]float64, len(r.Equity))
	for i, p := range r.Equity {
		out[i] = p.Equity
	}
	return out
}
