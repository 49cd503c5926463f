package risk

import "time"

// Side of a position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Status of a position's lifecycle. CLOSED is terminal; closed positions
// survive only as trade records.
type Status string

const (
	StatusOpen            Status = "open"
	StatusPartiallyClosed Status = "partially_closed"
	StatusClosed          Status = "closed"
)

// ExitReason tags every close event in the ledger.
type ExitReason string

const (
	ExitTP1      ExitReason = "tp1"
	ExitTP2      ExitReason = "tp2"
	ExitRunner   ExitReason = "runner"
	ExitStopLoss ExitReason = "stop_loss"
	ExitMaxBars  ExitReason = "max_bars"
	ExitSignal   ExitReason = "signal"
	ExitManual   ExitReason = "manual"
)

// Position is owned exclusively by the Manager for its whole lifetime.
// Everything handed to callers is a copy. Invariant: ReleasedQuantity +
// RemainingQuantity == OriginalQuantity at every observable instant.
type Position struct {
	ID                    int64   `json:"id"`
	Symbol                string  `json:"symbol"`
	Side                  Side    `json:"side"`
	EntryPrice            float64 `json:"entry_price"`
	OriginalQuantity      float64 `json:"original_quantity"`
	RemainingQuantity     float64 `json:"remaining_quantity"`
	ReleasedQuantity      float64 `json:"released_quantity"`
	StopLossPrice         float64 `json:"stop_loss_price"`
	TP1Price              float64 `json:"tp1_price"`
	TP2Price              float64 `json:"tp2_price"`
	RunnerActivationPrice float64 `json:"runner_activation_price"`
	RiskAmount            float64 `json:"risk_amount"`
	EntryTime             int64   `json:"entry_time"` // Unix ms
	Status                Status  `json:"status"`

	TP1Hit       bool `json:"tp1_hit"`
	TP2Hit       bool `json:"tp2_hit"`
	RunnerActive bool `json:"runner_active"`
	BarsHeld     int  `json:"bars_held"`
}

// UnrealizedPnL marks the remaining quantity to price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Side == SideLong {
		return (price - p.EntryPrice) * p.RemainingQuantity
	}
	return (p.EntryPrice - price) * p.RemainingQuantity
}

// TradeRecord is one immutable close event (full or partial) in the ledger.
type TradeRecord struct {
	PositionID int64      `json:"position_id"`
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"side"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Quantity   float64    `json:"quantity"`
	PnL        float64    `json:"pnl"` // gross; fee tracked separately
	Fee        float64    `json:"fee"`
	EntryTime  int64      `json:"entry_time"` // Unix ms
	ExitTime   int64      `json:"exit_time"`  // Unix ms
	ExitReason ExitReason `json:"exit_reason"`
}

// DailyRiskState is the per-calendar-day risk snapshot. Counters reset at
// each day boundary; capital carries forward.
type DailyRiskState struct {
	Date             string  `json:"date"` // 2006-01-02 (UTC)
	StartingCapital  float64 `json:"starting_capital"`
	CurrentCapital   float64 `json:"current_capital"`
	RealizedDailyPnL float64 `json:"realized_daily_pnl"`
	BreakerTriggered bool    `json:"breaker_triggered"`
	TradesToday      int     `json:"trades_today"`
	OpenPositions    int     `json:"open_positions"`
}

// DayKey renders a bar timestamp (Unix ms) as the UTC calendar day used for
// breaker bookkeeping.
func DayKey(ts int64) string {
	return time.UnixMilli(ts).UTC().Format("2006-01-02")
}
