package risk

import (
	"sort"

	"riptide/internal/config"
	"riptide/internal/market"
)

// quantityEpsilon absorbs float dust when deciding a position is fully
// released.
const quantityEpsilon = 1e-9

// ManagerConfig is fixed at construction and never mutated mid-run.
type ManagerConfig struct {
	Symbol         string
	InitialCapital float64
	RiskPerTrade   float64 // fraction of current capital risked per trade
	DailyLossLimit float64 // fraction of day-start capital
	MaxPositions   int     // 0 disables the cap
	MaxBarsInTrade int     // 0 disables the bar-count exit
	FeeRate        float64 // charged on every close event notional

	TP1Multiplier    float64
	TP2Multiplier    float64
	RunnerMultiplier float64
	// Close ratios are fractions of the ORIGINAL quantity; the remainder
	// after TP1+TP2 is the runner.
	TP1CloseRatio float64
	TP2CloseRatio float64

	// MaxCapitalUsage caps position notional as a fraction of capital.
	MaxCapitalUsage float64

	StopLoss StopLossPolicy
}

func (c *ManagerConfig) applyDefaults() {
	if c.TP1Multiplier == 0 {
		c.TP1Multiplier = 1.5
	}
	if c.TP2Multiplier == 0 {
		c.TP2Multiplier = 2.0
	}
	if c.RunnerMultiplier == 0 {
		c.RunnerMultiplier = 3.0
	}
	if c.TP1CloseRatio == 0 {
		c.TP1CloseRatio = 1.0 / 3.0
	}
	if c.TP2CloseRatio == 0 {
		c.TP2CloseRatio = 1.0 / 3.0
	}
	if c.MaxCapitalUsage == 0 {
		c.MaxCapitalUsage = 0.9
	}
	if c.StopLoss == nil {
		c.StopLoss = PercentageStop{Pct: 0.02}
	}
}

func (c *ManagerConfig) validate() error {
	if c.InitialCapital <= 0 {
		return config.Errorf("risk.initial_capital", "must be positive, got %v", c.InitialCapital)
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade > 1 {
		return config.Errorf("risk.risk_per_trade", "must be in (0,1], got %v", c.RiskPerTrade)
	}
	if c.DailyLossLimit <= 0 || c.DailyLossLimit > 1 {
		return config.Errorf("risk.daily_loss_limit", "must be in (0,1], got %v", c.DailyLossLimit)
	}
	if c.FeeRate < 0 {
		return config.Errorf("risk.fee_rate", "must be >= 0, got %v", c.FeeRate)
	}
	if !(c.TP1Multiplier > 0 && c.TP2Multiplier > c.TP1Multiplier && c.RunnerMultiplier > c.TP2Multiplier) {
		return config.Errorf("risk.tp_multipliers", "need 0 < tp1 < tp2 < runner, got %v/%v/%v",
			c.TP1Multiplier, c.TP2Multiplier, c.RunnerMultiplier)
	}
	if c.TP1CloseRatio <= 0 || c.TP2CloseRatio <= 0 || c.TP1CloseRatio+c.TP2CloseRatio >= 1 {
		return config.Errorf("risk.tp_close_ratios", "need tp1,tp2 > 0 and tp1+tp2 < 1 (remainder is the runner), got %v/%v",
			c.TP1CloseRatio, c.TP2CloseRatio)
	}
	if c.MaxCapitalUsage <= 0 || c.MaxCapitalUsage > 1 {
		return config.Errorf("risk.max_capital_usage", "must be in (0,1], got %v", c.MaxCapitalUsage)
	}
	return c.StopLoss.validate()
}

// Manager owns all open positions and the capital/daily-loss state of one
// run. It is not safe for concurrent use: one Manager per run, one caller.
type Manager struct {
	cfg ManagerConfig

	capital float64
	nextID  int64
	open    map[int64]*Position
	ledger  []TradeRecord

	day              string
	dayStartCapital  float64
	realizedDailyPnL float64
	breakerTriggered bool
	tradesToday      int
}

// NewManager validates the config (fail fast, never auto-corrected) and
// returns a manager holding the initial capital.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:             cfg,
		capital:         cfg.InitialCapital,
		open:            make(map[int64]*Position),
		dayStartCapital: cfg.InitialCapital,
	}, nil
}

// Config returns the construction-time configuration.
func (m *Manager) Config() ManagerConfig { return m.cfg }

// CurrentCapital is realized capital only; open positions are excluded
// until their quantity actually closes.
func (m *Manager) CurrentCapital() float64 { return m.capital }

// Equity marks all open positions to price and adds realized capital.
func (m *Manager) Equity(price float64) float64 {
	eq := m.capital
	for _, p := range m.open {
		eq += p.UnrealizedPnL(price)
	}
	return eq
}

// OpenCount returns the number of open positions.
func (m *Manager) OpenCount() int { return len(m.open) }

// OpenPositionIDs returns the open ids in ascending order. The driving loop
// iterates this snapshot so closes during the scan cannot invalidate it.
func (m *Manager) OpenPositionIDs() []int64 {
	ids := make([]int64, 0, len(m.open))
	for id := range m.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PositionSnapshot returns a copy of an open position.
func (m *Manager) PositionSnapshot(id int64) (Position, bool) {
	p, ok := m.open[id]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Ledger returns a copy of all close events so far.
func (m *Manager) Ledger() []TradeRecord {
	out := make([]TradeRecord, len(m.ledger))
	copy(out, m.ledger)
	return out
}

// ResetDailyTracking starts a new calendar day: counters zeroed, breaker
// cleared, capital carried forward as the day's starting capital.
func (m *Manager) ResetDailyTracking(day string) {
	m.day = day
	m.dayStartCapital = m.capital
	m.realizedDailyPnL = 0
	m.breakerTriggered = false
	m.tradesToday = 0
}

// DailyBreakerTriggered reports whether new entries are blocked for the rest
// of the day.
func (m *Manager) DailyBreakerTriggered() bool { return m.breakerTriggered }

// PortfolioSummary is a side-effect-free snapshot of the day's risk state.
func (m *Manager) PortfolioSummary() DailyRiskState {
	return DailyRiskState{
		Date:             m.day,
		StartingCapital:  m.dayStartCapital,
		CurrentCapital:   m.capital,
		RealizedDailyPnL: m.realizedDailyPnL,
		BreakerTriggered: m.breakerTriggered,
		TradesToday:      m.tradesToday,
		OpenPositions:    len(m.open),
	}
}

// OpenPosition sizes and opens a position, or returns nil without error when
// risk policy forbids it: breaker active, position cap reached, or the
// computed quantity is non-positive. The returned value is a copy.
func (m *Manager) OpenPosition(side Side, entryPrice, stopLossPrice float64, now int64) *Position {
	if m.breakerTriggered {
		return nil
	}
	if m.cfg.MaxPositions > 0 && len(m.open) >= m.cfg.MaxPositions {
		return nil
	}
	if entryPrice <= 0 || stopLossPrice <= 0 {
		return nil
	}
	riskDistance := entryPrice - stopLossPrice
	if riskDistance < 0 {
		riskDistance = -riskDistance
	}
	if riskDistance == 0 {
		return nil
	}

	riskAmount := m.capital * m.cfg.RiskPerTrade
	quantity := riskAmount / riskDistance
	if maxNotional := m.capital * m.cfg.MaxCapitalUsage; quantity*entryPrice > maxNotional {
		quantity = maxNotional / entryPrice
		riskAmount = quantity * riskDistance
	}
	if quantity <= 0 {
		return nil
	}

	dir := 1.0
	if side == SideShort {
		dir = -1.0
	}
	m.nextID++
	pos := &Position{
		ID:                    m.nextID,
		Symbol:                m.cfg.Symbol,
		Side:                  side,
		EntryPrice:            entryPrice,
		OriginalQuantity:      quantity,
		RemainingQuantity:     quantity,
		StopLossPrice:         stopLossPrice,
		TP1Price:              entryPrice + dir*riskDistance*m.cfg.TP1Multiplier,
		TP2Price:              entryPrice + dir*riskDistance*m.cfg.TP2Multiplier,
		RunnerActivationPrice: entryPrice + dir*riskDistance*m.cfg.RunnerMultiplier,
		RiskAmount:            riskAmount,
		EntryTime:             now,
		Status:                StatusOpen,
	}
	m.open[pos.ID] = pos
	snapshot := *pos
	return &snapshot
}

// OpenPositionWithPolicy derives the stop from the configured stop-loss
// policy over the bar history (ending at the entry bar) and opens.
func (m *Manager) OpenPositionWithPolicy(side Side, entryPrice float64, history []market.Candle, now int64) *Position {
	stop := m.cfg.StopLoss.StopPrice(side, entryPrice, history)
	return m.OpenPosition(side, entryPrice, stop, now)
}

// UpdateStatus classifies the outcome of one UpdatePosition call.
type UpdateStatus string

const (
	UpdateNotFound        UpdateStatus = "not_found"
	UpdateHeld            UpdateStatus = "held"
	UpdatePartialClose    UpdateStatus = "partial_close"
	UpdateClosed          UpdateStatus = "closed"
	UpdateRunnerActivated UpdateStatus = "runner_activated"
)

// UpdateResult carries at most one lifecycle event per position per bar.
type UpdateResult struct {
	Status UpdateStatus
	Trade  *TradeRecord
}

// UpdatePosition advances one open position against the bar's price. Called
// once per bar per position, in ascending id order, before any same-bar
// entries are considered. Exit precedence: protective stop first (capital
// preservation beats profit targets), then TP1 -> TP2 -> runner activation,
// then the max-bars expiry.
func (m *Manager) UpdatePosition(id int64, price float64, now int64) UpdateResult {
	pos, ok := m.open[id]
	if !ok {
		return UpdateResult{Status: UpdateNotFound}
	}
	pos.BarsHeld++

	if stopHit(pos.Side, price, pos.StopLossPrice) {
		reason := ExitStopLoss
		if pos.RunnerActive {
			reason = ExitRunner
		}
		trade := m.closePortion(pos, pos.RemainingQuantity, price, reason, now)
		return UpdateResult{Status: UpdateClosed, Trade: trade}
	}

	if !pos.TP1Hit && targetHit(pos.Side, price, pos.TP1Price) {
		pos.TP1Hit = true
		qty := pos.OriginalQuantity * m.cfg.TP1CloseRatio
		trade := m.closePortion(pos, qty, price, ExitTP1, now)
		return m.partialResult(pos, trade)
	}

	if pos.TP1Hit && !pos.TP2Hit && targetHit(pos.Side, price, pos.TP2Price) {
		pos.TP2Hit = true
		qty := pos.OriginalQuantity * m.cfg.TP2CloseRatio
		trade := m.closePortion(pos, qty, price, ExitTP2, now)
		return m.partialResult(pos, trade)
	}

	if pos.TP2Hit && !pos.RunnerActive && targetHit(pos.Side, price, pos.RunnerActivationPrice) {
		pos.RunnerActive = true
		// Runner rides with the stop moved to breakeven.
		pos.StopLossPrice = pos.EntryPrice
		return UpdateResult{Status: UpdateRunnerActivated}
	}

	if m.cfg.MaxBarsInTrade > 0 && pos.BarsHeld >= m.cfg.MaxBarsInTrade {
		trade := m.closePortion(pos, pos.RemainingQuantity, price, ExitMaxBars, now)
		return UpdateResult{Status: UpdateClosed, Trade: trade}
	}

	return UpdateResult{Status: UpdateHeld}
}

func (m *Manager) partialResult(pos *Position, trade *TradeRecord) UpdateResult {
	if pos.Status == StatusClosed {
		return UpdateResult{Status: UpdateClosed, Trade: trade}
	}
	return UpdateResult{Status: UpdatePartialClose, Trade: trade}
}

// ClosePosition force-closes the remainder of an open position (end of run,
// discretionary exit). Returns nil when the id is unknown.
func (m *Manager) ClosePosition(id int64, price float64, reason ExitReason, now int64) *TradeRecord {
	pos, ok := m.open[id]
	if !ok {
		return nil
	}
	return m.closePortion(pos, pos.RemainingQuantity, price, reason, now)
}

// closePortion releases qty at price, realizes its P&L into capital and the
// daily counters, and emits the immutable trade record. Quantity
// conservation: remaining is always derived as original - released.
func (m *Manager) closePortion(pos *Position, qty, price float64, reason ExitReason, now int64) *TradeRecord {
	if qty > pos.RemainingQuantity {
		qty = pos.RemainingQuantity
	}
	pnl := pos.UnrealizedPnL(price) / pos.RemainingQuantity * qty
	fee := qty * price * m.cfg.FeeRate

	pos.ReleasedQuantity += qty
	pos.RemainingQuantity = pos.OriginalQuantity - pos.ReleasedQuantity

	m.capital += pnl - fee
	m.realizedDailyPnL += pnl - fee
	m.tradesToday++
	if m.realizedDailyPnL <= -(m.cfg.DailyLossLimit * m.dayStartCapital) {
		m.breakerTriggered = true
	}

	if pos.RemainingQuantity <= pos.OriginalQuantity*quantityEpsilon {
		pos.ReleasedQuantity = pos.OriginalQuantity
		pos.RemainingQuantity = 0
		pos.Status = StatusClosed
		delete(m.open, pos.ID)
	} else {
		pos.Status = StatusPartiallyClosed
	}

	trade := TradeRecord{
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Quantity:   qty,
		PnL:        pnl,
		Fee:        fee,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
		ExitReason: reason,
	}
	m.ledger = append(m.ledger, trade)
	return &m.ledger[len(m.ledger)-1]
}
