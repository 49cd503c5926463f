package backtest

import (
	"context"
	"fmt"

	"riptide/internal/logger"
	"riptide/internal/market"
	"riptide/internal/metrics"
	"riptide/internal/risk"
	"riptide/internal/signal"
)

// SimConfig wires signal generation and risk management into one run.
type SimConfig struct {
	Symbol    string
	Timeframe string

	Weights struct {
		RSI       float64
		WaveTrend float64
		BuySell   float64
	}
	Signal signal.Params
	Risk   risk.ManagerConfig

	// SignalCrossExit closes longs on a WaveTrend cross-down and shorts on
	// a cross-up, ahead of waiting for the stop.
	SignalCrossExit bool

	RiskFreeRate float64
}

// Simulator replays bars through the signal generator and the risk manager.
// The same per-bar transition drives both the batch Run and the incremental
// Step, so a batch replay and a live feed of the same bars produce identical
// results.
type Simulator struct {
	cfg SimConfig
	gen *signal.Generator
	mgr *risk.Manager

	history []market.Candle
	equity  []EquityPoint
	daily   []DailySummary
	peak    float64
	bars    int
}

// NewSimulator validates the whole configuration up front.
func NewSimulator(cfg SimConfig) (*Simulator, error) {
	if _, err := TimeframeMillis(cfg.Timeframe); err != nil {
		return nil, err
	}
	gen, err := signal.NewGenerator(cfg.Weights.RSI, cfg.Weights.WaveTrend, cfg.Weights.BuySell)
	if err != nil {
		return nil, err
	}
	cfg.Risk.Symbol = cfg.Symbol
	mgr, err := risk.NewManager(cfg.Risk)
	if err != nil {
		return nil, err
	}
	return &Simulator{cfg: cfg, gen: gen, mgr: mgr}, nil
}

// Manager exposes the underlying risk manager for inspection.
func (s *Simulator) Manager() *risk.Manager { return s.mgr }

// Run replays the full series. Cancellation between bars returns the partial
// result accumulated so far together with ctx.Err().
func (s *Simulator) Run(ctx context.Context, candles []market.Candle) (*Result, error) {
	stepMs, err := TimeframeMillis(s.cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	// Gaps fail the run; the engine never interpolates missing bars.
	if err := market.ValidateContiguous(candles, stepMs); err != nil {
		return nil, err
	}
	bundles, err := s.gen.Generate(candles, s.cfg.Signal)
	if err != nil {
		return nil, err
	}

	for i := range candles {
		select {
		case <-ctx.Done():
			res := s.finish(bundles[:i], true)
			return res, ctx.Err()
		default:
		}
		s.history = append(s.history, candles[i])
		if err := s.processBar(candles[i], bundles[i]); err != nil {
			return nil, fmt.Errorf("bar %d (%s): %w", i, candles[i].Time().Format("2006-01-02 15:04"), err)
		}
	}
	return s.finish(bundles, false), nil
}

// Step feeds one live bar. The bundle for the new bar is generated over the
// full accumulated history; every indicator is causal, so the value matches
// what a batch run over the same bars would produce.
func (s *Simulator) Step(candle market.Candle) (*signal.Bundle, error) {
	if n := len(s.history); n > 0 && candle.OpenTime <= s.history[n-1].OpenTime {
		return nil, fmt.Errorf("bar %s does not advance the series", candle.Time().Format("2006-01-02 15:04"))
	}
	s.history = append(s.history, candle)
	bundles, err := s.gen.Generate(s.history, s.cfg.Signal)
	if err != nil {
		return nil, err
	}
	last := bundles[len(bundles)-1]
	if err := s.processBar(candle, last); err != nil {
		return nil, err
	}
	return &last, nil
}

// processBar is the single bar transition: day rollover, exits for every
// open position in id order, then at most one new entry.
func (s *Simulator) processBar(candle market.Candle, b signal.Bundle) error {
	s.rollDay(candle.OpenTime)

	price := candle.Close
	for _, id := range s.mgr.OpenPositionIDs() {
		if s.cfg.SignalCrossExit {
			if trade := s.signalCrossExit(id, price, b, candle.OpenTime); trade != nil {
				logger.Debugf("position %d closed on oscillator cross at %.4f", id, price)
				continue
			}
		}
		res := s.mgr.UpdatePosition(id, price, candle.OpenTime)
		if res.Trade != nil {
			logger.Debugf("position %d %s at %.4f pnl %.2f", id, res.Trade.ExitReason, price, res.Trade.PnL)
		}
	}

	// The thresholds keep FinalLong and FinalShort mutually exclusive, but
	// each is evaluated independently.
	if b.FinalLong {
		if pos := s.mgr.OpenPositionWithPolicy(risk.SideLong, price, s.history, candle.OpenTime); pos != nil {
			logger.Debugf("opened long %d qty %.6f at %.4f stop %.4f", pos.ID, pos.OriginalQuantity, price, pos.StopLossPrice)
		}
	}
	if b.FinalShort {
		if pos := s.mgr.OpenPositionWithPolicy(risk.SideShort, price, s.history, candle.OpenTime); pos != nil {
			logger.Debugf("opened short %d qty %.6f at %.4f stop %.4f", pos.ID, pos.OriginalQuantity, price, pos.StopLossPrice)
		}
	}

	s.recordEquity(candle.OpenTime, price)
	s.bars++
	return nil
}

// signalCrossExit closes a position against the oscillator cross, if its
// side matches the cross direction.
func (s *Simulator) signalCrossExit(id int64, price float64, b signal.Bundle, now int64) *risk.TradeRecord {
	pos, ok := s.mgr.PositionSnapshot(id)
	if !ok {
		return nil
	}
	if (pos.Side == risk.SideLong && b.WTCrossDown) || (pos.Side == risk.SideShort && b.WTCrossUp) {
		return s.mgr.ClosePosition(id, price, risk.ExitSignal, now)
	}
	return nil
}

func (s *Simulator) rollDay(openTime int64) {
	day := risk.DayKey(openTime)
	summary := s.mgr.PortfolioSummary()
	if summary.Date == day {
		return
	}
	if summary.Date != "" {
		s.daily = append(s.daily, DailySummary{
			Date:             summary.Date,
			StartingCapital:  summary.StartingCapital,
			EndingCapital:    summary.CurrentCapital,
			RealizedPnL:      summary.RealizedDailyPnL,
			Trades:           summary.TradesToday,
			BreakerTriggered: summary.BreakerTriggered,
		})
		if summary.BreakerTriggered {
			logger.Infof("daily breaker closed %s with %.2f realized", summary.Date, summary.RealizedDailyPnL)
		}
	}
	s.mgr.ResetDailyTracking(day)
}

func (s *Simulator) recordEquity(openTime int64, price float64) {
	eq := s.mgr.Equity(price)
	if eq > s.peak || len(s.equity) == 0 {
		s.peak = eq
	}
	dd := 0.0
	if s.peak > 0 && eq < s.peak {
		dd = (eq - s.peak) / s.peak
	}
	s.equity = append(s.equity, EquityPoint{OpenTime: openTime, Equity: eq, Price: price, Drawdown: dd})
}

// finish closes out any still-open positions at the last seen price and
// assembles the result.
func (s *Simulator) finish(bundles []signal.Bundle, partial bool) *Result {
	if n := len(s.history); n > 0 {
		last := s.history[n-1]
		for _, id := range s.mgr.OpenPositionIDs() {
			s.mgr.ClosePosition(id, last.Close, risk.ExitManual, last.OpenTime)
		}
		// Re-mark the final point after the forced closes. The popped point
		// may have been the running peak, so the peak is rebuilt from the
		// points that remain before re-recording.
		if len(s.equity) > 0 {
			s.equity = s.equity[:len(s.equity)-1]
			s.peak = 0
			for _, p := range s.equity {
				if p.Equity > s.peak {
					s.peak = p.Equity
				}
			}
		}
		s.recordEquity(last.OpenTime, last.Close)
	}
	if summary := s.mgr.PortfolioSummary(); summary.Date != "" {
		s.daily = append(s.daily, DailySummary{
			Date:             summary.Date,
			StartingCapital:  summary.StartingCapital,
			EndingCapital:    summary.CurrentCapital,
			RealizedPnL:      summary.RealizedDailyPnL,
			Trades:           summary.TradesToday,
			BreakerTriggered: summary.BreakerTriggered,
		})
	}

	res := &Result{
		Equity:   s.equity,
		Trades:   s.mgr.Ledger(),
		Bundles:  bundles,
		Daily:    s.daily,
		Partial:  partial,
		BarsSeen: s.bars,
	}
	res.Metrics = metrics.Calculate(res.equityValues(), res.Trades, s.mgr.Config().InitialCapital, s.cfg.RiskFreeRate)
	return res
}
