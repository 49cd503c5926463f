package config

import "math"

// validate performs the checks that do not need downstream packages. The
// signal generator, risk manager and stop-loss parser re-check their own
// inputs at construction.
func validate(c *Config) error {
	if err := c.Signal.validate(); err != nil {
		return err
	}
	return c.Risk.validate()
}

func (s *SignalConfig) validate() error {
	total := s.RSIWeight + s.WaveTrendWeight + s.BuySellWeight
	if math.Abs(total-1.0) > 1e-3 {
		return Errorf("signal.weights", "rsi+wavetrend+buysell must sum to 1.0, got %v", total)
	}
	if s.RSIWeight < 0 || s.WaveTrendWeight < 0 || s.BuySellWeight < 0 {
		return Errorf("signal.weights", "weights must be non-negative")
	}
	if !(s.RSIOversold > 0 && s.RSIOversold < 50) {
		return Errorf("signal.rsi_oversold", "must be in (0,50), got %v", s.RSIOversold)
	}
	if !(s.RSIOverbought > 50 && s.RSIOverbought < 100) {
		return Errorf("signal.rsi_overbought", "must be in (50,100), got %v", s.RSIOverbought)
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.InitialCapital <= 0 {
		return Errorf("risk.initial_capital", "must be positive, got %v", r.InitialCapital)
	}
	if r.RiskPerTrade <= 0 || r.RiskPerTrade > 1 {
		return Errorf("risk.risk_per_trade", "must be in (0,1], got %v", r.RiskPerTrade)
	}
	if r.DailyLossLimit <= 0 || r.DailyLossLimit > 1 {
		return Errorf("risk.daily_loss_limit", "must be in (0,1], got %v", r.DailyLossLimit)
	}
	if r.MaxPositions < 0 {
		return Errorf("risk.max_positions", "must be >= 0, got %d", r.MaxPositions)
	}
	return nil
}
