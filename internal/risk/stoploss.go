package risk

import (
	"riptide/internal/config"
	"riptide/internal/indicator"
	"riptide/internal/market"
)

// StopLossPolicy is a closed set of stop-price calculators. Each variant
// carries its own parameter, so an invalid mode simply cannot be represented;
// free-form mode strings only exist at the config boundary (ParseStopLoss).
type StopLossPolicy interface {
	Kind() string
	// StopPrice derives the protective stop from the entry and the bar
	// history up to (and including) the entry bar.
	StopPrice(side Side, entryPrice float64, history []market.Candle) float64

	validate() error
}

// Stops are clamped to [0.5, 1.5]x entry so a degenerate indicator value
// cannot place the stop absurdly far away.
const (
	stopClampLow  = 0.5
	stopClampHigh = 1.5

	defaultATRPeriod     = 14
	defaultRangeLookback = 20
)

// PercentageStop places the stop a fixed fraction away from entry.
type PercentageStop struct {
	Pct float64
}

func (p PercentageStop) Kind() string { return "percentage" }

func (p PercentageStop) StopPrice(side Side, entry float64, _ []market.Candle) float64 {
	if side == SideShort {
		return clampStop(side, entry*(1+p.Pct), entry)
	}
	return clampStop(side, entry*(1-p.Pct), entry)
}

func (p PercentageStop) validate() error {
	if p.Pct < 0.005 || p.Pct > 0.10 {
		return config.Errorf("risk.stop_loss", "percentage must be in [0.005, 0.10], got %v", p.Pct)
	}
	return nil
}

// ATRMultipleStop places the stop a multiple of the Average True Range away.
type ATRMultipleStop struct {
	Multiplier float64
	Period     int
}

func (a ATRMultipleStop) Kind() string { return "atr" }

func (a ATRMultipleStop) StopPrice(side Side, entry float64, history []market.Candle) float64 {
	period := a.Period
	if period <= 0 {
		period = defaultATRPeriod
	}
	atr := indicator.LatestATR(history, period, entry*0.02)
	dist := atr * a.Multiplier
	if side == SideShort {
		return clampStop(side, entry+dist, entry)
	}
	return clampStop(side, entry-dist, entry)
}

func (a ATRMultipleStop) validate() error {
	if a.Multiplier < 0.5 || a.Multiplier > 5.0 {
		return config.Errorf("risk.stop_loss", "atr multiplier must be in [0.5, 5.0], got %v", a.Multiplier)
	}
	return nil
}

// SupportResistanceStop anchors the stop below recent support (long) or
// above recent resistance (short), with a distance buffer.
type SupportResistanceStop struct {
	DistancePct float64
	Lookback    int
}

func (s SupportResistanceStop) Kind() string { return "support_resistance" }

func (s SupportResistanceStop) StopPrice(side Side, entry float64, history []market.Candle) float64 {
	lookback := s.Lookback
	if lookback <= 0 {
		lookback = defaultRangeLookback
	}
	support, resistance := indicator.SupportResistance(history, lookback)
	if side == SideShort {
		if resistance <= 0 {
			resistance = entry * 1.02
		}
		return clampStop(side, resistance*(1+s.DistancePct), entry)
	}
	if support <= 0 {
		support = entry * 0.98
	}
	return clampStop(side, support*(1-s.DistancePct), entry)
}

func (s SupportResistanceStop) validate() error {
	if s.DistancePct < 0.01 || s.DistancePct > 0.05 {
		return config.Errorf("risk.stop_loss", "support/resistance distance must be in [0.01, 0.05], got %v", s.DistancePct)
	}
	return nil
}

// VolatilityMultipleStop scales the stop distance by recent return
// volatility.
type VolatilityMultipleStop struct {
	Multiplier float64
	Lookback   int
}

func (v VolatilityMultipleStop) Kind() string { return "volatility" }

func (v VolatilityMultipleStop) StopPrice(side Side, entry float64, history []market.Candle) float64 {
	lookback := v.Lookback
	if lookback <= 0 {
		lookback = defaultRangeLookback
	}
	dist := entry * 0.02
	vol := indicator.RollingVolatility(market.Closes(history), lookback)
	if n := len(vol); n > 0 && vol[n-1] > 0 {
		dist = entry * vol[n-1] * v.Multiplier
	}
	if side == SideShort {
		return clampStop(side, entry+dist, entry)
	}
	return clampStop(side, entry-dist, entry)
}

func (v VolatilityMultipleStop) validate() error {
	if v.Multiplier < 1.0 || v.Multiplier > 3.0 {
		return config.Errorf("risk.stop_loss", "volatility multiplier must be in [1.0, 3.0], got %v", v.Multiplier)
	}
	return nil
}

func clampStop(side Side, stop, entry float64) float64 {
	if side == SideShort {
		if max := entry * stopClampHigh; stop > max {
			return max
		}
		return stop
	}
	if min := entry * stopClampLow; stop < min {
		return min
	}
	return stop
}

// ParseStopLoss maps a config mode string plus value onto a policy. Unknown
// modes and out-of-range values are construction-time failures.
func ParseStopLoss(mode string, value float64) (StopLossPolicy, error) {
	var policy StopLossPolicy
	switch mode {
	case "", "percentage":
		if value == 0 {
			value = 0.02
		}
		policy = PercentageStop{Pct: value}
	case "atr":
		if value == 0 {
			value = 2.0
		}
		policy = ATRMultipleStop{Multiplier: value, Period: defaultATRPeriod}
	case "support_resistance":
		if value == 0 {
			value = 0.02
		}
		policy = SupportResistanceStop{DistancePct: value, Lookback: defaultRangeLookback}
	case "volatility":
		if value == 0 {
			value = 2.0
		}
		policy = VolatilityMultipleStop{Multiplier: value, Lookback: defaultRangeLookback}
	default:
		return nil, config.Errorf("risk.stop_loss_mode", "unknown mode %q (want percentage|atr|support_resistance|volatility)", mode)
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return policy, nil
}
