package signal

import (
	"math"

	"riptide/internal/config"
	"riptide/internal/indicator"
	"riptide/internal/market"
)

// Thresholds for the fused signal. Long and short bands never overlap, so a
// bundle can never be long and short at once.
const (
	longThreshold  = 0.3
	shortThreshold = -0.3

	weightTolerance = 1e-3
)

// Bundle is the per-bar signal output.
type Bundle struct {
	OpenTime int64 `json:"open_time"`

	RSI float64 `json:"rsi"`
	WT1 float64 `json:"wt1"`
	WT2 float64 `json:"wt2"`

	RSISignal       float64 `json:"rsi_signal"`
	WaveTrendSignal float64 `json:"wavetrend_signal"`
	MomentumSignal  float64 `json:"momentum_signal"`
	WeightedSignal  float64 `json:"weighted_signal"`

	FinalLong  bool   `json:"final_long"`
	FinalShort bool   `json:"final_short"`
	Strength   string `json:"strength"`

	// WTCrossDown/WTCrossUp feed the optional oscillator-cross exit.
	WTCrossDown bool `json:"wt_cross_down,omitempty"`
	WTCrossUp   bool `json:"wt_cross_up,omitempty"`
}

// Params are the indicator settings consumed by Generate.
type Params struct {
	RSILength        int     `json:"rsi_length"`
	RSIOversold      float64 `json:"rsi_oversold"`
	RSIOverbought    float64 `json:"rsi_overbought"`
	WTChannelLength  int     `json:"wt_channel_length"`
	WTAverageLength  int     `json:"wt_average_length"`
	MomentumLookback int     `json:"momentum_lookback"`
}

// DefaultParams mirrors the conventional settings (RSI 14/30/70, WT 10/21,
// momentum 20).
func DefaultParams() Params {
	return Params{
		RSILength:        14,
		RSIOversold:      30,
		RSIOverbought:    70,
		WTChannelLength:  10,
		WTAverageLength:  21,
		MomentumLookback: 20,
	}
}

func (p Params) validate() error {
	if p.RSILength < 1 {
		return config.Errorf("signal.rsi_length", "must be >= 1, got %d", p.RSILength)
	}
	if !(p.RSIOversold > 0 && p.RSIOversold < 50) {
		return config.Errorf("signal.rsi_oversold", "must be in (0,50), got %v", p.RSIOversold)
	}
	if !(p.RSIOverbought > 50 && p.RSIOverbought < 100) {
		return config.Errorf("signal.rsi_overbought", "must be in (50,100), got %v", p.RSIOverbought)
	}
	if p.WTChannelLength < 1 || p.WTAverageLength < 1 {
		return config.Errorf("signal.wavetrend", "channel/average lengths must be >= 1")
	}
	if p.MomentumLookback < 1 {
		return config.Errorf("signal.momentum_lookback", "must be >= 1, got %d", p.MomentumLookback)
	}
	return nil
}

// Generator fuses the three sub-signals with fixed weights. Weights are
// checked once at construction and never renormalized.
type Generator struct {
	rsiWeight       float64
	wavetrendWeight float64
	buySellWeight   float64
}

// NewGenerator rejects weight sets that do not sum to 1.0 (±1e-3).
func NewGenerator(rsiWeight, wavetrendWeight, buySellWeight float64) (*Generator, error) {
	total := rsiWeight + wavetrendWeight + buySellWeight
	if math.Abs(total-1.0) > weightTolerance {
		return nil, config.Errorf("signal.weights", "must sum to 1.0, got %v", total)
	}
	if rsiWeight < 0 || wavetrendWeight < 0 || buySellWeight < 0 {
		return nil, config.Errorf("signal.weights", "must be non-negative")
	}
	return &Generator{
		rsiWeight:       rsiWeight,
		wavetrendWeight: wavetrendWeight,
		buySellWeight:   buySellWeight,
	}, nil
}

// Generate computes one Bundle per bar. Every indicator in the chain is
// causal (each output depends only on bars up to its index), so generating
// over the whole history equals generating bar-by-bar as a live caller would.
func (g *Generator) Generate(candles []market.Candle, p Params) ([]Bundle, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := market.ValidateSeries(candles); err != nil {
		return nil, err
	}

	closes := market.Closes(candles)
	rsi := indicator.RSI(closes, p.RSILength)
	wt := indicator.WaveTrend(market.TypicalPrices(candles), p.WTChannelLength, p.WTAverageLength)
	smaShort := indicator.SMA(closes, 5)
	smaLong := indicator.SMA(closes, p.MomentumLookback)

	bundles := make([]Bundle, len(candles))
	for i := range candles {
		rsiSig := rsiSubSignal(rsi[i], p.RSIOversold, p.RSIOverbought)
		wtSig := wavetrendSubSignal(wt.WT1[i], wt.WT2[i])
		momSig := momentumSubSignal(closes[i], smaShort[i], smaLong[i])

		weighted := rsiSig*g.rsiWeight + wtSig*g.wavetrendWeight + momSig*g.buySellWeight

		bundles[i] = Bundle{
			OpenTime:        candles[i].OpenTime,
			RSI:             rsi[i],
			WT1:             wt.WT1[i],
			WT2:             wt.WT2[i],
			RSISignal:       rsiSig,
			WaveTrendSignal: wtSig,
			MomentumSignal:  momSig,
			WeightedSignal:  weighted,
			FinalLong:       weighted > longThreshold,
			FinalShort:      weighted < shortThreshold,
			Strength:        StrengthLabel(weighted),
			WTCrossDown:     wt.CrossDown(i),
			WTCrossUp:       wt.CrossUp(i),
		}
	}
	return bundles, nil
}

// rsiSubSignal maps RSI to [-1,1]: oversold and below is a full buy,
// overbought and above a full sell, linear in between anchored at 50 -> 0.
func rsiSubSignal(value, oversold, overbought float64) float64 {
	switch {
	case value <= oversold:
		return 1.0
	case value >= overbought:
		return -1.0
	case value < 50:
		return (50 - value) / (50 - oversold)
	default:
		return -(value - 50) / (overbought - 50)
	}
}

// wavetrendSubSignal buckets the oscillator pair four ways. A WT1==WT2 tie
// deliberately lands in the "below" branch (-0.5).
func wavetrendSubSignal(wt1, wt2 float64) float64 {
	switch {
	case wt1 > wt2 && wt1 < -50:
		return 1.0
	case wt1 < wt2 && wt1 > 50:
		return -1.0
	case wt1 > wt2:
		return 0.5
	default:
		return -0.5
	}
}

// momentumSubSignal compares price against the short and long moving
// averages, averaged and scaled by 10, clipped to [-1,1].
func momentumSubSignal(price, smaShort, smaLong float64) float64 {
	if smaShort == 0 || smaLong == 0 {
		return 0
	}
	vsShort := (price - smaShort) / smaShort
	vsLong := (price - smaLong) / smaLong
	return clip((vsShort+vsLong)/2*10, -1, 1)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StrengthLabel renders the fused signal into the fixed descriptive bands.
func StrengthLabel(weighted float64) string {
	switch {
	case weighted >= 0.7:
		return "Very Strong Buy"
	case weighted >= 0.3:
		return "Strong Buy"
	case weighted >= 0.1:
		return "Weak Buy"
	case weighted <= -0.7:
		return "Very Strong Sell"
	case weighted <= -0.3:
		return "Strong Sell"
	case weighted <= -0.1:
		return "Weak Sell"
	default:
		return "Neutral"
	}
}
