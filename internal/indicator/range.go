package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"riptide/internal/market"
)

// ATR returns the Average True Range of the series via talib. The first
// period indexes are talib's warm-up zeros; LatestATR applies the caller
// fallback there.
func ATR(candles []market.Candle, period int) []float64 {
	if period < 1 {
		period = 1
	}
	// talib needs more bars than the period; below that everything is
	// warm-up and LatestATR falls back.
	if len(candles) <= period {
		return make([]float64, len(candles))
	}
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		if c.High == 0 && c.Low == 0 {
			highs[i], lows[i] = c.Close, c.Close
		}
	}
	return talib.Atr(highs, lows, closes, period)
}

// LatestATR returns the last defined ATR value, or fallback when the series
// is still inside the warm-up region.
func LatestATR(candles []market.Candle, period int, fallback float64) float64 {
	atr := ATR(candles, period)
	for i := len(atr) - 1; i >= 0; i-- {
		if atr[i] > 0 {
			return atr[i]
		}
	}
	return fallback
}

// RollingVolatility is the sample standard deviation of bar-over-bar returns
// over a trailing window. Indexes with fewer than window returns are 0; the
// caller decides the fallback.
func RollingVolatility(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	if window < 2 || len(closes) < 2 {
		return out
	}
	returns := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns[i] = closes[i]/closes[i-1] - 1
		}
	}
	for i := window; i < len(closes); i++ {
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += returns[j]
		}
		mean /= float64(window)
		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := returns[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// SupportResistance returns the trailing rolling low/high over lookback bars
// ending at the last bar. Trailing, not centered: stop placement must not
// peek at future bars.
func SupportResistance(candles []market.Candle, lookback int) (support, resistance float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	if lookback < 1 {
		lookback = 1
	}
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	support = math.Inf(1)
	resistance = math.Inf(-1)
	for _, c := range candles[start:] {
		lo, hi := c.Low, c.High
		if hi == 0 && lo == 0 {
			lo, hi = c.Close, c.Close
		}
		if lo < support {
			support = lo
		}
		if hi > resistance {
			resistance = hi
		}
	}
	return support, resistance
}
