package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riptide/internal/market"
)

func TestRSI(t *testing.T) {
	t.Run("first bar is neutral", func(t *testing.T) {
		out := RSI([]float64{100, 101, 102}, 14)
		assert.InDelta(t, 50.0, out[0], 1e-9)
	})

	t.Run("flat series stays neutral", func(t *testing.T) {
		out := RSI([]float64{100, 100, 100, 100}, 14)
		for i, v := range out {
			assert.InDelta(t, 50.0, v, 1e-9, "index %d", i)
		}
	})

	t.Run("monotonic rise pins to 100", func(t *testing.T) {
		out := RSI([]float64{100, 101, 102, 103, 104}, 14)
		for _, v := range out[1:] {
			assert.InDelta(t, 100.0, v, 1e-9)
		}
	})

	t.Run("monotonic fall pins to 0", func(t *testing.T) {
		out := RSI([]float64{104, 103, 102, 101, 100}, 14)
		for _, v := range out[1:] {
			assert.InDelta(t, 0.0, v, 1e-9)
		}
	})

	t.Run("mixed moves stay inside (0,100)", func(t *testing.T) {
		out := RSI([]float64{100, 102, 101, 103, 102, 104}, 3)
		for _, v := range out[2:] {
			assert.Greater(t, v, 0.0)
			assert.Less(t, v, 100.0)
		}
	})
}

func TestEwmSpan(t *testing.T) {
	// alpha = 2/(3+1) = 0.5, seeded at the first sample.
	out := ewmSpan([]float64{10, 20, 30}, 3)
	assert.InDelta(t, 10.0, out[0], 1e-9)
	assert.InDelta(t, 15.0, out[1], 1e-9)
	assert.InDelta(t, 22.5, out[2], 1e-9)
}

func TestSMAWideningWindow(t *testing.T) {
	out := SMA([]float64{2, 4, 6, 8}, 3)
	assert.InDelta(t, 2.0, out[0], 1e-9)
	assert.InDelta(t, 3.0, out[1], 1e-9)
	assert.InDelta(t, 4.0, out[2], 1e-9)
	assert.InDelta(t, 6.0, out[3], 1e-9) // (4+6+8)/3
}

func TestWaveTrend(t *testing.T) {
	t.Run("constant input is zero", func(t *testing.T) {
		hlc3 := []float64{100, 100, 100, 100, 100}
		wt := WaveTrend(hlc3, 10, 21)
		for i := range hlc3 {
			assert.InDelta(t, 0.0, wt.WT1[i], 1e-9)
			assert.InDelta(t, 0.0, wt.WT2[i], 1e-9)
		}
	})

	t.Run("defined from index zero", func(t *testing.T) {
		hlc3 := []float64{100, 102, 101, 104, 103, 106}
		wt := WaveTrend(hlc3, 10, 21)
		require.Len(t, wt.WT1, len(hlc3))
		require.Len(t, wt.WT2, len(hlc3))
	})

	t.Run("wt2 lags wt1 on a trend", func(t *testing.T) {
		hlc3 := make([]float64, 30)
		for i := range hlc3 {
			hlc3[i] = 100 + float64(i)
		}
		wt := WaveTrend(hlc3, 10, 21)
		// In a steady uptrend wt1 runs above its own smoothing.
		assert.Greater(t, wt.WT1[29], wt.WT2[29])
	})
}

func TestWaveTrendCrosses(t *testing.T) {
	r := WaveTrendResult{
		WT1: []float64{1, 2, -1, -2, 3},
		WT2: []float64{0, 0, 0, 0, 0},
	}
	assert.False(t, r.CrossDown(0))
	assert.False(t, r.CrossDown(1))
	assert.True(t, r.CrossDown(2))
	assert.False(t, r.CrossDown(3))
	assert.True(t, r.CrossUp(4))
}

func TestLatestATRFallback(t *testing.T) {
	t.Run("short history uses fallback", func(t *testing.T) {
		candles := []market.Candle{
			{OpenTime: 0, High: 101, Low: 99, Close: 100},
		}
		assert.InDelta(t, 2.5, LatestATR(candles, 14, 2.5), 1e-9)
	})

	t.Run("long history returns a real range", func(t *testing.T) {
		candles := make([]market.Candle, 30)
		for i := range candles {
			candles[i] = market.Candle{
				OpenTime: int64(i) * 60000,
				High:     102,
				Low:      98,
				Close:    100,
			}
		}
		atr := LatestATR(candles, 14, 99)
		assert.InDelta(t, 4.0, atr, 1e-6)
	})
}

func TestRollingVolatilityWarmup(t *testing.T) {
	closes := []float64{100, 101, 100, 102, 101, 103, 102, 104}
	vol := RollingVolatility(closes, 5)
	for i := 0; i < 5; i++ {
		assert.Zero(t, vol[i], "index %d still warming up", i)
	}
	for i := 5; i < len(closes); i++ {
		assert.Greater(t, vol[i], 0.0)
	}
}

func TestSupportResistanceTrailing(t *testing.T) {
	candles := []market.Candle{
		{OpenTime: 0, High: 110, Low: 90, Close: 100},
		{OpenTime: 60000, High: 105, Low: 95, Close: 100},
		{OpenTime: 120000, High: 108, Low: 97, Close: 100},
	}
	support, resistance := SupportResistance(candles, 2)
	// Only the last two bars are in the window.
	assert.InDelta(t, 95.0, support, 1e-9)
	assert.InDelta(t, 108.0, resistance, 1e-9)
}
