package indicator

import "math"

// WaveTrendResult holds the oscillator pair. Both series are defined from
// index 0 (no warm-up gap).
type WaveTrendResult struct {
	WT1 []float64
	WT2 []float64
}

const wtDeltaEpsilon = 1e-10

// WaveTrend computes the channel-smoothed momentum oscillator pair over a
// typical-price (hlc3) series:
//
//	esa = ema(hlc3, channelLength)
//	de  = ema(|hlc3-esa|, channelLength)
//	ci  = (hlc3-esa) / (0.015*de)
//	wt1 = ema(ci, averageLength)
//	wt2 = ema(wt1, 4)
//
// A zero de is replaced by a tiny epsilon so ci stays finite.
func WaveTrend(hlc3 []float64, channelLength, averageLength int) WaveTrendResult {
	esa := ewmSpan(hlc3, channelLength)

	dev := make([]float64, len(hlc3))
	for i := range hlc3 {
		dev[i] = math.Abs(hlc3[i] - esa[i])
	}
	de := ewmSpan(dev, channelLength)

	ci := make([]float64, len(hlc3))
	for i := range hlc3 {
		d := de[i]
		if d == 0 {
			d = wtDeltaEpsilon
		}
		ci[i] = (hlc3[i] - esa[i]) / (0.015 * d)
	}

	wt1 := ewmSpan(ci, averageLength)
	wt2 := ewmSpan(wt1, 4)
	return WaveTrendResult{WT1: wt1, WT2: wt2}
}

// CrossDown reports the indexes where wt1 crosses below wt2 (previous bar
// wt1 >= wt2, current bar wt1 < wt2). Index 0 is never a cross.
func (r WaveTrendResult) CrossDown(i int) bool {
	if i <= 0 || i >= len(r.WT1) {
		return false
	}
	return r.WT1[i-1] >= r.WT2[i-1] && r.WT1[i] < r.WT2[i]
}

// CrossUp is the mirror of CrossDown.
func (r WaveTrendResult) CrossUp(i int) bool {
	if i <= 0 || i >= len(r.WT1) {
		return false
	}
	return r.WT1[i-1] <= r.WT2[i-1] && r.WT1[i] > r.WT2[i]
}
