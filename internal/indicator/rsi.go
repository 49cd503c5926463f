package indicator

// RSI computes the Relative Strength Index over closes with Wilder smoothing
// (alpha = 1/length). Every index has a defined value: index 0, where no
// price change exists yet, is pinned to the neutral 50. The 0/100 endpoints
// are reachable only in all-loss/all-gain runs.
func RSI(closes []float64, length int) []float64 {
	if length < 1 {
		length = 1
	}
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	out[0] = 50
	alpha := 1.0 / float64(length)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		switch {
		case avgGain == 0 && avgLoss == 0:
			out[i] = 50
		case avgLoss == 0:
			out[i] = 100
		case avgGain == 0:
			out[i] = 0
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}
