package indicator

// ewmSpan is an exponential moving average with alpha = 2/(span+1) seeded
// from the first sample, so the output is defined from index 0 with no
// warm-up gap (recursive form, matching pandas ewm(adjust=False)).
func ewmSpan(values []float64, span int) []float64 {
	if span < 1 {
		span = 1
	}
	alpha := 2.0 / (float64(span) + 1.0)
	return ewmAlpha(values, alpha)
}

func ewmAlpha(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}

// SMA is a simple moving average using a progressively widening window: the
// first window-1 points average everything seen so far instead of being
// undefined.
func SMA(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		n := i + 1
		if n > window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// EMA mirrors ewmSpan for callers that want the conventional name.
func EMA(values []float64, span int) []float64 {
	return ewmSpan(values, span)
}
