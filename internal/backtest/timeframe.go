package backtest

import "riptide/internal/config"

// timeframes is the closed set of supported bar intervals, in milliseconds.
var timeframes = map[string]int64{
	"1m":  60_000,
	"3m":  180_000,
	"5m":  300_000,
	"15m": 900_000,
	"30m": 1_800_000,
	"1h":  3_600_000,
	"2h":  7_200_000,
	"4h":  14_400_000,
	"6h":  21_600_000,
	"8h":  28_800_000,
	"12h": 43_200_000,
	"1d":  86_400_000,
}

// TimeframeMillis resolves a timeframe label to its bar duration.
func TimeframeMillis(tf string) (int64, error) {
	ms, ok := timeframes[tf]
	if !ok {
		return 0, config.Errorf("backtest.timeframe", "unsupported timeframe %q", tf)
	}
	return ms, nil
}
