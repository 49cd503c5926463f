package market

import (
	"fmt"
	"time"
)

// Candle is one immutable OHLCV bar. OpenTime is Unix milliseconds.
type Candle struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Time returns the bar open time as time.Time (UTC).
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// TypicalPrice is (high+low+close)/3, falling back to close when the bar
// carries no high/low (e.g. close-only imports).
func (c Candle) TypicalPrice() float64 {
	if c.High == 0 && c.Low == 0 {
		return c.Close
	}
	return (c.High + c.Low + c.Close) / 3.0
}

// DataError marks a bar series the engine refuses to run on: empty or too
// short history, out-of-order or duplicate timestamps, missing price fields,
// or gaps under a strict contiguity check. The engine never interpolates.
type DataError struct {
	Reason string
	Index  int // bar index the check failed at, -1 when not positional
}

func (e *DataError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("bad bar data at index %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("bad bar data: %s", e.Reason)
}

func dataErrorf(index int, format string, v ...any) error {
	return &DataError{Reason: fmt.Sprintf(format, v...), Index: index}
}

// ValidateSeries checks the minimum contract every consumer assumes:
// non-empty, strictly ascending timestamps, positive close on every bar.
func ValidateSeries(candles []Candle) error {
	if len(candles) == 0 {
		return dataErrorf(-1, "empty series")
	}
	for i, c := range candles {
		if c.Close <= 0 {
			return dataErrorf(i, "close must be positive, got %v", c.Close)
		}
		if c.High != 0 || c.Low != 0 {
			if c.High < c.Low {
				return dataErrorf(i, "high %v below low %v", c.High, c.Low)
			}
		}
		if i > 0 && c.OpenTime <= candles[i-1].OpenTime {
			return dataErrorf(i, "timestamps not strictly ascending (%d after %d)", c.OpenTime, candles[i-1].OpenTime)
		}
	}
	return nil
}

// ValidateContiguous additionally requires bars to sit on an exact stepMs
// grid with no holes. Used when the caller knows the timeframe.
func ValidateContiguous(candles []Candle, stepMs int64) error {
	if err := ValidateSeries(candles); err != nil {
		return err
	}
	if stepMs <= 0 {
		return dataErrorf(-1, "invalid bar step %dms", stepMs)
	}
	for i := 1; i < len(candles); i++ {
		if got := candles[i].OpenTime - candles[i-1].OpenTime; got != stepMs {
			return dataErrorf(i, "gap: expected step %dms, got %dms", stepMs, got)
		}
	}
	return nil
}

// Closes extracts the close column.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// TypicalPrices extracts the hlc3 column.
func TypicalPrices(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.TypicalPrice()
	}
	return out
}
