package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVSource reads bars exported by the data collaborator. Expected header:
// timestamp,open,high,low,close,volume — timestamp either Unix ms or RFC3339.
// high/low/volume columns may be absent; close is mandatory.
type CSVSource struct {
	Path string
}

func (s CSVSource) Name() string { return "csv" }

// Load reads and validates the full series.
func (s CSVSource) Load() ([]Candle, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening bar file: %w", err)
	}
	defer f.Close()
	candles, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return candles, nil
}

// ReadCSV parses bars from r and validates the resulting series.
func ReadCSV(r io.Reader) ([]Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, dataErrorf(-1, "missing header row: %v", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	tsIdx, ok := cols["timestamp"]
	if !ok {
		return nil, dataErrorf(-1, "missing required column timestamp")
	}
	closeIdx, ok := cols["close"]
	if !ok {
		return nil, dataErrorf(-1, "missing required column close")
	}

	var candles []Candle
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dataErrorf(row, "csv parse: %v", err)
		}
		ts, err := parseTimestamp(rec[tsIdx])
		if err != nil {
			return nil, dataErrorf(row, "timestamp %q: %v", rec[tsIdx], err)
		}
		closePx, err := strconv.ParseFloat(strings.TrimSpace(rec[closeIdx]), 64)
		if err != nil {
			return nil, dataErrorf(row, "close %q: %v", rec[closeIdx], err)
		}
		c := Candle{OpenTime: ts, Close: closePx}
		c.Open = optionalField(rec, cols, "open", closePx)
		c.High = optionalField(rec, cols, "high", 0)
		c.Low = optionalField(rec, cols, "low", 0)
		c.Volume = optionalField(rec, cols, "volume", 0)
		candles = append(candles, c)
	}
	if err := ValidateSeries(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

func optionalField(rec []string, cols map[string]int, name string, fallback float64) float64 {
	idx, ok := cols[name]
	if !ok || idx >= len(rec) {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// Bare seconds are promoted to milliseconds.
		if ms < 1e12 {
			ms *= 1000
		}
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
