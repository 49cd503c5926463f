package market

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSeries(t *testing.T) {
	t.Run("empty series", func(t *testing.T) {
		assert.Error(t, ValidateSeries(nil))
	})

	t.Run("valid ascending series", func(t *testing.T) {
		candles := []Candle{
			{OpenTime: 1000, Close: 100},
			{OpenTime: 2000, Close: 101},
		}
		assert.NoError(t, ValidateSeries(candles))
	})

	t.Run("out of order timestamps", func(t *testing.T) {
		candles := []Candle{
			{OpenTime: 2000, Close: 100},
			{OpenTime: 1000, Close: 101},
		}
		err := ValidateSeries(candles)
		require.Error(t, err)
		var de *DataError
		assert.ErrorAs(t, err, &de)
	})

	t.Run("non positive close", func(t *testing.T) {
		candles := []Candle{{OpenTime: 1000, Close: 0}}
		assert.Error(t, ValidateSeries(candles))
	})
}

func TestTypicalPrice(t *testing.T) {
	c := Candle{High: 110, Low: 90, Close: 100}
	assert.InDelta(t, 100.0, c.TypicalPrice(), 1e-9)

	// Close-only bars fall back to the close.
	bare := Candle{Close: 100}
	assert.InDelta(t, 100.0, bare.TypicalPrice(), 1e-9)
}

func TestReadCSV(t *testing.T) {
	t.Run("full columns", func(t *testing.T) {
		csv := "timestamp,open,high,low,close,volume\n" +
			"1700000000000,100,105,95,102,12.5\n" +
			"1700003600000,102,106,101,104,8.2\n"
		candles, err := ReadCSV(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Equal(t, int64(1700000000000), candles[0].OpenTime)
		assert.InDelta(t, 102.0, candles[0].Close, 1e-9)
		assert.InDelta(t, 105.0, candles[0].High, 1e-9)
		assert.InDelta(t, 12.5, candles[0].Volume, 1e-9)
	})

	t.Run("close only", func(t *testing.T) {
		csv := "timestamp,close\n1700000000000,100\n1700003600000,101\n"
		candles, err := ReadCSV(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Zero(t, candles[0].High)
	})

	t.Run("seconds promoted to millis", func(t *testing.T) {
		csv := "timestamp,close\n1700000000,100\n1700003600,101\n"
		candles, err := ReadCSV(strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000000), candles[0].OpenTime)
	})

	t.Run("rfc3339 timestamps", func(t *testing.T) {
		csv := "timestamp,close\n2024-01-02T00:00:00Z,100\n2024-01-02T01:00:00Z,101\n"
		candles, err := ReadCSV(strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, int64(1704153600000), candles[0].OpenTime)
	})

	t.Run("missing close column", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("timestamp,open\n1700000000000,100\n"))
		assert.Error(t, err)
	})

	t.Run("unparseable close", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("timestamp,close\n1700000000000,abc\n"))
		assert.Error(t, err)
	})
}
