package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepVariantIsolation(t *testing.T) {
	candles := testCandles(120)

	balanced := testSimConfig()
	rsiHeavy := testSimConfig()
	rsiHeavy.Weights.RSI = 0.5
	rsiHeavy.Weights.WaveTrend = 0.3

	variants := []SweepVariant{
		{Name: "balanced", Cfg: balanced},
		{Name: "rsi-heavy", Cfg: rsiHeavy},
	}
	results, err := Sweep(context.Background(), candles, variants, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Results come back in variant order, and each one equals a solo run of
	// the same configuration: variants share nothing but the input series.
	for i, v := range variants {
		assert.Equal(t, v.Name, results[i].Name)

		sim, err := NewSimulator(v.Cfg)
		require.NoError(t, err)
		solo, err := sim.Run(context.Background(), candles)
		require.NoError(t, err)
		assert.Equal(t, solo.Trades, results[i].Result.Trades)
		assert.Equal(t, solo.Equity, results[i].Result.Equity)
		assert.Equal(t, solo.Metrics, results[i].Result.Metrics)
	}
}

func TestSweepFirstErrorCancels(t *testing.T) {
	bad := testSimConfig()
	bad.Timeframe = "7m"

	variants := []SweepVariant{
		{Name: "good", Cfg: testSimConfig()},
		{Name: "bad", Cfg: bad},
	}
	results, err := Sweep(context.Background(), testCandles(60), variants, 1)
	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestSweepSerialMatchesParallel(t *testing.T) {
	candles := testCandles(100)
	variants := []SweepVariant{
		{Name: "a", Cfg: testSimConfig()},
		{Name: "b", Cfg: testSimConfig()},
		{Name: "c", Cfg: testSimConfig()},
	}

	serial, err := Sweep(context.Background(), candles, variants, 1)
	require.NoError(t, err)
	parallel, err := Sweep(context.Background(), candles, variants, 3)
	require.NoError(t, err)

	require.Len(t, parallel, len(serial))
	for i := range serial {
		assert.Equal(t, serial[i].Name, parallel[i].Name)
		assert.Equal(t, serial[i].Result.Metrics, parallel[i].Result.Metrics)
	}
}
