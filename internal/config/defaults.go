package config

const (
	defaultLogLevel = "info"
	defaultHTTPAddr = ":9982"
	defaultStoreDB  = "data/riptide.db"

	defaultSymbol    = "BTCUSDT"
	defaultTimeframe = "1h"

	defaultRSIWeight       = 0.4
	defaultWaveTrendWeight = 0.4
	defaultBuySellWeight   = 0.2

	defaultRSILength        = 14
	defaultRSIOversold      = 30.0
	defaultRSIOverbought    = 70.0
	defaultWTChannelLength  = 10
	defaultWTAverageLength  = 21
	defaultMomentumLookback = 20

	defaultInitialCapital = 10000.0
	defaultRiskPerTrade   = 0.02
	defaultDailyLossLimit = 0.05
	defaultMaxPositions   = 3
	defaultFeeRate        = 0.0005

	defaultTP1Multiplier    = 1.5
	defaultTP2Multiplier    = 2.0
	defaultRunnerMultiplier = 3.0
	defaultTPCloseRatio     = 1.0 / 3.0
	defaultMaxCapitalUsage  = 0.9

	defaultStopLossMode = "percentage"

	defaultSweepParallel = 4
)

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultHTTPAddr
	}
	if c.App.StoreDB == "" {
		c.App.StoreDB = defaultStoreDB
	}

	if c.Data.Symbol == "" {
		c.Data.Symbol = defaultSymbol
	}
	if c.Data.Timeframe == "" {
		c.Data.Timeframe = defaultTimeframe
	}

	s := &c.Signal
	if s.RSIWeight == 0 && s.WaveTrendWeight == 0 && s.BuySellWeight == 0 {
		s.RSIWeight = defaultRSIWeight
		s.WaveTrendWeight = defaultWaveTrendWeight
		s.BuySellWeight = defaultBuySellWeight
	}
	if s.RSILength == 0 {
		s.RSILength = defaultRSILength
	}
	if s.RSIOversold == 0 {
		s.RSIOversold = defaultRSIOversold
	}
	if s.RSIOverbought == 0 {
		s.RSIOverbought = defaultRSIOverbought
	}
	if s.WTChannelLength == 0 {
		s.WTChannelLength = defaultWTChannelLength
	}
	if s.WTAverageLength == 0 {
		s.WTAverageLength = defaultWTAverageLength
	}
	if s.MomentumLookback == 0 {
		s.MomentumLookback = defaultMomentumLookback
	}

	r := &c.Risk
	if r.InitialCapital == 0 {
		r.InitialCapital = defaultInitialCapital
	}
	if r.RiskPerTrade == 0 {
		r.RiskPerTrade = defaultRiskPerTrade
	}
	if r.DailyLossLimit == 0 {
		r.DailyLossLimit = defaultDailyLossLimit
	}
	if r.MaxPositions == 0 {
		r.MaxPositions = defaultMaxPositions
	}
	if r.FeeRate == 0 {
		r.FeeRate = defaultFeeRate
	}
	if r.TP1Multiplier == 0 {
		r.TP1Multiplier = defaultTP1Multiplier
	}
	if r.TP2Multiplier == 0 {
		r.TP2Multiplier = defaultTP2Multiplier
	}
	if r.RunnerMultiplier == 0 {
		r.RunnerMultiplier = defaultRunnerMultiplier
	}
	if r.TP1CloseRatio == 0 {
		r.TP1CloseRatio = defaultTPCloseRatio
	}
	if r.TP2CloseRatio == 0 {
		r.TP2CloseRatio = defaultTPCloseRatio
	}
	if r.MaxCapitalUsage == 0 {
		r.MaxCapitalUsage = defaultMaxCapitalUsage
	}
	if r.StopLossMode == "" {
		r.StopLossMode = defaultStopLossMode
	}

	if c.Backtest.SweepParallel == 0 {
		c.Backtest.SweepParallel = defaultSweepParallel
	}
}
