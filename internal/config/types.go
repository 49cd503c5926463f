package config

// Config is the root configuration carrier.
type Config struct {
	App      AppConfig      `toml:"app"`
	Data     DataConfig     `toml:"data"`
	Signal   SignalConfig   `toml:"signal"`
	Risk     RiskConfig     `toml:"risk"`
	Backtest BacktestConfig `toml:"backtest"`
}

type AppConfig struct {
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	StoreDB  string `toml:"store_db"`
}

type DataConfig struct {
	Symbol    string `toml:"symbol"`
	Timeframe string `toml:"timeframe"`
	CSVPath   string `toml:"csv_path"`
}

// SignalConfig carries the fusion weights and indicator settings. The three
// weights must sum to 1.0.
type SignalConfig struct {
	RSIWeight       float64 `toml:"rsi_weight"`
	WaveTrendWeight float64 `toml:"wavetrend_weight"`
	BuySellWeight   float64 `toml:"buysell_weight"`

	RSILength        int     `toml:"rsi_length"`
	RSIOversold      float64 `toml:"rsi_oversold"`
	RSIOverbought    float64 `toml:"rsi_overbought"`
	WTChannelLength  int     `toml:"wt_channel_length"`
	WTAverageLength  int     `toml:"wt_average_length"`
	MomentumLookback int     `toml:"momentum_lookback"`
}

type RiskConfig struct {
	InitialCapital float64 `toml:"initial_capital"`
	RiskPerTrade   float64 `toml:"risk_per_trade"`
	DailyLossLimit float64 `toml:"daily_loss_limit"`
	MaxPositions   int     `toml:"max_positions"`
	MaxBarsInTrade int     `toml:"max_bars_in_trade"`
	FeeRate        float64 `toml:"fee_rate"`

	TP1Multiplier    float64 `toml:"tp1_multiplier"`
	TP2Multiplier    float64 `toml:"tp2_multiplier"`
	RunnerMultiplier float64 `toml:"runner_multiplier"`
	TP1CloseRatio    float64 `toml:"tp1_close_ratio"`
	TP2CloseRatio    float64 `toml:"tp2_close_ratio"`
	MaxCapitalUsage  float64 `toml:"max_capital_usage"`

	StopLossMode  string  `toml:"stop_loss_mode"`
	StopLossValue float64 `toml:"stop_loss_value"`
}

type BacktestConfig struct {
	SignalCrossExit bool    `toml:"signal_cross_exit"`
	RiskFreeRate    float64 `toml:"risk_free_rate"`
	SweepParallel   int     `toml:"sweep_parallel"`
}
