package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"riptide/internal/backtest"
	"riptide/internal/config"
	"riptide/internal/logger"
	"riptide/internal/market"
	"riptide/internal/risk"
	sig "riptide/internal/signal"
	"riptide/internal/store"
)

func main() {
	cfgPath := os.Getenv("RIPTIDE_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "config file path")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "run"
	}
	switch cmd {
	case "run":
		err = runOnce(ctx, cfg)
	case "serve":
		err = serve(ctx, cfg)
	case "sweep":
		err = sweep(ctx, cfg)
	default:
		err = fmt.Errorf("unknown command %q (want run|serve|sweep)", cmd)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

// loadConfig falls back to all defaults when no config file exists, so the
// binary works out of the box against a CSV path given in the environment.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("config %s not found, using defaults", path)
		return config.Default(), nil
	}
	return config.Load(path)
}

func simConfig(cfg *config.Config) (backtest.SimConfig, error) {
	stopPolicy, err := risk.ParseStopLoss(cfg.Risk.StopLossMode, cfg.Risk.StopLossValue)
	if err != nil {
		return backtest.SimConfig{}, err
	}
	sim := backtest.SimConfig{
		Symbol:    cfg.Data.Symbol,
		Timeframe: cfg.Data.Timeframe,
		Signal: sig.Params{
			RSILength:        cfg.Signal.RSILength,
			RSIOversold:      cfg.Signal.RSIOversold,
			RSIOverbought:    cfg.Signal.RSIOverbought,
			WTChannelLength:  cfg.Signal.WTChannelLength,
			WTAverageLength:  cfg.Signal.WTAverageLength,
			MomentumLookback: cfg.Signal.MomentumLookback,
		},
		Risk: risk.ManagerConfig{
			InitialCapital:   cfg.Risk.InitialCapital,
			RiskPerTrade:     cfg.Risk.RiskPerTrade,
			DailyLossLimit:   cfg.Risk.DailyLossLimit,
			MaxPositions:     cfg.Risk.MaxPositions,
			MaxBarsInTrade:   cfg.Risk.MaxBarsInTrade,
			FeeRate:          cfg.Risk.FeeRate,
			TP1Multiplier:    cfg.Risk.TP1Multiplier,
			TP2Multiplier:    cfg.Risk.TP2Multiplier,
			RunnerMultiplier: cfg.Risk.RunnerMultiplier,
			TP1CloseRatio:    cfg.Risk.TP1CloseRatio,
			TP2CloseRatio:    cfg.Risk.TP2CloseRatio,
			MaxCapitalUsage:  cfg.Risk.MaxCapitalUsage,
			StopLoss:         stopPolicy,
		},
		SignalCrossExit: cfg.Backtest.SignalCrossExit,
		RiskFreeRate:    cfg.Backtest.RiskFreeRate,
	}
	sim.Weights.RSI = cfg.Signal.RSIWeight
	sim.Weights.WaveTrend = cfg.Signal.WaveTrendWeight
	sim.Weights.BuySell = cfg.Signal.BuySellWeight
	return sim, nil
}

func loadCandles(cfg *config.Config) ([]market.Candle, error) {
	path := cfg.Data.CSVPath
	if env := os.Getenv("RIPTIDE_DATA"); env != "" {
		path = env
	}
	if path == "" {
		return nil, fmt.Errorf("no candle data: set data.csv_path or RIPTIDE_DATA")
	}
	return market.CSVSource{Path: path}.Load()
}

func openRecorder(cfg *config.Config) (backtest.Recorder, func(), error) {
	if cfg.App.StoreDB == "" {
		return backtest.NopRecorder{}, func() {}, nil
	}
	st, err := store.Open(cfg.App.StoreDB)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil
}

func runOnce(ctx context.Context, cfg *config.Config) error {
	sim, err := simConfig(cfg)
	if err != nil {
		return err
	}
	candles, err := loadCandles(cfg)
	if err != nil {
		return err
	}
	recorder, closeStore, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := backtest.NewService(recorder)
	_, res, err := svc.Execute(ctx, sim, candles)
	if err != nil {
		return err
	}
	logger.InfoBlock(res.Metrics.Report())
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	sim, err := simConfig(cfg)
	if err != nil {
		return err
	}
	candles, err := loadCandles(cfg)
	if err != nil {
		return err
	}
	recorder, closeStore, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv, err := backtest.NewHTTPServer(backtest.HTTPConfig{
		Addr:    cfg.App.HTTPAddr,
		Svc:     backtest.NewService(recorder),
		Base:    sim,
		Candles: candles,
	})
	if err != nil {
		return err
	}
	logger.Infof("serving on %s", cfg.App.HTTPAddr)
	return srv.Start(ctx)
}

// sweep runs the base config against a small grid of weight splits.
func sweep(ctx context.Context, cfg *config.Config) error {
	base, err := simConfig(cfg)
	if err != nil {
		return err
	}
	candles, err := loadCandles(cfg)
	if err != nil {
		return err
	}

	splits := []struct {
		name         string
		rsi, wt, mom float64
	}{
		{"rsi-heavy", 0.5, 0.3, 0.2},
		{"wt-heavy", 0.3, 0.5, 0.2},
		{"balanced", 0.4, 0.4, 0.2},
		{"momentum", 0.3, 0.3, 0.4},
	}
	variants := make([]backtest.SweepVariant, len(splits))
	for i, s := range splits {
		v := base
		v.Weights.RSI = s.rsi
		v.Weights.WaveTrend = s.wt
		v.Weights.BuySell = s.mom
		variants[i] = backtest.SweepVariant{Name: s.name, Cfg: v}
	}

	results, err := backtest.Sweep(ctx, candles, variants, cfg.Backtest.SweepParallel)
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Infof("%-10s net %10.2f  trades %4d  sharpe %6.3f  maxDD %6.2f%%",
			r.Name, r.Result.Metrics.NetProfit, r.Result.Metrics.TotalTrades,
			r.Result.Metrics.SharpeRatio, r.Result.Metrics.MaxDrawdown*100)
	}
	return nil
}
