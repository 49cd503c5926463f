package backtest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"riptide/internal/logger"
	"riptide/internal/market"
)

// SweepVariant is one parameter point in a sweep.
type SweepVariant struct {
	Name string
	Cfg  SimConfig
}

// SweepResult pairs a variant with its finished run.
type SweepResult struct {
	Name   string
	Result *Result
}

// Sweep runs every variant over the same candles, at most parallel at a
// time. Each variant gets its own Simulator, so runs share nothing but the
// input series. Results come back in variant order; the first error cancels
// the remaining variants.
func Sweep(ctx context.Context, candles []market.Candle, variants []SweepVariant, parallel int) ([]SweepResult, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]SweepResult, len(variants))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			sim, err := NewSimulator(v.Cfg)
			if err != nil {
				return err
			}
			res, err := sim.Run(ctx, candles)
			if err != nil {
				return err
			}
			logger.Infof("variant %s: %d trades, net %.2f", v.Name, res.Metrics.TotalTrades, res.Metrics.NetProfit)
			mu.Lock()
			results[i] = SweepResult{Name: v.Name, Result: res}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
