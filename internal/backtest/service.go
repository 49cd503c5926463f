package backtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"riptide/internal/logger"
	"riptide/internal/market"
)

// Service executes runs against a data source and records them. Finished
// results stay cached in memory for the HTTP surface; the recorder is the
// durable copy.
type Service struct {
	recorder Recorder

	mu      sync.RWMutex
	runs    map[string]Run
	results map[string]*Result
}

// NewService wraps a recorder; pass NopRecorder{} to keep runs in memory
// only.
func NewService(recorder Recorder) *Service {
	return &Service{
		recorder: recorder,
		runs:     make(map[string]Run),
		results:  make(map[string]*Result),
	}
}

// Execute runs one backtest end to end and records the outcome. A cancelled
// run is recorded as failed but still returns its partial result.
func (s *Service) Execute(ctx context.Context, cfg SimConfig, candles []market.Candle) (Run, *Result, error) {
	run := NewRun(cfg.Symbol, cfg.Timeframe)
	run.Status = RunRunning
	run.Bars = len(candles)
	if err := s.recorder.InsertRun(run); err != nil {
		return run, nil, err
	}
	s.storeRun(run, nil)

	sim, err := NewSimulator(cfg)
	if err != nil {
		s.fail(&run, err)
		return run, nil, err
	}

	logger.Infof("run %s: %s %s over %d bars", run.ID, cfg.Symbol, cfg.Timeframe, len(candles))
	res, err := sim.Run(ctx, candles)
	if err != nil {
		s.fail(&run, err)
		if res != nil && errors.Is(err, context.Canceled) {
			s.storeRun(run, res)
		}
		return run, res, err
	}

	run.Status = RunFinished
	run.EndedAt = time.Now().UTC()
	if err := s.recorder.FinishRun(run, res); err != nil {
		s.fail(&run, err)
		return run, res, err
	}
	s.storeRun(run, res)
	logger.Infof("run %s finished: net %.2f over %d trades", run.ID, res.Metrics.NetProfit, res.Metrics.TotalTrades)
	return run, res, nil
}

func (s *Service) fail(run *Run, cause error) {
	run.Status = RunFailed
	run.EndedAt = time.Now().UTC()
	run.Error = cause.Error()
	if err := s.recorder.MarkFailed(run.ID, cause.Error()); err != nil {
		logger.Warnf("recording failure of run %s: %v", run.ID, err)
	}
	s.storeRun(*run, nil)
}

func (s *Service) storeRun(run Run, res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	if res != nil {
		s.results[run.ID] = res
	}
}

// GetRun returns a cached run by id.
func (s *Service) GetRun(id string) (Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// GetResult returns a cached result by run id.
func (s *Service) GetResult(id string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[id]
	return res, ok
}

// ListRuns returns all cached runs, most recent first.
func (s *Service) ListRuns() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}
