package backtest

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"riptide/internal/market"
	"riptide/internal/report"
	"riptide/internal/signal"
)

// HTTPServer exposes run submission and result queries over Gin.
type HTTPServer struct {
	addr    string
	svc     *Service
	base    SimConfig
	candles []market.Candle
	router  *gin.Engine
}

type HTTPConfig struct {
	Addr    string
	Svc     *Service
	Base    SimConfig
	Candles []market.Candle
}

func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Svc == nil {
		return nil, errors.New("service is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9982"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &HTTPServer{
		addr:    cfg.Addr,
		svc:     cfg.Svc,
		base:    cfg.Base,
		candles: cfg.Candles,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *HTTPServer) registerRoutes() {
	api := s.router.Group("/api/backtest")
	api.POST("/runs", s.handleRunStart)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/trades", s.handleRunTrades)
	api.GET("/runs/:id/equity", s.handleRunEquity)
	api.GET("/runs/:id/metrics", s.handleRunMetrics)
	api.GET("/runs/:id/daily", s.handleRunDaily)
	api.GET("/runs/:id/chart", s.handleRunChart)
}

// RunRequest overrides the server's base configuration per run. Zero fields
// keep the base value.
type RunRequest struct {
	RSIWeight       *float64       `json:"rsi_weight"`
	WaveTrendWeight *float64       `json:"wavetrend_weight"`
	BuySellWeight   *float64       `json:"buysell_weight"`
	Signal          *signal.Params `json:"signal"`
	RiskPerTrade    *float64       `json:"risk_per_trade"`
	DailyLossLimit  *float64       `json:"daily_loss_limit"`
	SignalCrossExit *bool          `json:"signal_cross_exit"`
}

func (s *HTTPServer) handleRunStart(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg := s.base
	if req.RSIWeight != nil {
		cfg.Weights.RSI = *req.RSIWeight
	}
	if req.WaveTrendWeight != nil {
		cfg.Weights.WaveTrend = *req.WaveTrendWeight
	}
	if req.BuySellWeight != nil {
		cfg.Weights.BuySell = *req.BuySellWeight
	}
	if req.Signal != nil {
		cfg.Signal = *req.Signal
	}
	if req.RiskPerTrade != nil {
		cfg.Risk.RiskPerTrade = *req.RiskPerTrade
	}
	if req.DailyLossLimit != nil {
		cfg.Risk.DailyLossLimit = *req.DailyLossLimit
	}
	if req.SignalCrossExit != nil {
		cfg.SignalCrossExit = *req.SignalCrossExit
	}

	run, _, err := s.svc.Execute(c.Request.Context(), cfg, s.candles)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "run": run})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *HTTPServer) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs := s.svc.ListRuns()
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *HTTPServer) handleRunDetail(c *gin.Context) {
	run, ok := s.svc.GetRun(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *HTTPServer) handleRunTrades(c *gin.Context) {
	res, ok := s.svc.GetResult(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": res.Trades})
}

func (s *HTTPServer) handleRunEquity(c *gin.Context) {
	res, ok := s.svc.GetResult(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity": res.Equity})
}

func (s *HTTPServer) handleRunMetrics(c *gin.Context) {
	res, ok := s.svc.GetResult(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": res.Metrics})
}

func (s *HTTPServer) handleRunDaily(c *gin.Context) {
	res, ok := s.svc.GetResult(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"daily": res.Daily})
}

func (s *HTTPServer) handleRunChart(c *gin.Context) {
	id := c.Param("id")
	run, ok := s.svc.GetRun(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	res, ok := s.svc.GetResult(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	points := make([]report.EquitySample, len(res.Equity))
	for i, p := range res.Equity {
		points[i] = report.EquitySample{OpenTime: p.OpenTime, Equity: p.Equity, Drawdown: p.Drawdown}
	}
	// Render into a buffer first so a render failure can still produce a
	// JSON error instead of committing the HTML headers.
	var buf bytes.Buffer
	if err := report.WriteEquityChart(&buf, run.Symbol+" "+run.Timeframe, points); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Start serves until ctx cancels, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
