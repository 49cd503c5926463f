package backtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPServer(t *testing.T) *HTTPServer {
	t.Helper()
	srv, err := NewHTTPServer(HTTPConfig{
		Svc:     NewService(NopRecorder{}),
		Base:    testSimConfig(),
		Candles: testCandles(100),
	})
	require.NoError(t, err)
	return srv
}

func serveJSON(t *testing.T, srv *HTTPServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHTTPRunLifecycle(t *testing.T) {
	srv := newTestHTTPServer(t)

	rec := serveJSON(t, srv, http.MethodPost, "/api/backtest/runs", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var submitted struct {
		Run Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.Run.ID)
	assert.Equal(t, RunFinished, submitted.Run.Status)
	assert.Equal(t, 100, submitted.Run.Bars)

	t.Run("detail", func(t *testing.T) {
		rec := serveJSON(t, srv, http.MethodGet, "/api/backtest/runs/"+submitted.Run.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var detail struct {
			Run Run `json:"run"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
		assert.Equal(t, submitted.Run.ID, detail.Run.ID)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serveJSON(t, srv, http.MethodGet, "/api/backtest/runs/"+submitted.Run.ID+"/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var payload struct {
			Metrics struct {
				InitialCapital float64 `json:"initial_capital"`
				TotalTrades    int     `json:"total_trades"`
			} `json:"metrics"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, 10000.0, payload.Metrics.InitialCapital)
		assert.Greater(t, payload.Metrics.TotalTrades, 0)
	})

	t.Run("list", func(t *testing.T) {
		rec := serveJSON(t, srv, http.MethodGet, "/api/backtest/runs", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var payload struct {
			Runs []Run `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Len(t, payload.Runs, 1)
		assert.Equal(t, submitted.Run.ID, payload.Runs[0].ID)
	})

	t.Run("chart", func(t *testing.T) {
		rec := serveJSON(t, srv, http.MethodGet, "/api/backtest/runs/"+submitted.Run.ID+"/chart", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.True(t, strings.Contains(rec.Body.String(), "<html"))
	})
}

func TestHTTPRunWeightOverride(t *testing.T) {
	srv := newTestHTTPServer(t)

	// An override set that breaks the weight-sum rule fails the run.
	rec := serveJSON(t, srv, http.MethodPost, "/api/backtest/runs", map[string]any{
		"rsi_weight": 0.9,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A consistent override runs to completion.
	rec = serveJSON(t, srv, http.MethodPost, "/api/backtest/runs", map[string]any{
		"rsi_weight":       0.5,
		"wavetrend_weight": 0.3,
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHTTPBadRequests(t *testing.T) {
	srv := newTestHTTPServer(t)

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/backtest/runs", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown run", func(t *testing.T) {
		for _, path := range []string{
			"/api/backtest/runs/nope",
			"/api/backtest/runs/nope/trades",
			"/api/backtest/runs/nope/metrics",
			"/api/backtest/runs/nope/chart",
		} {
			rec := serveJSON(t, srv, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
		}
	})
}
