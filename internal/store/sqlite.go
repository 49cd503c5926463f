package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"riptide/internal/backtest"
	"riptide/internal/risk"
)

// ResultStore persists runs, trades and equity curves in a single sqlite
// file. It implements backtest.Recorder.
type ResultStore struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates the database file (and parent directories) if needed.
func Open(path string) (*ResultStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			symbol      TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			status      TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			ended_at    INTEGER,
			error       TEXT,
			bars        INTEGER NOT NULL DEFAULT 0,
			net_profit  REAL,
			total_trades INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			run_id      TEXT NOT NULL,
			position_id INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			side        TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price  REAL NOT NULL,
			quantity    REAL NOT NULL,
			pnl         REAL NOT NULL,
			fee         REAL NOT NULL,
			entry_time  INTEGER NOT NULL,
			exit_time   INTEGER NOT NULL,
			exit_reason TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, exit_time);`,
		`CREATE TABLE IF NOT EXISTS equity (
			run_id    TEXT NOT NULL,
			open_time INTEGER NOT NULL,
			equity    REAL NOT NULL,
			price     REAL NOT NULL,
			drawdown  REAL NOT NULL,
			PRIMARY KEY (run_id, open_time)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func millisToTime(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Close releases the database handle.
func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// InsertRun records a newly started run.
func (s *ResultStore) InsertRun(run backtest.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO runs (id, symbol, timeframe, status, started_at, bars)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Timeframe, string(run.Status), run.StartedAt.UnixMilli(), run.Bars)
	return err
}

// FinishRun marks the run finished and persists its trades and equity curve
// in one transaction.
func (s *ResultStore) FinishRun(run backtest.Run, result *backtest.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE runs SET status = ?, ended_at = ?, net_profit = ?, total_trades = ?
		WHERE id = ?`,
		string(run.Status), run.EndedAt.UnixMilli(),
		result.Metrics.NetProfit, result.Metrics.TotalTrades, run.ID); err != nil {
		return err
	}

	tradeStmt, err := tx.Prepare(`INSERT INTO trades
		(run_id, position_id, symbol, side, entry_price, exit_price, quantity, pnl, fee, entry_time, exit_time, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer tradeStmt.Close()
	for _, tr := range result.Trades {
		if _, err := tradeStmt.Exec(run.ID, tr.PositionID, tr.Symbol, string(tr.Side),
			tr.EntryPrice, tr.ExitPrice, tr.Quantity, tr.PnL, tr.Fee,
			tr.EntryTime, tr.ExitTime, string(tr.ExitReason)); err != nil {
			return err
		}
	}

	eqStmt, err := tx.Prepare(`INSERT INTO equity (run_id, open_time, equity, price, drawdown)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eqStmt.Close()
	for _, p := range result.Equity {
		if _, err := eqStmt.Exec(run.ID, p.OpenTime, p.Equity, p.Price, p.Drawdown); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarkFailed stamps the run failed with its error message.
func (s *ResultStore) MarkFailed(runID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE runs SET status = ?, error = ? WHERE id = ?`,
		string(backtest.RunFailed), reason, runID)
	return err
}

// GetRun loads one run row.
func (s *ResultStore) GetRun(id string) (backtest.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run backtest.Run
	var status string
	var startedMs int64
	var endedMs sql.NullInt64
	var errMsg sql.NullString
	err := s.db.QueryRow(`SELECT id, symbol, timeframe, status, started_at, ended_at, error, bars
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Symbol, &run.Timeframe, &status, &startedMs, &endedMs, &errMsg, &run.Bars)
	if err != nil {
		return backtest.Run{}, err
	}
	run.Status = backtest.RunStatus(status)
	run.StartedAt = millisToTime(startedMs)
	if endedMs.Valid {
		run.EndedAt = millisToTime(endedMs.Int64)
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first.
func (s *ResultStore) ListRuns(limit int) ([]backtest.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, symbol, timeframe, status, started_at, ended_at, error, bars
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.Run
	for rows.Next() {
		var run backtest.Run
		var status string
		var startedMs int64
		var endedMs sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Symbol, &run.Timeframe, &status, &startedMs, &endedMs, &errMsg, &run.Bars); err != nil {
			return nil, err
		}
		run.Status = backtest.RunStatus(status)
		run.StartedAt = millisToTime(startedMs)
		if endedMs.Valid {
			run.EndedAt = millisToTime(endedMs.Int64)
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// TradesForRun returns the run's ledger in exit order.
func (s *ResultStore) TradesForRun(runID string) ([]risk.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT position_id, symbol, side, entry_price, exit_price, quantity, pnl, fee, entry_time, exit_time, exit_reason
		FROM trades WHERE run_id = ? ORDER BY exit_time, position_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []risk.TradeRecord
	for rows.Next() {
		var tr risk.TradeRecord
		var side, reason string
		if err := rows.Scan(&tr.PositionID, &tr.Symbol, &side, &tr.EntryPrice, &tr.ExitPrice,
			&tr.Quantity, &tr.PnL, &tr.Fee, &tr.EntryTime, &tr.ExitTime, &reason); err != nil {
			return nil, err
		}
		tr.Side = risk.Side(side)
		tr.ExitReason = risk.ExitReason(reason)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// EquityForRun returns the stored equity curve in time order.
func (s *ResultStore) EquityForRun(runID string) ([]backtest.EquityPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT open_time, equity, price, drawdown
		FROM equity WHERE run_id = ? ORDER BY open_time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.EquityPoint
	for rows.Next() {
		var p backtest.EquityPoint
		if err := rows.Scan(&p.OpenTime, &p.Equity, &p.Price, &p.Drawdown); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
