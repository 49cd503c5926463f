package metrics

import (
	"math"

	"riptide/internal/risk"
)

// periodsPerYear annualizes daily equity points.
const periodsPerYear = 252

// Metrics is the full performance summary of one run.
type Metrics struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`
	NetProfit      float64 `json:"net_profit"`
	TotalReturnPct float64 `json:"total_return_pct"`
	AnnualizedPct  float64 `json:"annualized_pct"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // positive magnitude
	TotalFees    float64 `json:"total_fees"`
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`

	AverageWin  float64 `json:"average_win"`
	AverageLoss float64 `json:"average_loss"` // negative
	LargestWin  float64 `json:"largest_win"`
	LargestLoss float64 `json:"largest_loss"` // negative

	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`

	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`

	MaxDrawdown         float64 `json:"max_drawdown"` // fraction, <= 0
	MaxDrawdownValue    float64 `json:"max_drawdown_value"`
	MaxDrawdownDuration int     `json:"max_drawdown_duration"` // equity points

	CalmarRatio    float64 `json:"calmar_ratio"`
	RecoveryFactor float64 `json:"recovery_factor"`

	ExitBreakdown map[risk.ExitReason]int `json:"exit_breakdown"`
}

// Calculate computes the metric set from the equity curve and the trade
// ledger. Equity values are per-bar snapshots (the first point already
// reflects the first processed bar); profit is measured against the
// initialCapital passed in. Trades carry gross PnL with fees tracked
// separately, so trade outcomes here are evaluated net.
func Calculate(equity []float64, trades []risk.TradeRecord, initialCapital, riskFreeRate float64) Metrics {
	m := Metrics{
		InitialCapital: initialCapital,
		ExitBreakdown:  make(map[risk.ExitReason]int),
	}
	if len(equity) > 0 {
		m.FinalEquity = equity[len(equity)-1]
	} else {
		m.FinalEquity = initialCapital
	}
	m.NetProfit = m.FinalEquity - initialCapital
	if initialCapital > 0 {
		m.TotalReturnPct = m.NetProfit / initialCapital
	}

	m.tradeStats(trades)
	m.drawdownStats(equity)
	m.ratioStats(equity, riskFreeRate)

	if m.MaxDrawdown < 0 {
		m.CalmarRatio = m.TotalReturnPct / -m.MaxDrawdown
	}
	if m.MaxDrawdownValue > 0 {
		m.RecoveryFactor = m.NetProfit / m.MaxDrawdownValue
	}
	return m
}

func (m *Metrics) tradeStats(trades []risk.TradeRecord) {
	m.TotalTrades = len(trades)
	consecWins, consecLosses := 0, 0
	for _, tr := range trades {
		net := tr.PnL - tr.Fee
		m.TotalFees += tr.Fee
		m.ExitBreakdown[tr.ExitReason]++

		if net > 0 {
			m.WinningTrades++
			m.GrossProfit += net
			if net > m.LargestWin {
				m.LargestWin = net
			}
			consecWins++
			consecLosses = 0
			if consecWins > m.MaxConsecutiveWins {
				m.MaxConsecutiveWins = consecWins
			}
		} else if net < 0 {
			m.LosingTrades++
			m.GrossLoss += -net
			if net < m.LargestLoss {
				m.LargestLoss = net
			}
			consecLosses++
			consecWins = 0
			if consecLosses > m.MaxConsecutiveLosses {
				m.MaxConsecutiveLosses = consecLosses
			}
		} else {
			consecWins, consecLosses = 0, 0
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AverageWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = -m.GrossLoss / float64(m.LosingTrades)
	}

	// Profit factor edge cases: no losses with some profit is infinite,
	// nothing on either side is zero.
	switch {
	case m.GrossLoss > 0:
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
	case m.GrossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	default:
		m.ProfitFactor = 0
	}

	m.Expectancy = m.WinRate*m.AverageWin + (1-m.WinRate)*m.AverageLoss
	if m.TotalTrades == 0 {
		m.Expectancy = 0
	}
}

func (m *Metrics) drawdownStats(equity []float64) {
	peak := math.Inf(-1)
	ddStart := 0
	for i, eq := range equity {
		if eq >= peak {
			peak = eq
			ddStart = i
			continue
		}
		if peak > 0 {
			dd := (eq - peak) / peak
			if dd < m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
		if drop := peak - eq; drop > m.MaxDrawdownValue {
			m.MaxDrawdownValue = drop
		}
		if dur := i - ddStart; dur > m.MaxDrawdownDuration {
			m.MaxDrawdownDuration = dur
		}
	}
}

func (m *Metrics) ratioStats(equity []float64, riskFreeRate float64) {
	if len(equity) < 2 {
		return
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] != 0 {
			returns = append(returns, equity[i]/equity[i-1]-1)
		}
	}
	if len(returns) == 0 {
		return
	}

	perPeriodRF := riskFreeRate / periodsPerYear
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance, downside := 0.0, 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
		if excess := r - perPeriodRF; excess < 0 {
			downside += excess * excess
		}
	}
	std := math.Sqrt(variance / float64(len(returns)))
	downsideDev := math.Sqrt(downside / float64(len(returns)))

	if std > 0 {
		m.SharpeRatio = (mean - perPeriodRF) / std * math.Sqrt(periodsPerYear)
	}
	if downsideDev > 0 {
		m.SortinoRatio = (mean - perPeriodRF) / downsideDev * math.Sqrt(periodsPerYear)
	}

	years := float64(len(returns)) / periodsPerYear
	if years > 0 && m.InitialCapital > 0 && m.FinalEquity > 0 {
		m.AnnualizedPct = math.Pow(m.FinalEquity/m.InitialCapital, 1/years) - 1
	}
}
