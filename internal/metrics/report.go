package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"riptide/internal/risk"
)

// Report renders the metric set as the fixed-width text block printed at the
// end of a run.
func (m Metrics) Report() string {
	var b strings.Builder
	line := strings.Repeat("=", 52)

	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "%s\n", centered("PERFORMANCE SUMMARY", 52))
	fmt.Fprintf(&b, "%s\n", line)

	row := func(label string, value string) {
		fmt.Fprintf(&b, "  %-28s %20s\n", label, value)
	}
	pct := func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }
	cur := func(v float64) string { return fmt.Sprintf("%.2f", v) }

	row("Initial Capital", cur(m.InitialCapital))
	row("Final Equity", cur(m.FinalEquity))
	row("Net Profit", cur(m.NetProfit))
	row("Total Return", pct(m.TotalReturnPct))
	row("Annualized Return", pct(m.AnnualizedPct))
	b.WriteString("\n")

	row("Total Trades", fmt.Sprintf("%d", m.TotalTrades))
	row("Win Rate", pct(m.WinRate))
	row("Profit Factor", formatRatio(m.ProfitFactor))
	row("Expectancy", cur(m.Expectancy))
	row("Average Win", cur(m.AverageWin))
	row("Average Loss", cur(m.AverageLoss))
	row("Largest Win", cur(m.LargestWin))
	row("Largest Loss", cur(m.LargestLoss))
	row("Max Consecutive Wins", fmt.Sprintf("%d", m.MaxConsecutiveWins))
	row("Max Consecutive Losses", fmt.Sprintf("%d", m.MaxConsecutiveLosses))
	row("Total Fees", cur(m.TotalFees))
	b.WriteString("\n")

	row("Sharpe Ratio", fmt.Sprintf("%.3f", m.SharpeRatio))
	row("Sortino Ratio", fmt.Sprintf("%.3f", m.SortinoRatio))
	row("Max Drawdown", pct(m.MaxDrawdown))
	row("Max Drawdown Value", cur(m.MaxDrawdownValue))
	row("Max Drawdown Duration", fmt.Sprintf("%d bars", m.MaxDrawdownDuration))
	row("Calmar Ratio", formatRatio(m.CalmarRatio))
	row("Recovery Factor", formatRatio(m.RecoveryFactor))

	if len(m.ExitBreakdown) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %s\n", "Exits by reason:")
		reasons := make([]string, 0, len(m.ExitBreakdown))
		for r := range m.ExitBreakdown {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(&b, "    %-26s %20d\n", r, m.ExitBreakdown[risk.ExitReason(r)])
		}
	}

	fmt.Fprintf(&b, "%s\n", line)
	return b.String()
}

// WriteCSV emits the metrics as a two-column name,value table.
func (m Metrics) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"metric", "value"},
		{"initial_capital", fmt.Sprintf("%.8f", m.InitialCapital)},
		{"final_equity", fmt.Sprintf("%.8f", m.FinalEquity)},
		{"net_profit", fmt.Sprintf("%.8f", m.NetProfit)},
		{"total_return_pct", fmt.Sprintf("%.8f", m.TotalReturnPct)},
		{"annualized_pct", fmt.Sprintf("%.8f", m.AnnualizedPct)},
		{"total_trades", fmt.Sprintf("%d", m.TotalTrades)},
		{"winning_trades", fmt.Sprintf("%d", m.WinningTrades)},
		{"losing_trades", fmt.Sprintf("%d", m.LosingTrades)},
		{"win_rate", fmt.Sprintf("%.8f", m.WinRate)},
		{"gross_profit", fmt.Sprintf("%.8f", m.GrossProfit)},
		{"gross_loss", fmt.Sprintf("%.8f", m.GrossLoss)},
		{"total_fees", fmt.Sprintf("%.8f", m.TotalFees)},
		{"profit_factor", formatRatio(m.ProfitFactor)},
		{"expectancy", fmt.Sprintf("%.8f", m.Expectancy)},
		{"average_win", fmt.Sprintf("%.8f", m.AverageWin)},
		{"average_loss", fmt.Sprintf("%.8f", m.AverageLoss)},
		{"largest_win", fmt.Sprintf("%.8f", m.LargestWin)},
		{"largest_loss", fmt.Sprintf("%.8f", m.LargestLoss)},
		{"max_consecutive_wins", fmt.Sprintf("%d", m.MaxConsecutiveWins)},
		{"max_consecutive_losses", fmt.Sprintf("%d", m.MaxConsecutiveLosses)},
		{"sharpe_ratio", fmt.Sprintf("%.8f", m.SharpeRatio)},
		{"sortino_ratio", fmt.Sprintf("%.8f", m.SortinoRatio)},
		{"max_drawdown", fmt.Sprintf("%.8f", m.MaxDrawdown)},
		{"max_drawdown_value", fmt.Sprintf("%.8f", m.MaxDrawdownValue)},
		{"max_drawdown_duration", fmt.Sprintf("%d", m.MaxDrawdownDuration)},
		{"calmar_ratio", formatRatio(m.CalmarRatio)},
		{"recovery_factor", formatRatio(m.RecoveryFactor)},
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.3f", v)
}

func centered(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
