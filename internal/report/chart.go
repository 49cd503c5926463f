package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// EquitySample is one plotted point of the equity curve.
type EquitySample struct {
	OpenTime int64   // Unix ms
	Equity   float64
	Drawdown float64 // fraction, <= 0
}

const (
	chartWidthPx  = 1400
	chartHeightPx = 420

	colorEquity   = "#3b82f6"
	colorDrawdown = "#f87171"
)

// WriteEquityChart renders the equity and drawdown curves as a standalone
// HTML page.
func WriteEquityChart(w io.Writer, title string, samples []EquitySample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no equity samples to plot")
	}

	xAxis := make([]string, len(samples))
	equity := make([]opts.LineData, len(samples))
	drawdown := make([]opts.LineData, len(samples))
	for i, s := range samples {
		xAxis[i] = time.UnixMilli(s.OpenTime).UTC().Format("01-02 15:04")
		equity[i] = opts.LineData{Value: s.Equity}
		drawdown[i] = opts.LineData{Value: s.Drawdown * 100}
	}

	equityLine := charts.NewLine()
	equityLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", chartHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: title + " equity"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	equityLine.SetXAxis(xAxis)
	equityLine.AddSeries("Equity", equity,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
	)

	ddLine := charts.NewLine()
	ddLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", chartHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: title + " drawdown %"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	ddLine.SetXAxis(xAxis)
	ddLine.AddSeries("Drawdown", drawdown,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorDrawdown, Width: 2}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.25)}),
	)

	page := components.NewPage()
	page.AddCharts(equityLine, ddLine)
	return page.Render(w)
}
