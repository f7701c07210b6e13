package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth   = "1200px"
	priceHeight  = "540px"
	panelHeight  = "180px"
	rsiUpper     = 70.0
	rsiLower     = 30.0
	dateLayout   = "2006-01-02"
	missingValue = "-" // echarts gap marker
)

// RenderCharts writes one HTML page with a price, volume and RSI panel for
// every stock that has chart data.
func RenderCharts(w io.Writer, rep *Report) error {
	page := components.NewPage().SetPageTitle("Technical Analysis")
	n := 0
	for _, s := range rep.Stocks {
		if s.Chart == nil || s.Chart.Len() == 0 {
			continue
		}
		price, volume, rsi := StockCharts(s)
		page.AddCharts(price, volume, rsi)
		n++
	}
	if n == 0 {
		return fmt.Errorf("report %s: no chart data", rep.ID)
	}
	return page.Render(w)
}

// StockCharts builds the three panels for one stock: candles with SMA and
// EMA overlays, volume bars, and RSI bars highlighted outside 30-70.
func StockCharts(s StockResult) (*charts.Kline, *charts.Bar, *charts.Bar) {
	series := s.Chart
	name := strings.SplitN(s.Ticker, ".", 2)[0]
	dates := make([]string, series.Len())
	candles := make([]opts.KlineData, series.Len())
	volumes := make([]opts.BarData, series.Len())
	rsi := make([]opts.BarData, series.Len())
	for i, b := range series.Bars {
		dates[i] = b.TS.Format(dateLayout)
		candles[i] = opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}}
		volumes[i] = opts.BarData{Value: b.Volume}
		color := "grey"
		if v := series.RSI[i]; v > rsiUpper || v < rsiLower {
			color = "red"
		}
		rsi[i] = opts.BarData{Value: chartValue(series.RSI[i]), ItemStyle: &opts.ItemStyle{Color: color}}
	}

	price := charts.NewKLine()
	price.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: priceHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Technical Analysis for " + name,
			Subtitle: fmt.Sprintf("Current Price: ₹%.2f | Recommendation: %s", s.LatestPrice, s.Recommendation),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price", Min: "dataMin", Max: "dataMax"}),
	)
	price.SetXAxis(dates).AddSeries("Price", candles,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "green", Color0: "red", BorderColor: "green", BorderColor0: "red"}))

	overlay := charts.NewLine()
	overlay.SetXAxis(dates).
		AddSeries("SMA3", lineData(series.SMA), charts.WithLineStyleOpts(opts.LineStyle{Color: "blue", Width: 2})).
		AddSeries("EMA9", lineData(series.EMA), charts.WithLineStyleOpts(opts.LineStyle{Color: "orange", Width: 2}))
	price.Overlap(overlay)

	volume := charts.NewBar()
	volume.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: panelHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Volume"}),
	)
	volume.SetXAxis(dates).AddSeries("Volume", volumes,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "purple"}))

	rsiChart := charts.NewBar()
	rsiChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: panelHeight}),
		charts.WithTitleOpts(opts.Title{Title: "RSI"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "RSI", Min: 0, Max: 100}),
	)
	rsiChart.SetXAxis(dates).AddSeries("RSI", rsi,
		charts.WithMarkLineNameYAxisItemOpts(
			opts.MarkLineNameYAxisItem{Name: "overbought", YAxis: rsiUpper},
			opts.MarkLineNameYAxisItem{Name: "oversold", YAxis: rsiLower},
		),
		charts.WithMarkLineStyleOpts(opts.MarkLineStyle{LineStyle: &opts.LineStyle{Type: "dashed", Color: "red"}}),
	)
	return price, volume, rsiChart
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: chartValue(v)}
	}
	return out
}

// chartValue keeps NaN out of the JSON payload.
func chartValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missingValue
	}
	return v
}
