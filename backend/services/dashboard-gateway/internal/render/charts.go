package render

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"signaltracker/backend/services/dashboard-gateway/internal/kpi"
)

// ChartAssetsHost serves the echarts javascript for rendered pages.
const ChartAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// DashboardCharts renders the dashboard KPIs as one HTML page of charts.
func DashboardCharts(w io.Writer, d *kpi.Dashboard, subtitle string) error {
	page := components.NewPage()
	page.SetAssetsHost(ChartAssetsHost)
	page.SetPageTitle("SignalTracker dashboard")

	page.AddCharts(
		barChart("Monthly samples", subtitle, "samples", d.MonthlySampleCounts),
		barChart("Samples per operator", subtitle, "samples", d.OperatorWiseSamples),
		barChart("Network type distribution", subtitle, "samples", d.NetworkTypeDistribution),
		pieChart("Band distribution", subtitle, d.BandDistribution),
		barChart("Average RSRP per operator", subtitle, "dBm", d.AvgRSRPPerOperator),
		areaChart("Handset average", subtitle, d.HandsetDistribution),
	)
	return page.Render(w)
}

func initOpts() charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px", AssetsHost: ChartAssetsHost})
}

func names(points []kpi.Point) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Name
	}
	return out
}

func barChart(title, subtitle, series string, points []kpi.Point) *charts.Bar {
	data := make([]opts.BarData, len(points))
	for i, p := range points {
		data[i] = opts.BarData{Name: p.Name, Value: p.Value}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names(points)).
		AddSeries(series, data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func pieChart(title, subtitle string, points []kpi.Point) *charts.Pie {
	data := make([]opts.PieData, len(points))
	for i, p := range points {
		data[i] = opts.PieData{Name: p.Name, Value: p.Value}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("bands", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"35%", "70%"}}),
	)
	return pie
}

func areaChart(title, subtitle string, points []kpi.Point) *charts.Line {
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		data[i] = opts.LineData{Name: p.Name, Value: p.Value}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(names(points)).
		AddSeries("handsets", data,
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.3)}),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)
	return line
}
