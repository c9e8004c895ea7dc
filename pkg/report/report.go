// Package report renders check-up results as a standalone HTML page.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/kilianp07/cellage/core/experiment"
	"github.com/kilianp07/cellage/core/results"
)

// Options tunes the rendered page.
type Options struct {
	Title string
	// Nominal scales the capacity axis to state of health when positive.
	Nominal float64
}

var mechanisms = []struct {
	name  string
	value func(results.Record) float64
}{
	{"SEI", func(r results.Record) float64 { return r.Aging.QSEI }},
	{"cyclic", func(r results.Record) float64 { return r.Aging.QCyclic }},
	{"cyclic low SoC", func(r results.Record) float64 { return r.Aging.QCyclicLow }},
	{"plating", func(r results.Record) float64 { return r.Aging.QPlating }},
}

// Render writes one capacity fade chart per age type followed by the loss
// breakdown of the last check-up of every condition.
func Render(w io.Writer, recs []results.Record, o Options) error {
	if o.Title == "" {
		o.Title = "Cell aging"
	}
	runs := group(recs)
	page := components.NewPage()
	page.PageTitle = o.Title
	for _, at := range experiment.AgeTypes {
		var sel []run
		for _, r := range runs {
			if r.ageType == string(at) {
				sel = append(sel, r)
			}
		}
		if len(sel) == 0 {
			continue
		}
		page.AddCharts(fadeChart(string(at), sel, o))
	}
	if len(runs) > 0 {
		page.AddCharts(lossChart(runs))
	}
	return page.Render(w)
}

// Save renders the page into path.
func Save(path string, recs []results.Record, o Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Render(f, recs, o); err != nil {
		f.Close()
		return fmt.Errorf("report %s: %w", path, err)
	}
	return f.Close()
}

type run struct {
	id        string
	condition string
	ageType   string
	recs      []results.Record
}

// group splits records by run, keeping runs in condition order and
// check-ups in index order.
func group(recs []results.Record) []run {
	idx := map[string]int{}
	var out []run
	for _, r := range recs {
		i, ok := idx[r.RunID]
		if !ok {
			i = len(out)
			idx[r.RunID] = i
			out = append(out, run{id: r.RunID, condition: r.Condition, ageType: r.AgeType})
		}
		out[i].recs = append(out[i].recs, r)
	}
	for _, r := range out {
		sort.SliceStable(r.recs, func(a, b int) bool { return r.recs[a].Index < r.recs[b].Index })
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].condition < out[b].condition })
	return out
}

func fadeChart(ageType string, runs []run, o Options) *charts.Line {
	yName := "capacity (Ah)"
	if o.Nominal > 0 {
		yName = "state of health"
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "1100px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: ageType + " aging"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Type: "scroll", Orient: "vertical", Right: "10", Top: "40", Bottom: "20"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "days", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Scale: opts.Bool(true)}),
		charts.WithGridOpts(opts.Grid{Right: "30%"}),
	)
	for _, r := range runs {
		start := r.recs[0].Time
		data := make([]opts.LineData, len(r.recs))
		for i, rec := range r.recs {
			y := rec.CapRemaining
			if o.Nominal > 0 {
				y /= o.Nominal
			}
			data[i] = opts.LineData{Value: []float64{days(rec.Time.Sub(start)), y}}
		}
		line.AddSeries(r.condition, data)
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	return line
}

func lossChart(runs []run) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Capacity loss", Subtitle: "by mechanism at the last check-up"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 60, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "loss (%)"}),
		charts.WithGridOpts(opts.Grid{Bottom: "35%"}),
	)
	names := make([]string, len(runs))
	for i, r := range runs {
		names[i] = r.condition
	}
	bar.SetXAxis(names)
	for _, m := range mechanisms {
		data := make([]opts.BarData, len(runs))
		for i, r := range runs {
			data[i] = opts.BarData{Value: 100 * m.value(r.recs[len(r.recs)-1])}
		}
		bar.AddSeries(m.name, data, charts.WithBarChartOpts(opts.BarChart{Stack: "loss"}))
	}
	return bar
}

func days(d time.Duration) float64 { return d.Hours() / 24 }
