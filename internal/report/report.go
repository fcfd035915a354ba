// Package report renders processing results as an interactive HTML page and
// as static PNG plots.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/somnolab/actigraphy/internal/accel"
	"github.com/somnolab/actigraphy/internal/nonwear"
	"github.com/somnolab/actigraphy/internal/sleep"
)

// Data bundles everything one recording's report can show. Window and
// Nonwear are optional.
type Data struct {
	Title   string
	Epochs  *accel.EpochSummary
	Scores  *sleep.ScoreSeries
	Window  *sleep.Window
	Nonwear *nonwear.Result
}

// WriteHTML renders the full report page.
func WriteHTML(w io.Writer, d *Data) error {
	if d.Epochs == nil || d.Epochs.Len() == 0 {
		return fmt.Errorf("report %q has no epochs", d.Title)
	}

	page := components.NewPage()
	page.PageTitle = d.Title

	page.AddCharts(activityChart(d))
	if d.Scores != nil {
		page.AddCharts(sleepChart(d))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report %q: %w", d.Title, err)
	}
	return nil
}

// WriteHTMLFile renders the report page to a file.
func WriteHTMLFile(path string, d *Data) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	return WriteHTML(f, d)
}

// activityChart plots per-epoch magnitude counts with detected nonwear
// ranges shaded.
func activityChart(d *Data) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Activity", Subtitle: fmt.Sprintf("%g-second epochs", d.Epochs.EpochSeconds)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "epoch"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "counts"}),
	)

	labels := make([]int, d.Epochs.Len())
	values := make([]opts.LineData, d.Epochs.Len())
	for i := 0; i < d.Epochs.Len(); i++ {
		labels[i] = i
		values[i] = opts.LineData{Value: d.Epochs.Magnitude[i]}
	}
	line.SetXAxis(labels)
	line.AddSeries("magnitude", values,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	if d.Nonwear != nil && len(d.Nonwear.Ranges) > 0 {
		nwSeries := make([]opts.LineData, d.Epochs.Len())
		flags := nonwearPerEpoch(d)
		peak := 0.0
		for _, v := range d.Epochs.Magnitude {
			if v > peak {
				peak = v
			}
		}
		for i := range nwSeries {
			if flags[i] {
				nwSeries[i] = opts.LineData{Value: peak}
			} else {
				nwSeries[i] = opts.LineData{Value: 0}
			}
		}
		line.AddSeries("nonwear", nwSeries,
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.2)}))
	}
	return line
}

// sleepChart plots the per-epoch sleep score with the detected window
// boundaries marked.
func sleepChart(d *Data) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "250px"}),
		charts.WithTitleOpts(opts.Title{Title: "Sleep score", Subtitle: d.Scores.Algorithm}),
		charts.WithXAxisOpts(opts.XAxis{Name: "epoch"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "sleep", Max: 1.2}),
	)

	labels := make([]int, len(d.Scores.Scores))
	values := make([]opts.LineData, len(d.Scores.Scores))
	for i, s := range d.Scores.Scores {
		labels[i] = i
		values[i] = opts.LineData{Value: int(s)}
	}
	line.SetXAxis(labels)
	line.AddSeries("score", values,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	if d.Window != nil {
		line.SetSeriesOptions(charts.WithMarkLineNameXAxisItemOpts(
			opts.MarkLineNameXAxisItem{Name: "onset", XAxis: d.Window.OnsetIndex},
			opts.MarkLineNameXAxisItem{Name: "offset", XAxis: d.Window.OffsetIndex},
		))
	}
	return line
}

// nonwearPerEpoch maps the detector's unit grid onto the epoch grid.
func nonwearPerEpoch(d *Data) []bool {
	flags := make([]bool, d.Epochs.Len())
	if d.Nonwear == nil || d.Nonwear.UnitSeconds <= 0 {
		return flags
	}
	ratio := d.Nonwear.UnitSeconds / d.Epochs.EpochSeconds
	for _, r := range d.Nonwear.Ranges {
		start := int(float64(r[0]) * ratio)
		end := int(float64(r[1]+1) * ratio)
		for i := start; i < end && i < len(flags); i++ {
			if i >= 0 {
				flags[i] = true
			}
		}
	}
	return flags
}
