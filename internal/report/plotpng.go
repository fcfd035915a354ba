package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/somnolab/actigraphy/internal/accel"
)

// SaveActivityPNG writes a static line plot of per-epoch magnitude counts,
// for environments where the HTML report is inconvenient.
func SaveActivityPNG(path string, epochs *accel.EpochSummary) error {
	if epochs == nil || epochs.Len() == 0 {
		return fmt.Errorf("no epochs to plot")
	}

	p := plot.New()
	p.Title.Text = "Activity counts"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "counts"

	pts := make(plotter.XYs, epochs.Len())
	for i := 0; i < epochs.Len(); i++ {
		pts[i] = plotter.XY{X: float64(i), Y: epochs.Magnitude[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build activity line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(14*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save activity plot %s: %w", path, err)
	}
	return nil
}

// SaveMetricPNG writes a static line plot of a metric series.
func SaveMetricPNG(path string, series *accel.MetricSeries) error {
	if series == nil || len(series.Values) == 0 {
		return fmt.Errorf("no metric values to plot")
	}

	p := plot.New()
	p.Title.Text = series.Name
	p.X.Label.Text = "sample"
	p.Y.Label.Text = series.Name

	pts := make(plotter.XYs, len(series.Values))
	for i, v := range series.Values {
		x := float64(i)
		if series.Timestamps != nil {
			x = series.Timestamps[i]
			p.X.Label.Text = "time (s)"
		}
		pts[i] = plotter.XY{X: x, Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build metric line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(14*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save metric plot %s: %w", path, err)
	}
	return nil
}
