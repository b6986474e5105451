package charts

import (
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/tphakala/plantclef-go/internal/dataset"
)

const (
	DefaultLineColor = "#533e2d"
	balancedColor    = "#808080"
	balancedName     = "Perfect Balanced Distribution"
)

// CumulativeTitle returns the chart title for taxon.
func CumulativeTitle(taxon dataset.Taxon) string {
	return fmt.Sprintf("Cumulative Percentage of %s Frequency", taxon.Title())
}

// Cumulative plots the cumulative percentage of rows against rank, together
// with the curve a perfectly balanced dataset would follow. rows must be in
// ascending count order as returned by Table.Frequencies.
func Cumulative(rows []dataset.FrequencyRow, taxon dataset.Taxon, opts Options) ([]byte, error) {
	if len(rows) == 0 {
		return nil, emptyInput("cumulative")
	}
	opts = opts.withDefaults()

	xs := make([]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = float64(r.Index)
		ys[i] = r.CumulativePercentage
	}

	maxX := max(float64(len(rows)-1), 1)

	c := chart.Chart{
		Title:  CumulativeTitle(taxon),
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:           taxon.Title() + " rank",
			Range:          &chart.ContinuousRange{Min: 0, Max: maxX},
			ValueFormatter: func(v any) string { return fmt.Sprintf("%.0f", v) },
		},
		YAxis: chart.YAxis{
			Name:           "Cumulative percentage",
			Range:          &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: func(v any) string { return fmt.Sprintf("%.0f%%", v) },
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Cumulative Percentage",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: color(opts.LineColor),
					StrokeWidth: 2,
				},
			},
			chart.ContinuousSeries{
				Name:    balancedName,
				XValues: xs,
				YValues: dataset.BalancedReference(len(rows)),
				Style: chart.Style{
					StrokeColor:     color(balancedColor),
					StrokeWidth:     1.5,
					StrokeDashArray: []float64{6, 4},
				},
			},
		},
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}

	return render("cumulative", c, opts.Format)
}
