package charts

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/tphakala/plantclef-go/internal/projection"
)

// Dark24 is the qualitative palette used for projection labels.
var Dark24 = []string{
	"#2E91E5", "#E15F99", "#1CA71C", "#FB0D0D", "#DA16FF", "#222A2A",
	"#B68100", "#750D86", "#EB663B", "#511CFB", "#00A08B", "#FB00D1",
	"#FC0080", "#B2828D", "#6C7C32", "#778AAE", "#862A16", "#A777F1",
	"#620042", "#1616A7", "#DA60CA", "#6C4516", "#0D2A63", "#AF0038",
}

// ProjectionTitle is the default scatter title.
const ProjectionTitle = "Embedding Projection (PCA)"

const scatterDotWidth = 4

// Projection renders points as a scatter plot with one series per label.
// Labels are coloured in first-appearance order.
func Projection(points []projection.Point, title string, opts Options) ([]byte, error) {
	if len(points) == 0 {
		return nil, emptyInput("projection")
	}
	opts = opts.withDefaults()

	type group struct {
		xs, ys []float64
	}
	var order []string
	groups := make(map[string]*group)
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		g, ok := groups[p.Label]
		if !ok {
			g = &group{}
			groups[p.Label] = g
			order = append(order, p.Label)
		}
		g.xs = append(g.xs, p.X)
		g.ys = append(g.ys, p.Y)
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	series := make([]chart.Series, 0, len(order))
	for i, label := range order {
		g := groups[label]
		c := color(Dark24[i%len(Dark24)])
		series = append(series, chart.ContinuousSeries{
			Name:    label,
			XValues: g.xs,
			YValues: g.ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    scatterDotWidth,
				DotColor:    c,
			},
		})
	}

	axisFormat := func(v any) string { return fmt.Sprintf("%.2f", v) }
	c := chart.Chart{
		Title:  title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:           "PC1",
			Range:          paddedRange(minX, maxX),
			ValueFormatter: axisFormat,
		},
		YAxis: chart.YAxis{
			Name:           "PC2",
			Range:          paddedRange(minY, maxY),
			ValueFormatter: axisFormat,
		},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.LegendLeft(&c)}

	return render("projection", c, opts.Format)
}

func paddedRange(lo, hi float64) *chart.ContinuousRange {
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
