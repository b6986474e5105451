package charts

import (
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/tphakala/plantclef-go/internal/dataset"
)

// OrganPalette colours pie slices in order, wrapping when there are more organs.
var OrganPalette = []string{
	"#242331", "#533e2d", "#a27035", "#b88b4a", "#ddca7d", "#735751", "#c6a677",
}

// OrganTitle returns the pie title for species, or for the whole dataset when
// species is empty.
func OrganTitle(species string) string {
	if species == "" {
		return "Distribution of Plant Organs"
	}
	return "Distribution of Plant Organs for " + species
}

// OrganPie renders counts as a pie chart, one slice per organ.
func OrganPie(counts []dataset.OrganCount, title string, opts Options) ([]byte, error) {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		return nil, emptyInput("organ")
	}
	opts = opts.withDefaults()

	values := make([]chart.Value, 0, len(counts))
	for i, c := range counts {
		if c.Count == 0 {
			continue
		}
		fill := color(OrganPalette[i%len(OrganPalette)])
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", c.Organ, float64(c.Count)/float64(total)*100),
			Value: float64(c.Count),
			Style: chart.Style{
				FillColor:   fill,
				StrokeColor: chart.ColorWhite,
				FontColor:   chart.ColorWhite,
			},
		})
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  opts.Height,
		Height: opts.Height,
		Values: values,
	}
	return render("organ", pie, opts.Format)
}
