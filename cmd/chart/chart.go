package chart

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/plantclef-go/internal/charts"
	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/explorer"
	"github.com/tphakala/plantclef-go/internal/logger"
	"github.com/tphakala/plantclef-go/internal/projection"
)

type flags struct {
	taxon   string
	species string
	format  string
	output  string
	width   int
	height  int
}

// Command creates the chart command, which renders one chart to a file.
func Command(ctx *conf.Context) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:       "chart [cumulative|organs|projection]",
		Short:     "Render a dashboard chart to a file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: explorer.ChartKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := charts.ParseFormat(f.format)
			if err != nil {
				return err
			}
			req := explorer.ChartRequest{
				Kind:    args[0],
				Species: f.species,
				Options: charts.Options{Width: f.width, Height: f.height, Format: format},
			}
			if req.Kind == explorer.ChartCumulative {
				if req.Taxon, err = dataset.ParseTaxon(f.taxon); err != nil {
					return err
				}
			}

			table, err := explorer.LoadDataset(ctx.Settings)
			if err != nil {
				return err
			}
			var points []projection.Point
			if req.Kind == explorer.ChartProjection {
				if points, err = explorer.LoadProjection(ctx.Settings); err != nil {
					return err
				}
			}

			data, err := explorer.RenderChart(req, table, points)
			if err != nil {
				return err
			}

			output := f.output
			if output == "" {
				output = fmt.Sprintf("%s.%s", req.Kind, format)
			}
			if err := explorer.WriteFile(output, data); err != nil {
				return err
			}
			explorer.GetLogger().Info("chart written",
				logger.String("chart", req.Kind),
				logger.String("path", output),
				logger.Int("bytes", len(data)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.taxon, "taxon", "t", string(dataset.TaxonGenus), "Taxon of the cumulative chart: species, genus or family")
	cmd.Flags().StringVar(&f.species, "species", "", "Species of the organ chart; empty for the whole dataset")
	cmd.Flags().StringVarP(&f.format, "format", "f", string(charts.FormatPNG), "Output format: png or svg")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default <chart>.<format>)")
	cmd.Flags().IntVar(&f.width, "width", 0, "Chart width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 0, "Chart height in pixels")

	return cmd
}
