package explorer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/tphakala/plantclef-go/internal/charts"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
	"github.com/tphakala/plantclef-go/internal/projection"
	"github.com/tphakala/plantclef-go/internal/submission"
)

// SubmissionOptions controls a command line aggregation run.
type SubmissionOptions struct {
	Input   string
	Columns submission.Columns
	Workers int

	// Save writes the result to OutputPath instead of Stdout
	Save       bool
	OutputPath string
	Stdout     io.Writer
}

// Submission aggregates the tile predictions in opts.Input into a submission.
func Submission(ctx context.Context, opts SubmissionOptions) ([]submission.Record, error) {
	if err := opts.Columns.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(opts.Input)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(opts.Input, 0).
			Build()
	}
	defer f.Close()

	preds, err := submission.ReadTilePredictions(f, opts.Columns)
	if err != nil {
		return nil, err
	}
	records, err := submission.AggregateConcurrent(ctx, preds, opts.Workers)
	if err != nil {
		return nil, err
	}

	if opts.Save {
		if opts.OutputPath == "" {
			return nil, errors.ValidationError("an output path is required to save the submission")
		}
		if err := submission.SaveCSV(opts.OutputPath, records); err != nil {
			return nil, err
		}
		GetLogger().Info("submission saved",
			logger.String("path", opts.OutputPath),
			logger.Int("tiles", len(preds)),
			logger.Int("quadrats", len(records)))
		return records, nil
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	return records, submission.WriteCSV(out, records)
}

// WriteFrequencies prints the frequency table of taxon, highest count first.
func WriteFrequencies(w io.Writer, table *dataset.Table, taxon dataset.Taxon) error {
	rows, err := table.Frequencies(taxon)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\tCount\tPercentage\tCumulative\t\n", taxon.Title())
	for _, r := range dataset.ByCountDescending(rows) {
		fmt.Fprintf(tw, "%s\t%d\t%.2f%%\t%.2f%%\t\n", r.Label, r.Count, r.IndividualPercentage, r.CumulativePercentage)
	}
	if err := tw.Flush(); err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).Build()
	}
	return nil
}

// Chart kinds accepted by RenderChart.
const (
	ChartCumulative = "cumulative"
	ChartOrgans     = "organs"
	ChartProjection = "projection"
)

// ChartKinds lists the renderable chart kinds.
var ChartKinds = []string{ChartCumulative, ChartOrgans, ChartProjection}

// ChartRequest describes one chart to render.
type ChartRequest struct {
	Kind    string
	Taxon   dataset.Taxon
	Species string
	Options charts.Options
}

// RenderChart renders req from the loaded data. points may be nil unless a
// projection chart is requested.
func RenderChart(req ChartRequest, table *dataset.Table, points []projection.Point) ([]byte, error) {
	switch req.Kind {
	case ChartCumulative:
		taxon := req.Taxon
		if taxon == "" {
			taxon = dataset.TaxonGenus
		}
		rows, err := table.Frequencies(taxon)
		if err != nil {
			return nil, err
		}
		return charts.Cumulative(rows, taxon, req.Options)
	case ChartOrgans:
		if req.Species != "" && !table.HasSpecies(req.Species) {
			return nil, errors.NotFound("species %q not found", req.Species)
		}
		return charts.OrganPie(table.OrganDistribution(req.Species), charts.OrganTitle(req.Species), req.Options)
	case ChartProjection:
		if len(points) == 0 {
			return nil, errors.ValidationError("the projection chart requires embeddings.path to be configured")
		}
		return charts.Projection(points, charts.ProjectionTitle, req.Options)
	}
	return nil, errors.Newf("unknown chart %q, expected one of cumulative, organs, projection", req.Kind).
		Category(errors.CategoryValidation).
		Build()
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).Category(errors.CategoryFileIO).FileContext(dir, 0).Build()
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).FileContext(path, int64(len(data))).Build()
	}
	return nil
}
