package submission

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/explorer"
	"github.com/tphakala/plantclef-go/internal/submission"
)

type flags struct {
	output            string
	imageColumn       string
	predictionsColumn string
	save              bool
	workers           int
}

// Command creates the submission command, which aggregates tile predictions.
func Command(ctx *conf.Context) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "submission [predictions.csv]",
		Short: "Aggregate tile predictions into a submission",
		Long: `Group tile predictions by image and rank each image's species by how
often they were predicted. The submission CSV is printed to stdout unless
--save is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := ctx.Settings.Submission
			opts := explorer.SubmissionOptions{
				Input: args[0],
				Columns: submission.Columns{
					ImageID:     s.ImageColumn,
					Predictions: s.PredictionsColumn,
				},
				Workers:    s.Workers,
				Save:       f.save,
				OutputPath: s.OutputPath,
				Stdout:     cmd.OutOrStdout(),
			}
			if cmd.Flags().Changed("image-column") {
				opts.Columns.ImageID = f.imageColumn
			}
			if cmd.Flags().Changed("predictions-column") {
				opts.Columns.Predictions = f.predictionsColumn
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = f.workers
			}
			if f.output != "" {
				opts.OutputPath = f.output
			}

			_, err := explorer.Submission(cmd.Context(), opts)
			return err
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file for --save, overrides submission.outputpath")
	cmd.Flags().StringVar(&f.imageColumn, "image-column", "", "Column grouping tiles into images")
	cmd.Flags().StringVar(&f.predictionsColumn, "predictions-column", "", "Column holding the predicted species list")
	cmd.Flags().BoolVarP(&f.save, "save", "s", false, "Write the submission to the output file instead of stdout")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Parallel aggregation workers; 0 or 1 runs sequentially")

	return cmd
}
