package frequency

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/explorer"
)

// Command creates the frequency command, which prints a frequency table.
func Command(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:       "frequency [species|genus|family]",
		Short:     "Print the label frequency table of a taxon",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"species", "genus", "family"},
		RunE: func(cmd *cobra.Command, args []string) error {
			taxon, err := dataset.ParseTaxon(args[0])
			if err != nil {
				return err
			}
			table, err := explorer.LoadDataset(ctx.Settings)
			if err != nil {
				return err
			}
			return explorer.WriteFrequencies(cmd.OutOrStdout(), table, taxon)
		},
	}
}
