package config

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/plantclef-go/internal/conf"
)

// Command creates the config command, which prints configuration as YAML.
func Command(ctx *conf.Context) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if defaults {
				_, err := cmd.OutOrStdout().Write(conf.DefaultConfigYAML())
				return err
			}
			data, err := conf.MarshalYAML(ctx.Settings)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print the commented default configuration instead")

	return cmd
}
