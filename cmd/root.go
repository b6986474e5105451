package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/plantclef-go/cmd/chart"
	"github.com/tphakala/plantclef-go/cmd/config"
	"github.com/tphakala/plantclef-go/cmd/frequency"
	"github.com/tphakala/plantclef-go/cmd/serve"
	"github.com/tphakala/plantclef-go/cmd/submission"
	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *conf.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "plantclef",
		Short:         "PlantCLEF dataset explorer and submission tool",
		Version:       ctx.Build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigPath, "config", "c", "", "Path to config.yaml (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&ctx.Debug, "debug", "d", false, "Enable debug output")

	rootCmd.AddCommand(
		serve.Command(ctx),
		submission.Command(ctx),
		frequency.Command(ctx),
		chart.Command(ctx),
		config.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(ctx)
	}

	return rootCmd
}

// initialize loads the settings and sets up the global logger before any
// subcommand runs.
func initialize(ctx *conf.Context) error {
	settings, err := conf.Load(ctx.ConfigPath)
	if err != nil {
		return err
	}
	if ctx.Debug {
		settings.Main.Debug = true
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(central)

	ctx.Settings = settings
	return nil
}
