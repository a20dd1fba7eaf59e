package main

import (
	"fmt"

	"github.com/Sternrassler/parldok-indexer/pkg/config"
	"github.com/Sternrassler/parldok-indexer/pkg/logging"
	"github.com/spf13/cobra"
)

// globalFlags are shared by all subcommands.
type globalFlags struct {
	configPath string
	logLevel   string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "parldok-indexer",
		Short:         "parldok-indexer harvests document metadata from the Hamburg parldok listing.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file.")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error). Overrides LOG_LEVEL.")
	root.PersistentFlags().BoolVar(&flags.pretty, "pretty", false, "Human-readable console logs. Overrides LOG_PRETTY.")

	root.AddCommand(newServeCmd(flags), newRunCmd(flags))
	return root
}

// loadConfig loads and validates the configuration and sets up logging.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty = flags.pretty
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}

	logging.Setup(cfg.LoggingConfig())
	return cfg, nil
}
