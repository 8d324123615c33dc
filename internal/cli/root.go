package cli

import (
	"fmt"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	cfgFile  string
	logLevel string
	logFile  string
}

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "logchurn",
		Short: "A correctness oracle for log shipping pipelines",
		Long: `logchurn creates, appends to, rotates, truncates and deletes log files at
random while recording every line it writes. A pipeline under test tails the
files and reports each line back over TCP; logchurn checks every report
against the recorded lines in per-file FIFO order.

A lost, duplicated, reordered or corrupted line stops the run with exit
code 2. Failures of the harness itself exit with code 1.

Hot-reload: When a config file is specified, changes to the action weights
are applied without a restart.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default: ./logchurn.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file, rotated by size")

	rootCmd.AddCommand(
		NewRunCmd(opts),
		NewListenCmd(opts),
		NewEmitCmd(opts),
		NewStatsdCmd(opts),
		NewValidateCmd(opts),
		NewVersionCmd(),
	)

	return rootCmd
}

// loadConfig loads the config file, applies the persistent flags and the
// command's own overrides, and validates the result.
func loadConfig(cmd *cobra.Command, opts *globalOptions, overrides func(*cobra.Command, *config.Config)) (*config.Config, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	applyGlobalOverrides(cmd, opts, cfg)
	if overrides != nil {
		overrides(cmd, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyGlobalOverrides(cmd *cobra.Command, opts *globalOptions, cfg *config.Config) {
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = opts.logFile
	}
}

// setup loads the config and builds the logger for a long-running command.
func setup(cmd *cobra.Command, opts *globalOptions, overrides func(*cobra.Command, *config.Config)) (*config.Config, logger.ILogger, func(), error) {
	cfg, err := loadConfig(cmd, opts, overrides)
	if err != nil {
		return nil, nil, nil, err
	}
	log, closeLog := SetupLogging(cfg.LogLevel, cfg.LogFile)
	return cfg, log, closeLog, nil
}
