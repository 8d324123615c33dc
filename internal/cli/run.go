package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/harness"
)

// NewRunCmd creates the run command.
func NewRunCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Churn log files and verify the lines reported back",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd, opts)
		},
	}

	// Churn flags
	cmd.Flags().String("root", "", "directory the churned files are created under")
	cmd.Flags().Int("workers", 0, "number of churn workers")
	cmd.Flags().Int("files-per-worker", 0, "file slots per worker")
	cmd.Flags().Int("max-line-length", 0, "maximum length of a written line")
	cmd.Flags().Int("iterations", 0, "stop each worker after this many steps (0 runs until interrupted)")

	// Listener flags
	cmd.Flags().String("address", "", "address the listener binds")
	cmd.Flags().Bool("verify", true, "verify reported lines (false only logs them)")

	// Reporter flags
	cmd.Flags().String("stdout-format", "", "stdout report format (text, json)")

	// Hot-reload flag
	cmd.Flags().Bool("hot-reload", true, "enable hot-reload of config file")

	return cmd
}

func runHarness(cmd *cobra.Command, opts *globalOptions) error {
	cfg, log, closeLog, err := setup(cmd, opts, applyRunOverrides)
	if err != nil {
		return err
	}
	defer closeLog()

	h, err := harness.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating harness: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	hotReloadEnabled, _ := cmd.Flags().GetBool("hot-reload")
	if opts.cfgFile != "" && hotReloadEnabled {
		startConfigWatcher(ctx, cmd, opts, h, log)
	}

	go handleSignals(ctx, cancel, sigChan, cmd, opts, h, log)

	if err := h.Run(ctx); err != nil {
		return err
	}

	log.Info("logchurn stopped")
	return nil
}

func startConfigWatcher(ctx context.Context, cmd *cobra.Command, opts *globalOptions, h *harness.Harness, log logger.ILogger) {
	watcher := config.NewWatcher(opts.cfgFile, log)
	if err := watcher.Start(ctx); err != nil {
		log.Warningf("failed to start config watcher: %v", err)
		return
	}

	log.Infof("hot-reload enabled: config=%s", opts.cfgFile)

	go func() {
		for {
			select {
			case newCfg := <-watcher.Changes():
				applyRunOverrides(cmd, newCfg)
				if err := h.Reconfigure(newCfg); err != nil {
					log.Errorf("reconfigure failed: %v", err)
				}
			case err := <-watcher.Errors():
				log.Errorf("config watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, cmd *cobra.Command, opts *globalOptions, h *harness.Harness, log logger.ILogger) {
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				log.Info("received SIGHUP, reloading config")
				newCfg, err := loadConfig(cmd, opts, applyRunOverrides)
				if err != nil {
					log.Errorf("failed to reload config: %v", err)
					continue
				}
				if err := h.Reconfigure(newCfg); err != nil {
					log.Errorf("reconfigure failed: %v", err)
				}
			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("received shutdown signal: %v", sig)
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func applyRunOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("root"); v != "" {
		cfg.Churn.Root = v
	}
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.Churn.Workers = v
	}
	if v, _ := cmd.Flags().GetInt("files-per-worker"); v > 0 {
		cfg.Churn.FilesPerWorker = v
	}
	if v, _ := cmd.Flags().GetInt("max-line-length"); v > 0 {
		cfg.Churn.MaxLineLength = v
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Churn.Iterations, _ = cmd.Flags().GetInt("iterations")
	}
	if v, _ := cmd.Flags().GetString("address"); v != "" {
		cfg.Listener.Address = v
	}
	if cmd.Flags().Changed("verify") {
		cfg.Listener.Verify, _ = cmd.Flags().GetBool("verify")
	}
	if v, _ := cmd.Flags().GetString("stdout-format"); v != "" {
		cfg.Reporter.Sinks.Stdout.Format = v
	}
}
