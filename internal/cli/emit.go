package cli

import (
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/emitter"
	"github.com/GabrielNunesIT/logchurn/internal/reporter"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
)

// NewEmitCmd creates the emit command.
func NewEmitCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Send random framed line payloads to a listener",
		Long: `emit sends payloads of random lines under random paths. None of the lines
are written to disk, so point it at "logchurn listen" or "logchurn run
--verify=false"; a verifying listener rejects the first line as an unexpected
delivery.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closeLog, err := setup(cmd, opts, applyEmitOverrides)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			counters := stats.New()
			e := emitter.NewNative(cfg.Emitter.Native, counters, log)
			r := reporter.New(cfg.Reporter, counters, uuid.NewString(), log)

			return runAll(ctx, e.Run, r.Run)
		},
	}

	cmd.Flags().String("address", "", "listener address to send to")
	cmd.Flags().Int("pool-size", 0, "number of distinct paths")
	cmd.Flags().Int("payload-limit", 0, "mean number of lines per payload")
	cmd.Flags().Duration("delay", 0, "wait before reconnecting")

	return cmd
}

func applyEmitOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("address"); v != "" {
		cfg.Emitter.Native.Address = v
	}
	if v, _ := cmd.Flags().GetInt("pool-size"); v > 0 {
		cfg.Emitter.Native.PoolSize = v
	}
	if v, _ := cmd.Flags().GetInt("payload-limit"); v > 0 {
		cfg.Emitter.Native.PayloadLimit = v
	}
	if v, _ := cmd.Flags().GetDuration("delay"); v > 0 {
		cfg.Emitter.Native.Delay = v
	}
}
