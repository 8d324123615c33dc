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

// NewStatsdCmd creates the statsd command.
func NewStatsdCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statsd",
		Short: "Flood a UDP address with statsd metric lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closeLog, err := setup(cmd, opts, applyStatsdOverrides)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			counters := stats.New()
			e := emitter.NewStatsd(cfg.Emitter.Statsd, counters, log)
			r := reporter.New(cfg.Reporter, counters, uuid.NewString(), log)

			return runAll(ctx, e.Run, r.Run)
		},
	}

	cmd.Flags().String("address", "", "statsd address to send to")
	cmd.Flags().Int("pool-size", 0, "number of distinct metric names")
	cmd.Flags().Int("line-limit", 0, "lines per interval before throttling")
	cmd.Flags().Duration("delay", 0, "wait between packets once throttled")

	return cmd
}

func applyStatsdOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("address"); v != "" {
		cfg.Emitter.Statsd.Address = v
	}
	if v, _ := cmd.Flags().GetInt("pool-size"); v > 0 {
		cfg.Emitter.Statsd.PoolSize = v
	}
	if v, _ := cmd.Flags().GetInt("line-limit"); v > 0 {
		cfg.Emitter.Statsd.LineLimit = v
	}
	if v, _ := cmd.Flags().GetDuration("delay"); v > 0 {
		cfg.Emitter.Statsd.Delay = v
	}
}
