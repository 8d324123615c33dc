package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/listener"
	"github.com/GabrielNunesIT/logchurn/internal/reporter"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
)

// NewListenCmd creates the listen command.
func NewListenCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Accept line reports and log them without verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closeLog, err := setup(cmd, opts, applyListenOverrides)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			counters := stats.New()
			handler := listener.NewChain(listener.NewLogHandler(log), listener.NewCountHandler(counters))
			l := listener.New(cfg.Listener, handler, log)
			r := reporter.New(cfg.Reporter, counters, uuid.NewString(), log)

			return runAll(ctx, l.Serve, r.Run)
		},
	}

	cmd.Flags().String("address", "", "address the listener binds")

	return cmd
}

func applyListenOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("address"); v != "" {
		cfg.Listener.Address = v
	}
}

// runAll runs fns until ctx is cancelled or one fails.
func runAll(ctx context.Context, fns ...func(context.Context) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		g.Go(func() error {
			return fn(gCtx)
		})
	}
	return g.Wait()
}
