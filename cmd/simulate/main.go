// Command simulate drives a running passtrack server with generated sessions
// and verifies what it stores.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/passtrack/internal/simulate"
	"github.com/okian/passtrack/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := simulate.DefaultConfig()
	var (
		verbose bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a passtrack server with generated sessions",
		Long: `simulate creates a throwaway team, plays a number of sessions against the
server's HTTP API with random passes, undos and retried requests, then checks
every stored session against statistics computed locally.`,
		Example: `  simulate --sessions 10 --passes 100
  simulate --url http://localhost:8080 --seed 7 --verbose`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(format), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if verbose {
				if err := logger.SetLevelString("debug"); err != nil {
					return err
				}
			}
			cfg.Verbose = verbose
			cfg.Logger = logger.Named("simulate")

			st, err := simulate.Run(cmd.Context(), cfg)
			fmt.Fprintf(cmd.OutOrStdout(),
				"sessions=%d passes=%d undos=%d duplicates=%d mismatches=%d duration=%s\n",
				st.Sessions, st.Passes, st.Undos, st.Duplicates, st.Mismatches, st.Duration)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	f.IntVar(&cfg.Sessions, "sessions", cfg.Sessions, "Number of sessions to play")
	f.IntVar(&cfg.Passes, "passes", cfg.Passes, "Actions per session")
	f.IntVar(&cfg.Players, "players", cfg.Players, "Roster size")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (default: current time)")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.Float64Var(&cfg.UndoRate, "undo-rate", cfg.UndoRate, "Chance an action is an undo")
	f.Float64Var(&cfg.DuplicateRate, "duplicate-rate", cfg.DuplicateRate, "Chance a pass is resent with the same request id")
	f.StringVar(&format, "log-format", logger.FormatText, "Log format (text or json)")
	f.BoolVarP(&verbose, "verbose", "v", false, "Log every request")
	return cmd
}
