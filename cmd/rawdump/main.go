package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/richardpark-msft/rawdump/cmd/internal"
	"github.com/richardpark-msft/rawdump/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCommand()

	// reading captures
	rootCmd.AddCommand(newDecodeCommand())
	rootCmd.AddCommand(newStatsCommand())

	// writing captures
	rootCmd.AddCommand(newEncodeCommand())

	// replaying and serving captures
	rootCmd.AddCommand(newReplayCommand())
	rootCmd.AddCommand(newServeCommand())

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		slog.Error("Failed to run command", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rawdump",
		Short:         "Tools for raw telemetry captures: files with one base64 encoded record per line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cf, err := internal.ExtractCommonFlags(cmd)

			if err != nil {
				return err
			}

			slogger, err := logging.NewSlogger(cmd.ErrOrStderr(), cf.LogLevel, cf.LogFormat)

			if err != nil {
				return err
			}

			slog.SetDefault(slogger)
			cmd.SetContext(logging.ContextWithSlogger(cmd.Context(), slogger))
			return nil
		},
	}

	internal.AddCommonFlags(rootCmd)
	return rootCmd
}
