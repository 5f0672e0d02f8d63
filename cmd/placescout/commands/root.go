package commands

import (
	"context"
	"log/slog"
	"os"

	"placescout/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool
var tel telemetry.Telemetry

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
}

var rootCmd = &cobra.Command{
	Use:   "placescout",
	Short: "placescout collects restaurant listings from map searches into a deduplicated store.",
	// errors are logged by ExecuteContext once telemetry is flushed
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// flags parsed fine, a failure from here on is not a usage error
		cmd.SilenceUsage = true
		telemetry.InitSlog(*verbose)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "placescout")
		if err != nil {
			slog.Warn("failed to setup telemetry, continuing without it", "err", err)
		}
	},
}

// ExecuteContext runs the command line and exits with a non zero status when
// the command fails, after its deferred cleanup and the telemetry flush ran.
func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)

	shutdownErr := tel.Shutdown(context.Background())
	if shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}

	if err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}
