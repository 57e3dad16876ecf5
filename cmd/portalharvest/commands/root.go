package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"portalharvest/internal/components/serviceutil"
	"portalharvest/internal/components/telemetry"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	otel       telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "portalharvest",
	Short: "portalharvest collects Pé-de-Meia disbursement records from the transparency portal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		var err error
		otel, err = telemetry.SetupFromEnv(cmd.Context(), "portalharvest")
		if err != nil {
			serviceutil.Fatal("setup telemetry", err)
		}
		telemetry.InstrumentPerfStats(cmd.Context(), 15*time.Second)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownTelemetry()
	},
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := otel.Shutdown(ctx)
	if err != nil {
		slog.Warn("telemetry shutdown", "err", err)
	}
}

// fatal flushes telemetry before exiting, PersistentPostRun never runs on
// this path.
func fatal(message string, err error) {
	shutdownTelemetry()
	serviceutil.Fatal(message, err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "portalharvest.json5", "The config file, merged with its .local variant.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
}

func ExecuteContext(ctx context.Context) {
	ctx, cancel := serviceutil.SignalContext(ctx)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
