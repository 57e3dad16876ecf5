package commands

import (
	"log/slog"
	"portalharvest/internal/components/chrono"
	"portalharvest/internal/components/telemetry"
	"portalharvest/internal/record"
	"time"

	"github.com/spf13/cobra"
)

var scheduleSpec string

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "Cron spec, overrides the config's schedule.")
	rootCmd.AddCommand(scheduleCmd)
}

// latestPeriods is the range an archive run covers when scheduled: from the
// configured start up to last month, the current month never being published
// yet.
func latestPeriods(cfg Config, now time.Time) ([]record.Period, error) {
	previous := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	last := record.NewPeriod(previous.Year(), previous.Month())
	from := cfg.From
	if from == "" {
		from = last.Key()
	}
	return parsePeriodRange(from, last.Key())
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [--cron <spec>]",
	Short: "Runs archive collection on a cron schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("failed to read config", err)
		}
		spec := cfg.Schedule
		if scheduleSpec != "" {
			spec = scheduleSpec
		}

		cron := chrono.NewStandardCron(telemetry.SlogAPI{})
		err = cron.Cron(spec, func() {
			periods, err := latestPeriods(cfg, time.Now())
			if err != nil {
				slog.Error("scheduled run skipped", "err", err)
				return
			}
			summary, err := runArchive(cmd, cfg, periods, false)
			if err != nil {
				slog.Error("scheduled run aborted", "err", err)
			}
			printSummary(summary)
		})
		if err != nil {
			fatal("invalid cron spec", err)
		}

		slog.Info("waiting for schedule", "cron", spec, "output", cfg.Output)
		cron.Start()
		<-cmd.Context().Done()
		cron.Stop()
	},
}
