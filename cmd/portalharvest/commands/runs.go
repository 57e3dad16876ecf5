package commands

import (
	"portalharvest/internal/components/chrono"
	"portalharvest/internal/store"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit int

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "How many runs to list.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists previous runs against the output, latest first.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("failed to read config", err)
		}
		db, err := cfg.Checkpoint.OpenDB()
		if err != nil {
			fatal("failed to open checkpoint store", err)
		}
		defer db.Close()

		runs, err := store.NewStore(db, cfg.Output, chrono.StandardTime{}).Runs(cmd.Context(), runsLimit)
		if err != nil {
			fatal("failed to list runs", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Run", "Mode", "Started", "Outcome", "Attempted", "Failed", "Fetched", "Written"})
		for _, r := range runs {
			outcome := r.Summary.Outcome
			if r.Finished.IsZero() {
				outcome = "(unfinished)"
			}
			t.AppendRow(table.Row{
				r.ID,
				r.Mode,
				r.Started.Format(time.DateTime),
				outcome,
				r.Summary.Attempted,
				r.Summary.Failed,
				r.Summary.Fetched,
				r.Summary.Written,
			})
		}
		t.Render()
	},
}
