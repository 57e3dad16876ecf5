package commands

import (
	"fmt"
	"log/slog"
	"portalharvest/internal/collect"
	"portalharvest/internal/components/telemetry"
	"portalharvest/internal/fetch"
	"portalharvest/internal/record"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collects records into the output, resuming where the last run stopped.",
}

var (
	archiveFrom  string
	archiveTo    string
	archiveCap   int
	archiveReset bool
	pagesFrom    string
	pagesTo      string
	pagesPeriod  string
	pagesCap     int
	pagesReset   bool
	snapshotDir  string
	outPath      string
	persistKeys  bool
)

func init() {
	collectCmd.PersistentFlags().StringVar(&outPath, "out", "", "The output file, overrides the config.")
	collectCmd.PersistentFlags().BoolVar(&persistKeys, "persist-keys", false, "Keep dedup keys in the checkpoint store.")

	archiveCmd.Flags().StringVar(&archiveFrom, "from", "", "First period, YYYYMM or MM/YYYY.")
	archiveCmd.Flags().StringVar(&archiveTo, "to", "", "Last period, defaults to --from.")
	archiveCmd.Flags().IntVar(&archiveCap, "cap", 0, "Maximum records in the output, 0 for unbounded.")
	archiveCmd.Flags().BoolVar(&archiveReset, "reset", false, "Forget completed units and refetch everything.")

	pagesCmd.Flags().StringVar(&pagesFrom, "from", "01/01/2025", "Listing start date, DD/MM/YYYY.")
	pagesCmd.Flags().StringVar(&pagesTo, "to", "31/01/2025", "Listing end date, DD/MM/YYYY.")
	pagesCmd.Flags().StringVar(&pagesPeriod, "period", "", "Reference period filling fields the listing lacks.")
	pagesCmd.Flags().IntVar(&pagesCap, "cap", 0, "Maximum records in the output, defaults to the config's page cap.")
	pagesCmd.Flags().BoolVar(&pagesReset, "reset", false, "Forget completed pages and start over.")
	pagesCmd.Flags().StringVar(&snapshotDir, "snapshots", "", "Replay saved listing pages from a directory instead of a browser.")

	collectCmd.AddCommand(archiveCmd)
	collectCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(collectCmd)
}

func collectConfig(cmd *cobra.Command) Config {
	cfg, err := loadConfig()
	if err != nil {
		fatal("failed to read config", err)
	}
	if cmd.Flags().Changed("out") {
		cfg.Output = outPath
		cfg.Checkpoint.File = outPath + ".state.db"
	}
	if cmd.Flags().Changed("persist-keys") {
		cfg.PersistKeys = persistKeys
	}
	return cfg
}

func parsePeriodRange(from, to string) ([]record.Period, error) {
	if from == "" {
		return nil, fmt.Errorf("no start period, pass --from or set \"from\" in the config")
	}
	if to == "" {
		to = from
	}
	start, err := record.ParsePeriod(from)
	if err != nil {
		return nil, err
	}
	end, err := record.ParsePeriod(to)
	if err != nil {
		return nil, err
	}
	periods := record.PeriodRange(start, end)
	if len(periods) == 0 {
		return nil, fmt.Errorf("period %s is after %s", from, to)
	}
	return periods, nil
}

var archiveCmd = &cobra.Command{
	Use:   "archive --from <YYYYMM> [--to <YYYYMM>]",
	Short: "Downloads the monthly archive of every period in the range.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := collectConfig(cmd)
		if cmd.Flags().Changed("from") {
			cfg.From = archiveFrom
			cfg.To = archiveTo
		} else if cmd.Flags().Changed("to") {
			cfg.To = archiveTo
		}
		if cmd.Flags().Changed("cap") {
			cfg.ArchiveCap = archiveCap
		}

		periods, err := parsePeriodRange(cfg.From, cfg.To)
		if err != nil {
			fatal("invalid period range", err)
		}
		summary, err := runArchive(cmd, cfg, periods, archiveReset)
		printSummary(summary)
		if err != nil {
			fatal("collection aborted", err)
		}
	},
}

func runArchive(cmd *cobra.Command, cfg Config, periods []record.Period, reset bool) (collect.Summary, error) {
	delimiter, err := cfg.delimiter()
	if err != nil {
		return collect.Summary{}, err
	}
	fetcher := fetch.NewArchiveSource(fetch.ArchiveOptions{
		BaseUrl: cfg.BaseUrl,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, telemetry.SlogAPI{})

	slog.Info(
		"collecting archives",
		"from", periods[0].Key(),
		"to", periods[len(periods)-1].Key(),
		"output", cfg.Output,
	)
	return runCollection(cmd.Context(), runParams{
		cfg: cfg,
		source: collect.NewArchiveUnits(
			fetcher,
			fetch.Decoder{Delimiter: delimiter, ChunkSize: cfg.ChunkSize},
			periods,
		),
		cap:   cfg.ArchiveCap,
		reset: reset,
	})
}

var pagesCmd = &cobra.Command{
	Use:   "pages [--from DD/MM/YYYY] [--to DD/MM/YYYY]",
	Short: "Pages through the rendered benefits listing.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := collectConfig(cmd)
		if cmd.Flags().Changed("cap") {
			cfg.PageCap = pagesCap
		}

		var period record.Period
		if pagesPeriod != "" {
			var err error
			period, err = record.ParsePeriod(pagesPeriod)
			if err != nil {
				fatal("invalid period", err)
			}
		}

		summary, err := runPages(cmd, cfg, period)
		printSummary(summary)
		if err != nil {
			fatal("collection aborted", err)
		}
	},
}

// runPages owns the browser, which is closed before the caller may exit.
func runPages(cmd *cobra.Command, cfg Config, period record.Period) (collect.Summary, error) {
	var driver fetch.PageDriver
	if snapshotDir != "" {
		htmlDriver, err := fetch.NewHTMLDriver(snapshotDir)
		if err != nil {
			return collect.Summary{}, fmt.Errorf("read snapshots: %w", err)
		}
		driver = htmlDriver
	} else {
		from, err := time.Parse("02/01/2006", pagesFrom)
		if err != nil {
			return collect.Summary{}, fmt.Errorf("invalid --from: %w", err)
		}
		to, err := time.Parse("02/01/2006", pagesTo)
		if err != nil {
			return collect.Summary{}, fmt.Errorf("invalid --to: %w", err)
		}

		rod, err := fetch.OpenRod(cmd.Context(), fetch.RodOptions{
			Url:        strings.TrimRight(cfg.BaseUrl, "/") + fetch.ListingPath(from, to),
			ControlURL: cfg.Browser.ControlUrl,
			Bin:        cfg.Browser.Bin,
			Headless:   !cfg.Browser.Headful,
			PageWait:   time.Duration(cfg.Browser.PageWaitMs) * time.Millisecond,
		}, telemetry.SlogAPI{})
		if err != nil {
			return collect.Summary{}, fmt.Errorf("open listing: %w", err)
		}
		defer rod.Close()
		driver = rod
	}

	return runCollection(cmd.Context(), runParams{
		cfg:    cfg,
		source: collect.NewPageUnits(driver, period),
		cap:    cfg.PageCap,
		reset:  pagesReset,
	})
}
