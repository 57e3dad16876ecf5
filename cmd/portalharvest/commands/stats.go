package commands

import (
	"fmt"
	"portalharvest/internal/collect"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statsTop int

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "How many UFs to rank.")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats [path/to/output.csv]",
	Short: "Summarizes an output file.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("failed to read config", err)
		}
		path := cfg.Output
		if len(args) > 0 {
			path = args[0]
		}
		delimiter, err := cfg.delimiter()
		if err != nil {
			fatal("invalid config", err)
		}

		stats, err := collect.Inspect(path, delimiter, statsTop)
		if err != nil {
			fatal("failed to read output", err)
		}

		t := newTable()
		t.SetTitle(path)
		t.AppendRows([]table.Row{
			{"Records", stats.Records},
			{"Distinct UFs", stats.Regions},
			{"Distinct municipalities", stats.Localities},
			{"Distinct beneficiaries", stats.Identifiers},
			{"Total disbursed (R$)", collect.FormatAmount(stats.TotalAmount)},
			{"Unreadable amounts", stats.Unparsed},
		})
		t.Render()

		if len(stats.TopRegions) == 0 {
			return
		}
		top := newTable()
		top.SetTitle(fmt.Sprintf("Top %d UFs", len(stats.TopRegions)))
		top.AppendHeader(table.Row{"UF", "Records"})
		for _, r := range stats.TopRegions {
			top.AppendRow(table.Row{r.Region, r.Records})
		}
		top.Render()
	},
}
