package commands

import (
	"log/slog"
	"portalharvest/internal/sink"
	"strings"

	"github.com/spf13/cobra"
)

var exportXlsx string

func init() {
	exportCmd.Flags().StringVar(&exportXlsx, "xlsx", "", "The workbook to write, defaults to the output with an .xlsx extension.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [path/to/output.csv] [--xlsx <path/to/workbook.xlsx>]",
	Short: "Converts an output file into a spreadsheet.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("failed to read config", err)
		}
		src := cfg.Output
		if len(args) > 0 {
			src = args[0]
		}
		dst := exportXlsx
		if dst == "" {
			dst = strings.TrimSuffix(src, ".csv") + ".xlsx"
		}
		delimiter, err := cfg.delimiter()
		if err != nil {
			fatal("invalid config", err)
		}

		n, err := sink.ExportXLSX(src, delimiter, dst)
		if err != nil {
			fatal("failed to export", err)
		}
		slog.Info("exported workbook", "path", dst, "records", n)
	},
}
