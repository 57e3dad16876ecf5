package sink

import (
	"fmt"
	"portalharvest/internal/record"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Pé-de-Meia"

// ExportXLSX streams a sink file into a single-sheet workbook at dst and
// returns the number of records exported.
func ExportXLSX(src string, delimiter rune, dst string) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	err := f.SetSheetName(f.GetSheetName(0), xlsxSheet)
	if err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return 0, fmt.Errorf("create stream writer: %w", err)
	}

	err = sw.SetRow("A1", toCells(record.Header()))
	if err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	count := 0
	err = Scan(src, delimiter, func(r record.Record) error {
		count++
		cell, err := excelize.CoordinatesToCellName(1, count+1)
		if err != nil {
			return err
		}
		return sw.SetRow(cell, toCells(r.Row()))
	})
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", src, err)
	}

	err = sw.Flush()
	if err != nil {
		return 0, fmt.Errorf("flush sheet: %w", err)
	}
	err = f.SaveAs(dst)
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", dst, err)
	}
	return count, nil
}

func toCells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
