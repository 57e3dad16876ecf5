package record

import (
	"strings"
)

// Source is a raw row keyed by the column name the provider used.
type Source map[string]string

// Table is a batch of raw rows sharing the same header, either decoded from a
// delimited file or extracted from a rendered page.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

func (t Table) Len() int {
	return len(t.Rows)
}

// Clean squares the table off against its header: short rows are padded with
// empty cells, long rows are truncated and rows where every cell is blank are
// dropped.
func (t Table) Clean() Table {
	width := len(t.Headers)
	out := Table{Headers: t.Headers, Rows: make([][]string, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		switch {
		case len(row) > width:
			row = row[:width]
		case len(row) < width:
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Sources converts every row into a Source keyed by header. When a header is
// repeated the first column wins.
func (t Table) Sources() []Source {
	out := make([]Source, len(t.Rows))
	for i, row := range t.Rows {
		src := make(Source, len(t.Headers))
		for col, name := range t.Headers {
			if _, exists := src[name]; exists {
				continue
			}
			if col < len(row) {
				src[name] = row[col]
			} else {
				src[name] = ""
			}
		}
		out[i] = src
	}
	return out
}
