package sink

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"portalharvest/internal/record"
	"slices"
)

// ErrHeaderMismatch is returned when a file does not start with the canonical header.
var ErrHeaderMismatch = errors.New("file header is not the canonical header")

// Scan streams every record of a sink file to fn, one at a time, skipping a
// leading byte order mark and the header. It stops at the first error fn
// returns.
func Scan(path string, delimiter rune, fn func(record.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<20)
	first3, _ := br.Peek(3)
	if len(first3) == 3 && first3[0] == bom[0] && first3[1] == bom[1] && first3[2] == bom[2] {
		br.Discard(3)
	}

	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	r := csv.NewReader(br)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(header, record.Header()) {
		return fmt.Errorf("%w: %q", ErrHeaderMismatch, header)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		err = fn(record.FromRow(row))
		if err != nil {
			return err
		}
	}
}
