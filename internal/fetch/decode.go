package fetch

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"portalharvest/internal/record"
	"strings"
)

const (
	DefaultDelimiter = ';'
	DefaultChunkSize = 50000
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Decoder streams delimited text into tables of bounded size so a whole
// archive never has to sit in memory as rows.
type Decoder struct {
	Delimiter rune
	ChunkSize int
}

func (d Decoder) delimiter() rune {
	if d.Delimiter == 0 {
		return DefaultDelimiter
	}
	return d.Delimiter
}

func (d Decoder) chunkSize() int {
	if d.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return d.ChunkSize
}

// Decode reads the header and then calls fn with consecutive chunks of rows.
// Invalid UTF-8 sequences are dropped.
func (d Decoder) Decode(unit string, r io.Reader, fn func(record.Table) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(len(bom))
	if err == nil && bytes.Equal(head, bom) {
		br.Discard(len(bom))
	}

	reader := csv.NewReader(br)
	reader.Comma = d.delimiter()
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return &PayloadError{Unit: unit, Err: ErrEmptyPayload}
	}
	if err != nil {
		return d.malformed(unit, err)
	}
	headers = cleanCells(headers)

	size := d.chunkSize()
	chunk := record.Table{Headers: headers, Rows: make([][]string, 0, min(size, 1024))}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return d.malformed(unit, err)
		}
		chunk.Rows = append(chunk.Rows, cleanCells(row))
		if len(chunk.Rows) < size {
			continue
		}
		err = fn(chunk)
		if err != nil {
			return err
		}
		chunk = record.Table{Headers: headers, Rows: make([][]string, 0, min(size, 1024))}
	}
	if len(chunk.Rows) > 0 {
		return fn(chunk)
	}
	return nil
}

func (d Decoder) malformed(unit string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &PayloadError{Unit: unit, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return &PayloadError{Unit: unit, Err: fmt.Errorf("read: %w", err)}
}

func cleanCells(row []string) []string {
	for i, cell := range row {
		row[i] = strings.ToValidUTF8(cell, "")
	}
	return row
}
