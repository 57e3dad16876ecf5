// Package sink appends canonical records to a delimited file that can be
// resumed across process restarts.
package sink

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"portalharvest/internal/record"
)

// ErrCapReached is returned by Append once the file holds the configured
// maximum number of records. It ends a run, it is not a failure.
var ErrCapReached = errors.New("record cap reached")

const DefaultDelimiter = ';'

var bom = []byte{0xEF, 0xBB, 0xBF}

type Options struct {
	// Delimiter separates values, defaults to ';'.
	Delimiter rune
	// Cap is the maximum number of records the file may hold, 0 means unbounded.
	Cap int
	// BOM prefixes a freshly created file with a UTF-8 byte order mark.
	BOM bool
	// OnExisting is called for every record already in the file when it is
	// opened, in file order, so callers can rebuild state derived from it.
	OnExisting func(record.Record) error
}

// Writer appends record batches to a file. The header is written once, the
// first time a record is appended to an empty file.
type Writer struct {
	path      string
	delimiter rune
	cap       int
	bom       bool

	file   *os.File
	buf    *bufio.Writer
	csv    *csv.Writer
	count  int
	header bool
}

// Open opens or creates the file at path for appending. Existing records are
// counted against the cap and replayed through opts.OnExisting. A trailing
// partial line left behind by an interrupted write is cut off.
func Open(path string, opts Options) (*Writer, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	if opts.Cap < 0 {
		return nil, fmt.Errorf("open sink: negative cap %d", opts.Cap)
	}

	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}

	err = repairTail(path)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}

	w := &Writer{
		path:      path,
		delimiter: opts.Delimiter,
		cap:       opts.Cap,
		bom:       opts.BOM,
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("open sink: %w", err)
	case info.Size() > 0:
		w.header = true
		err = Scan(path, opts.Delimiter, func(r record.Record) error {
			w.count++
			if opts.OnExisting != nil {
				return opts.OnExisting(r)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("open sink: resume %s: %w", path, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}
	w.file = file
	w.buf = bufio.NewWriterSize(file, 1<<20)
	w.csv = csv.NewWriter(w.buf)
	w.csv.Comma = opts.Delimiter
	return w, nil
}

// repairTail truncates the file back to its last newline so a record torn by
// an interrupted write is not glued to the next batch.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	const window = 64 * 1024
	end := size
	for end > 0 {
		start := max(end-window, 0)
		chunk := make([]byte, end-start)
		_, err := f.ReadAt(chunk, start)
		if err != nil && err != io.EOF {
			return err
		}
		if end == size && chunk[len(chunk)-1] == '\n' {
			return nil
		}
		idx := bytes.LastIndexByte(chunk, '\n')
		if idx >= 0 {
			return f.Truncate(start + int64(idx) + 1)
		}
		end = start
	}
	return f.Truncate(0)
}

// Count is the number of records in the file, those written before Open included.
func (w *Writer) Count() int {
	return w.count
}

// Remaining is how many more records the cap allows, -1 when unbounded.
func (w *Writer) Remaining() int {
	if w.cap == 0 {
		return -1
	}
	return max(w.cap-w.count, 0)
}

func (w *Writer) Path() string {
	return w.path
}

// Append writes as many records of the batch as the cap allows and flushes
// them to disk. It returns the number written and ErrCapReached once the file
// is full, in which case the records past the cap were discarded.
func (w *Writer) Append(batch []record.Record) (int, error) {
	if w.cap > 0 && w.count >= w.cap {
		return 0, ErrCapReached
	}

	accepted := batch
	if w.cap > 0 && w.count+len(batch) > w.cap {
		accepted = batch[:w.cap-w.count]
	}
	if len(accepted) == 0 {
		return 0, nil
	}

	if !w.header {
		if w.bom {
			_, err := w.buf.Write(bom)
			if err != nil {
				return 0, err
			}
		}
		err := w.csv.Write(record.Header())
		if err != nil {
			return 0, err
		}
		w.header = true
	}

	for _, r := range accepted {
		err := w.csv.Write(r.Row())
		if err != nil {
			return 0, err
		}
	}
	err := w.flush()
	if err != nil {
		return 0, err
	}
	w.count += len(accepted)

	if w.cap > 0 && w.count >= w.cap {
		return len(accepted), ErrCapReached
	}
	return len(accepted), nil
}

func (w *Writer) flush() error {
	w.csv.Flush()
	err := w.csv.Error()
	if err != nil {
		return err
	}
	err = w.buf.Flush()
	if err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *Writer) Close() error {
	err := w.flush()
	if err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
