package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"portalharvest/internal/record"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func makeRecords(prefix string, n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i].Set(record.ReferencePeriod, "01/2025")
		out[i].Set(record.RegionCode, "RN")
		out[i].Set(record.BeneficiaryIdentifier, fmt.Sprintf("%s-%d", prefix, i))
		out[i].Set(record.DisbursedAmount, "200,00")
	}
	return out
}

func readLines(t *testing.T, path string) []string {
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(contents), "\n"), "\n")
}

func TestHeaderWrittenOnceAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	header := strings.Join(record.Header(), ";")

	for run := 0; run < 3; run++ {
		w, err := Open(path, Options{})
		require.NoError(t, err)
		require.Equal(t, run*4, w.Count())

		_, err = w.Append(makeRecords(fmt.Sprintf("run%d-a", run), 2))
		require.NoError(t, err)
		_, err = w.Append(makeRecords(fmt.Sprintf("run%d-b", run), 2))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	lines := readLines(t, path)
	require.Len(t, lines, 1+12)
	headers := 0
	for _, l := range lines {
		if l == header {
			headers++
		}
	}
	require.Equal(t, 1, headers)
	require.Equal(t, header, lines[0])
}

func TestNoHeaderWithoutRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, Options{})
	require.NoError(t, err)
	n, err := w.Append(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestCapTruncatesAndSignals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, Options{Cap: 5})
	require.NoError(t, err)

	n, err := w.Append(makeRecords("a", 3))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 2, w.Remaining())

	n, err = w.Append(makeRecords("b", 4))
	require.ErrorIs(t, err, ErrCapReached)
	require.Equal(t, 2, n)

	n, err = w.Append(makeRecords("c", 1))
	require.ErrorIs(t, err, ErrCapReached)
	require.Zero(t, n)
	require.NoError(t, w.Close())

	var ids []string
	err = Scan(path, 0, func(r record.Record) error {
		ids = append(ids, r.Get(record.BeneficiaryIdentifier))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a-0", "a-1", "a-2", "b-0", "b-1"}, ids)
}

func TestCapAppliesToResumedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, Options{Cap: 3})
	require.NoError(t, err)
	_, err = w.Append(makeRecords("a", 2))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = Open(path, Options{Cap: 3})
	require.NoError(t, err)
	defer w.Close()
	n, err := w.Append(makeRecords("b", 2))
	require.ErrorIs(t, err, ErrCapReached)
	require.Equal(t, 1, n)
	require.Equal(t, 3, w.Count())
}

func TestOnExistingReplaysRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, Options{})
	require.NoError(t, err)
	_, err = w.Append(makeRecords("a", 3))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var keys []string
	w, err = Open(path, Options{OnExisting: func(r record.Record) error {
		keys = append(keys, r.Key())
		return nil
	}})
	require.NoError(t, err)
	defer w.Close()
	require.Equal(t, []string{"a-0|01/2025", "a-1|01/2025", "a-2|01/2025"}, keys)
}

func TestRepairsTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, Options{})
	require.NoError(t, err)
	_, err = w.Append(makeRecords("a", 2))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(";01/2025;RN;NAT")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w, err = Open(path, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, w.Count())
	_, err = w.Append(makeRecords("b", 1))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 4)
	require.Contains(t, lines[3], "b-0")
}

func TestBOMAndDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Open(path, Options{Delimiter: ',', BOM: true})
	require.NoError(t, err)
	_, err = w.Append(makeRecords("a", 1))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, bom, contents[:3])
	// the amount holds the delimiter, so it is quoted
	require.Contains(t, string(contents), `"200,00"`)

	w, err = Open(path, Options{Delimiter: ','})
	require.NoError(t, err)
	require.Equal(t, 1, w.Count())
	require.NoError(t, w.Close())
}

func TestScanRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.csv")
	require.NoError(t, os.WriteFile(path, []byte("a;b;c\n1;2;3\n"), 0644))

	err := Scan(path, ';', func(record.Record) error { return nil })
	require.ErrorIs(t, err, ErrHeaderMismatch)

	_, err = Open(path, Options{})
	require.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestExportXLSX(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "out.csv")
	w, err := Open(src, Options{})
	require.NoError(t, err)
	_, err = w.Append(makeRecords("a", 3))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dst := filepath.Join(dir, "out.xlsx")
	n, err := ExportXLSX(src, 0, dst)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	f, err := excelize.OpenFile(dst)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, record.Header(), rows[0])
	require.Equal(t, "a-2", rows[3][record.BeneficiaryIdentifier])
}
