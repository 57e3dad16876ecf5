package collect

import (
	"os"
	"path/filepath"
	"portalharvest/internal/record"
	"portalharvest/internal/sink"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		input    string
		expected int64
		ok       bool
	}{
		{"200,00", 20000, true},
		{"R$ 1.234,56", 123456, true},
		{"1.000.000,5", 100000050, true},
		{"200", 20000, true},
		{",99", 99, true},
		{"-10,00", -1000, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1,234", 0, false},
	}

	for _, test := range testCases {
		got, ok := ParseAmount(test.input)
		require.Equal(t, test.ok, ok, test.input)
		require.Equal(t, test.expected, got, test.input)
	}
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "0,00", FormatAmount(0))
	require.Equal(t, "200,00", FormatAmount(20000))
	require.Equal(t, "1.234,56", FormatAmount(123456))
	require.Equal(t, "1.000.000,05", FormatAmount(100000005))
	require.Equal(t, "-10,50", FormatAmount(-1050))
}

func makeRecord(region, locality, id, amount string) record.Record {
	var r record.Record
	r.Set(record.ReferencePeriod, "01/2025")
	r.Set(record.RegionCode, region)
	r.Set(record.LocalityName, locality)
	r.Set(record.BeneficiaryIdentifier, id)
	r.Set(record.DisbursedAmount, amount)
	return r
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := sink.Open(path, sink.Options{})
	require.NoError(t, err)
	_, err = w.Append([]record.Record{
		makeRecord("RN", "NATAL", "1", "200,00"),
		makeRecord("RN", "MOSSORÓ", "2", "200,00"),
		makeRecord("SP", "SANTOS", "3", "1.000,00"),
		makeRecord("BA", "SALVADOR", "4", "n/d"),
		makeRecord("RN", "NATAL", "1", ""),
		makeRecord("SP", "NATAL", "5", "0,50"),
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	stats, err := Inspect(path, 0, 2)
	require.NoError(t, err)

	require.Equal(t, Stats{
		Records:     6,
		Regions:     3,
		Localities:  5,
		Identifiers: 5,
		TotalAmount: 140050,
		Unparsed:    1,
		TopRegions: []RegionCount{
			{Region: "RN", Records: 3},
			{Region: "SP", Records: 2},
		},
	}, stats)
}

func TestInspectMissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "missing.csv"), 0, 5)
	require.ErrorIs(t, err, os.ErrNotExist)
}
