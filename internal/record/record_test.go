package record

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	require.Equal(t, []string{
		"Detalhar",
		"Mês Referência",
		"UF",
		"Município",
		"Beneficiário",
		"CPF do Beneficiário",
		"Representante Legal",
		"Valor Disponibilizado",
	}, Header())
	require.Len(t, Fields(), FieldCount)
	require.Equal(t, "beneficiary-identifier", BeneficiaryIdentifier.String())
}

func TestKey(t *testing.T) {
	var r Record
	r.Set(BeneficiaryIdentifier, "***.675.884-**")
	r.Set(ReferencePeriod, "01/2025")
	require.Equal(t, "***.675.884-**|01/2025", r.Key())

	// blank values still form a key
	require.Equal(t, "|", Record{}.Key())
	require.Equal(t, "  | ", Key("  ", " "))
}

func TestFromRow(t *testing.T) {
	r := FromRow([]string{"a", "b"})
	require.Equal(t, "a", r.Get(DetailReference))
	require.Equal(t, "b", r.Get(ReferencePeriod))
	require.Equal(t, "", r.Get(DisbursedAmount))
	require.Len(t, r.Row(), FieldCount)
}

func TestParsePeriod(t *testing.T) {
	testCases := []struct {
		input    string
		expected Period
		fails    bool
	}{
		{input: "202501", expected: Period{Year: 2025, Month: time.January}},
		{input: "01/2025", expected: Period{Year: 2025, Month: time.January}},
		{input: "12/2024", expected: Period{Year: 2024, Month: time.December}},
		{input: "202413", fails: true},
		{input: "2025", fails: true},
		{input: "aa/2025", fails: true},
	}

	for _, test := range testCases {
		p, err := ParsePeriod(test.input)
		if test.fails {
			require.Error(t, err, test.input)
			continue
		}
		require.NoError(t, err, test.input)
		require.Equal(t, test.expected, p)
	}
}

func TestPeriodFormatting(t *testing.T) {
	p := NewPeriod(2025, time.January)
	require.Equal(t, "202501", p.Key())
	require.Equal(t, "01/2025", p.Reference())
	require.Equal(t, NewPeriod(2025, time.February), p.Next())
	require.Equal(t, NewPeriod(2025, time.January), NewPeriod(2024, time.December).Next())
	require.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), p.LastDay(time.UTC))
}

func TestPeriodRange(t *testing.T) {
	periods := PeriodRange(NewPeriod(2024, time.November), NewPeriod(2025, time.February))
	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = p.Key()
	}
	require.Equal(t, []string{"202411", "202412", "202501", "202502"}, keys)

	require.Nil(t, PeriodRange(NewPeriod(2025, time.February), NewPeriod(2025, time.January)))
	require.Len(t, PeriodRange(NewPeriod(2025, time.January), NewPeriod(2025, time.January)), 1)
}

func TestTableClean(t *testing.T) {
	table := Table{
		Headers: []string{"UF", "MUNICIPIO", "CPF"},
		Rows: [][]string{
			{"RN", "NATAL"},
			{"  ", "", "\t"},
			{"SP", "SANTOS", "1", "extra"},
		},
	}

	expected := Table{
		Headers: []string{"UF", "MUNICIPIO", "CPF"},
		Rows: [][]string{
			{"RN", "NATAL", ""},
			{"SP", "SANTOS", "1"},
		},
	}
	if diff := cmp.Diff(expected, table.Clean()); diff != "" {
		t.Fatalf("unexpected clean result (-want +got):\n%s", diff)
	}
}

func TestTableSources(t *testing.T) {
	table := Table{
		Headers: []string{"UF", "UF", "CPF"},
		Rows:    [][]string{{"RN", "SP"}},
	}
	sources := table.Sources()
	require.Equal(t, []Source{{"UF": "RN", "CPF": ""}}, sources)
}
