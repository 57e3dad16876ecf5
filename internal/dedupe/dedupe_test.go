package dedupe

import (
	"errors"
	"portalharvest/internal/record"
	"testing"

	"github.com/stretchr/testify/require"
)

func rec(identifier, period, name string) record.Record {
	var r record.Record
	r.Set(record.BeneficiaryIdentifier, identifier)
	r.Set(record.ReferencePeriod, period)
	r.Set(record.BeneficiaryName, name)
	return r
}

func names(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Get(record.BeneficiaryName)
	}
	return out
}

func TestFilterKeepsFirstOccurrence(t *testing.T) {
	set := NewMemorySet()

	res, err := Filter([]record.Record{
		rec("X", "01/2025", "first"),
		rec("Y", "01/2025", "other"),
		rec("X", "01/2025", "second"),
		rec("X", "02/2025", "next month"),
	}, set)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "other", "next month"}, names(res.Kept))
	require.Equal(t, 1, res.Dropped)
	require.Equal(t, 3, set.Len())
}

func TestFilterAcrossBatches(t *testing.T) {
	set := NewMemorySet()

	first, err := Filter([]record.Record{rec("X", "01/2025", "unit 1")}, set)
	require.NoError(t, err)
	require.Len(t, first.Kept, 1)

	second, err := Filter([]record.Record{
		rec("X", "01/2025", "unit 2"),
		rec("Z", "01/2025", "unit 2"),
	}, set)
	require.NoError(t, err)
	require.Equal(t, []string{"unit 2"}, names(second.Kept))
	require.Equal(t, "Z", second.Kept[0].Get(record.BeneficiaryIdentifier))
	require.Equal(t, 1, second.Dropped)
}

func TestFilterBlankKeys(t *testing.T) {
	set := NewMemorySet()

	res, err := Filter([]record.Record{
		rec("", "", "a"),
		rec("", "", "b"),
		rec(" ", "", "c"),
		rec(" ", "", "d"),
	}, set)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, names(res.Kept))
	require.Equal(t, 2, res.Dropped)
}

func TestFilterEmptyBatch(t *testing.T) {
	set := NewMemorySet()
	res, err := Filter(nil, set)
	require.NoError(t, err)
	require.Empty(t, res.Kept)
	require.Zero(t, set.Len())
}

type brokenSet struct{ MemorySet }

func (brokenSet) Has(string) (bool, error) { return false, errors.New("disk on fire") }

func TestFilterPropagatesSetErrors(t *testing.T) {
	_, err := Filter([]record.Record{rec("X", "01/2025", "a")}, &brokenSet{})
	require.Error(t, err)
}
