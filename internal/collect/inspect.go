package collect

import (
	"portalharvest/internal/record"
	"portalharvest/internal/sink"
)

// Stats describes a whole output file.
type Stats struct {
	Records     int
	Regions     int
	Localities  int
	Identifiers int
	// TotalAmount is in cents.
	TotalAmount int64
	Unparsed    int
	TopRegions  []RegionCount
}

// Inspect streams an existing output file and summarizes it.
func Inspect(path string, delimiter rune, top int) (Stats, error) {
	tally := NewTally()
	err := sink.Scan(path, delimiter, func(r record.Record) error {
		tally.Add(r)
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Records:     tally.Records,
		Regions:     tally.Regions(),
		Localities:  tally.Localities(),
		Identifiers: tally.Identifiers(),
		TotalAmount: tally.Amount,
		Unparsed:    tally.Unparsed,
		TopRegions:  tally.TopRegions(top),
	}, nil
}
