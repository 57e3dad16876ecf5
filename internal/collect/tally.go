package collect

import (
	"portalharvest/internal/record"
	"slices"
	"strconv"
	"strings"
)

// ParseAmount parses a comma-decimal amount such as "R$ 1.234,56" into cents.
func ParseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if s == "" {
		return 0, false
	}
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.ReplaceAll(s, ".", "")

	whole, frac, hasFrac := strings.Cut(s, ",")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, false
	}

	var cents int64
	if hasFrac {
		if frac == "" || len(frac) > 2 {
			return 0, false
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, false
		}
	}

	total := units*100 + cents
	if negative {
		total = -total
	}
	return total, true
}

// FormatAmount renders cents the way the portal shows amounts, "1.234,56".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)

	var grouped strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(c)
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + grouped.String() + "," + frac
}

type RegionCount struct {
	Region  string
	Records int
}

// Tally accumulates the statistics of a stream of records.
type Tally struct {
	Records int
	// Unparsed counts records whose amount could not be read.
	Unparsed int
	Amount   int64

	regions     map[string]int
	localities  map[string]struct{}
	identifiers map[string]struct{}
}

func NewTally() *Tally {
	return &Tally{
		regions:     map[string]int{},
		localities:  map[string]struct{}{},
		identifiers: map[string]struct{}{},
	}
}

func (t *Tally) Add(r record.Record) {
	t.Records++
	region := strings.TrimSpace(r.Get(record.RegionCode))
	if region != "" {
		t.regions[region]++
		locality := strings.TrimSpace(r.Get(record.LocalityName))
		if locality != "" {
			t.localities[region+"/"+locality] = struct{}{}
		}
	}
	if id := strings.TrimSpace(r.Get(record.BeneficiaryIdentifier)); id != "" {
		t.identifiers[id] = struct{}{}
	}
	if raw := r.Get(record.DisbursedAmount); strings.TrimSpace(raw) != "" {
		cents, ok := ParseAmount(raw)
		if ok {
			t.Amount += cents
		} else {
			t.Unparsed++
		}
	}
}

func (t *Tally) Regions() int {
	return len(t.regions)
}

// Localities counts distinct municipalities, qualified by region since names
// repeat across regions.
func (t *Tally) Localities() int {
	return len(t.localities)
}

func (t *Tally) Identifiers() int {
	return len(t.identifiers)
}

// TopRegions returns the n regions with the most records, ties broken by
// region code.
func (t *Tally) TopRegions(n int) []RegionCount {
	out := make([]RegionCount, 0, len(t.regions))
	for region, count := range t.regions {
		out = append(out, RegionCount{Region: region, Records: count})
	}
	slices.SortFunc(out, func(a, b RegionCount) int {
		if a.Records != b.Records {
			return b.Records - a.Records
		}
		return strings.Compare(a.Region, b.Region)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
