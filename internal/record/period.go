package record

import (
	"fmt"
	"strconv"
	"time"
)

// Period is one calendar month of source data.
type Period struct {
	Year  int
	Month time.Month
}

func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses a `YYYYMM` key or a `MM/YYYY` reference.
func ParsePeriod(s string) (Period, error) {
	if len(s) == 7 && s[2] == '/' {
		month, err := strconv.Atoi(s[:2])
		if err != nil {
			return Period{}, fmt.Errorf("parse period %q: %w", s, err)
		}
		year, err := strconv.Atoi(s[3:])
		if err != nil {
			return Period{}, fmt.Errorf("parse period %q: %w", s, err)
		}
		return validPeriod(s, year, month)
	}
	if len(s) != 6 {
		return Period{}, fmt.Errorf("parse period %q: expected YYYYMM or MM/YYYY", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	month, err := strconv.Atoi(s[4:])
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	return validPeriod(s, year, month)
}

func validPeriod(s string, year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("parse period %q: month %d out of range", s, month)
	}
	if year < 1 {
		return Period{}, fmt.Errorf("parse period %q: year %d out of range", s, year)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Key formats the period as `YYYYMM`.
func (p Period) Key() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

// Reference formats the period as `MM/YYYY`.
func (p Period) Reference() string {
	return fmt.Sprintf("%02d/%04d", int(p.Month), p.Year)
}

func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// FirstDay and LastDay bound the period in the given location.
func (p Period) FirstDay(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

func (p Period) LastDay(loc *time.Location) time.Time {
	return p.FirstDay(loc).AddDate(0, 1, -1)
}

// PeriodRange returns every period from `from` to `to`, both inclusive. It
// returns nil when `to` is before `from`.
func PeriodRange(from, to Period) []Period {
	var out []Period
	for p := from; !to.Before(p); p = p.Next() {
		out = append(out, p)
	}
	return out
}
