package collect

import (
	"context"
	"errors"
	"portalharvest/internal/fetch"
	"portalharvest/internal/record"
)

const (
	ModeArchive = "archive"
	ModePages   = "pages"
)

// Unit is one period or one listing page.
type Unit struct {
	ID string
	// Period is the reference period the unit's records belong to, zero when
	// it is not known ahead of time.
	Period record.Period
	// Page is the 1-based listing page, zero in archive mode.
	Page int
}

// UnitSource produces the units of a run in order and fetches their rows.
//
// note: fault injection point
type UnitSource interface {
	// Mode names the collection mode, as stored in the run log.
	Mode() string
	// Next returns the next unit, ok is false once there are none left. An
	// error means the next unit could not be reached and the run must stop.
	Next(ctx context.Context) (unit Unit, ok bool, err error)
	// Fetch streams the rows of the unit to fn, in bounded chunks.
	Fetch(ctx context.Context, unit Unit, fn func(record.Table) error) error
}

// ArchiveFetcher downloads the archive of a period.
type ArchiveFetcher interface {
	Fetch(ctx context.Context, period record.Period) (fetch.Payload, error)
}

// ArchiveUnits walks a fixed list of periods, one archive download each.
type ArchiveUnits struct {
	fetcher ArchiveFetcher
	decoder fetch.Decoder
	periods []record.Period
	next    int
}

func NewArchiveUnits(fetcher ArchiveFetcher, decoder fetch.Decoder, periods []record.Period) *ArchiveUnits {
	return &ArchiveUnits{fetcher: fetcher, decoder: decoder, periods: periods}
}

func (a *ArchiveUnits) Mode() string {
	return ModeArchive
}

func (a *ArchiveUnits) Next(ctx context.Context) (Unit, bool, error) {
	if a.next >= len(a.periods) {
		return Unit{}, false, nil
	}
	period := a.periods[a.next]
	a.next++
	return Unit{ID: fetch.PeriodUnit(period), Period: period}, true, nil
}

func (a *ArchiveUnits) Fetch(ctx context.Context, unit Unit, fn func(record.Table) error) error {
	payload, err := a.fetcher.Fetch(ctx, unit.Period)
	if err != nil {
		return err
	}
	rc, err := fetch.Unpack(payload)
	if err != nil {
		return err
	}
	defer rc.Close()
	return a.decoder.Decode(unit.ID, rc, fn)
}

// PageUnits walks a paginated listing until the driver reports no next page.
type PageUnits struct {
	driver fetch.PageDriver
	period record.Period
	page   int
}

// NewPageUnits pages through the driver. The period, if not zero, is used
// for the fields the listing does not show.
func NewPageUnits(driver fetch.PageDriver, period record.Period) *PageUnits {
	return &PageUnits{driver: driver, period: period}
}

func (p *PageUnits) Mode() string {
	return ModePages
}

func (p *PageUnits) Next(ctx context.Context) (Unit, bool, error) {
	if p.page > 0 {
		hasNext, err := p.driver.Advance(ctx)
		if err != nil {
			return Unit{ID: fetch.PageUnit(p.page + 1), Period: p.period, Page: p.page + 1}, false,
				&fetch.TransportError{Unit: fetch.PageUnit(p.page + 1), Err: err}
		}
		if !hasNext {
			return Unit{}, false, nil
		}
	}
	p.page++
	return Unit{ID: fetch.PageUnit(p.page), Period: p.period, Page: p.page}, true, nil
}

func (p *PageUnits) Fetch(ctx context.Context, unit Unit, fn func(record.Table) error) error {
	table, err := p.driver.Extract(ctx)
	if errors.Is(err, fetch.ErrTableNotFound) {
		return &fetch.PayloadError{Unit: unit.ID, Err: err}
	}
	if err != nil {
		var transportErr *fetch.TransportError
		if errors.As(err, &transportErr) {
			return err
		}
		return &fetch.TransportError{Unit: unit.ID, Err: err}
	}
	if table.Len() == 0 {
		return nil
	}
	return fn(table)
}
