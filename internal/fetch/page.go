package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"portalharvest/internal/components/telemetry"
	"portalharvest/internal/record"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// PageDriver walks a paginated listing one page at a time.
//
// note: fault injection point
type PageDriver interface {
	// Extract returns the table currently shown. A page without a table
	// yields ErrTableNotFound.
	Extract(ctx context.Context) (record.Table, error)
	// Advance moves to the next page, hasNext is false once the listing is
	// exhausted.
	Advance(ctx context.Context) (hasNext bool, err error)
}

const (
	DefaultPageWait     = 3 * time.Second
	DefaultTableTimeout = 30 * time.Second
)

const (
	report_page_open    = "page.open"
	report_page_extract = "page.extract"
	report_page_advance = "page.advance"
)

// ListingPath is the listing of benefits disbursed between from and to,
// ordered by reference month.
func ListingPath(from, to time.Time) string {
	return fmt.Sprintf(
		"/beneficios/pe-de-meia?de=%s&ate=%s&tipoBeneficio=10&ordenarPor=mesReferencia&direcao=asc",
		from.Format("02/01/2006"),
		to.Format("02/01/2006"),
	)
}

type RodOptions struct {
	// Url of the first listing page.
	Url string
	// ControlURL connects to an already running browser instead of launching one.
	ControlURL string
	// Bin is the browser executable, the launcher picks one when empty.
	Bin      string
	Headless bool
	// PageWait is how long to wait for the next page to render after
	// clicking, defaults to DefaultPageWait.
	PageWait time.Duration
	// TableTimeout bounds the wait for a table, defaults to DefaultTableTimeout.
	TableTimeout time.Duration
}

// RodDriver drives a real browser through the rendered listing.
type RodDriver struct {
	opts     RodOptions
	tel      telemetry.API
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// OpenRod connects to (or launches) a browser and navigates to the listing.
func OpenRod(ctx context.Context, opts RodOptions, tel telemetry.API) (*RodDriver, error) {
	tel = telemetry.NewScopedAPI("fetch", tel)
	if opts.PageWait <= 0 {
		opts.PageWait = DefaultPageWait
	}
	if opts.TableTimeout <= 0 {
		opts.TableTimeout = DefaultTableTimeout
	}

	d := &RodDriver{opts: opts, tel: tel}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		d.launcher = l
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	err := browser.Connect()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	d.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	d.page = page

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      BrowserUserAgent,
		AcceptLanguage: AcceptLanguage,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	tel.ReportDebug(report_page_open, opts.Url)
	err = page.Context(ctx).Navigate(opts.Url)
	if err != nil {
		d.Close()
		return nil, &TransportError{Unit: PageUnit(1), Err: err}
	}
	err = page.Context(ctx).WaitLoad()
	if err != nil {
		d.Close()
		return nil, &TransportError{Unit: PageUnit(1), Err: err}
	}

	return d, nil
}

const extractScript = `() => {
	const table = document.querySelector('table');
	if (!table) return { error: 'no table' };
	const headers = Array.from(table.querySelectorAll('thead th')).map(th => th.innerText.trim());
	const rows = Array.from(table.querySelectorAll('tbody tr')).map(tr =>
		Array.from(tr.querySelectorAll('td')).map(td => td.innerText.trim())
	);
	return { headers, rows };
}`

const advanceScript = `() => {
	const next = document.querySelector('#lista_next button');
	if (!next) return 'missing';
	const li = next.closest('li');
	if (li && li.classList.contains('disabled')) return 'disabled';
	next.click();
	return 'clicked';
}`

type extractResult struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Error   string     `json:"error"`
}

func (d *RodDriver) eval(ctx context.Context, js string, out any) error {
	res, err := d.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return err
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return json.Unmarshal(raw, out)
}

func (d *RodDriver) Extract(ctx context.Context) (record.Table, error) {
	timed := d.page.Context(ctx).Timeout(d.opts.TableTimeout)
	defer timed.CancelTimeout()
	_, err := timed.Element("table")
	if errors.Is(err, context.DeadlineExceeded) {
		return record.Table{}, ErrTableNotFound
	}
	if err != nil {
		return record.Table{}, err
	}

	var res extractResult
	err = d.eval(ctx, extractScript, &res)
	if err != nil {
		return record.Table{}, fmt.Errorf("extract: %w", err)
	}
	if res.Error != "" {
		return record.Table{}, ErrTableNotFound
	}

	table := record.Table{Headers: res.Headers, Rows: res.Rows}.Clean()
	d.tel.ReportDebug(report_page_extract, len(table.Rows))
	return table, nil
}

func (d *RodDriver) Advance(ctx context.Context) (bool, error) {
	var status string
	err := d.eval(ctx, advanceScript, &status)
	if err != nil {
		return false, fmt.Errorf("advance: %w", err)
	}
	d.tel.ReportDebug(report_page_advance, status)

	switch status {
	case "disabled":
		return false, nil
	case "clicked":
	default:
		return false, errors.New("advance: next page control not found")
	}

	timer := time.NewTimer(d.opts.PageWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
	}
	return true, nil
}

// Close releases the page, the browser and the launched process if any.
func (d *RodDriver) Close() error {
	var errs []error
	if d.page != nil {
		errs = append(errs, d.page.Close())
	}
	if d.browser != nil {
		errs = append(errs, d.browser.Close())
	}
	if d.launcher != nil {
		d.launcher.Cleanup()
	}
	return errors.Join(errs...)
}
