package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"portalharvest/internal/components/telemetry"
	"portalharvest/internal/record"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseUrl = "https://portaldatransparencia.gov.br"
	DefaultTimeout = 2 * time.Minute

	DefaultRequestsPerSecond = 1

	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	AcceptLanguage   = "pt-BR,pt;q=0.9,en;q=0.8"
)

const report_archive_fetch = "archive.fetch"

// Payload is the raw response for one period.
type Payload struct {
	Unit        string
	Status      int
	ContentType string
	Disposition string
	Body        []byte
}

type ArchiveOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond bounds outgoing requests.
	// Defaults to DefaultRequestsPerSecond.
	RequestsPerSecond float64
}

// ArchiveSource downloads the monthly archive of a period.
type ArchiveSource struct {
	http *resty.Client
	tel  telemetry.API
}

func NewArchiveSource(opts ArchiveOptions, tel telemetry.API) ArchiveSource {
	tel = telemetry.NewScopedAPI("fetch", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", BrowserUserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("accept-language", AcceptLanguage)
	telemetry.InstrumentResty(client, tel)

	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return ArchiveSource{http: client, tel: tel}
}

// ArchivePath is the download path of a period relative to the base url.
func ArchivePath(period record.Period) string {
	return fmt.Sprintf("/download-de-dados/pe-de-meia/%s", period.Key())
}

func (s ArchiveSource) Fetch(ctx context.Context, period record.Period) (Payload, error) {
	unit := PeriodUnit(period)

	res, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(ArchivePath(period))
	if err != nil {
		return Payload{}, &TransportError{Unit: unit, Err: err}
	}
	raw := res.RawBody()
	defer raw.Close()

	if res.StatusCode() != http.StatusOK {
		return Payload{}, &TransportError{Unit: unit, Status: res.StatusCode()}
	}

	body, err := io.ReadAll(raw)
	if err != nil {
		return Payload{}, &TransportError{Unit: unit, Err: fmt.Errorf("read body: %w", err)}
	}
	s.tel.ReportDebug(report_archive_fetch, unit, len(body))

	return Payload{
		Unit:        unit,
		Status:      res.StatusCode(),
		ContentType: res.Header().Get("content-type"),
		Disposition: res.Header().Get("content-disposition"),
		Body:        body,
	}, nil
}

// PeriodUnit is the unit identifier of a period.
func PeriodUnit(period record.Period) string {
	return "period:" + period.Key()
}

// PageUnit is the unit identifier of a listing page, starting at 1.
func PageUnit(page int) string {
	return fmt.Sprintf("page:%d", page)
}
