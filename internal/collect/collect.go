// Package collect runs a collection: it walks units in order and pushes each
// one through normalization, deduplication and the output writer.
package collect

import (
	"context"
	"errors"
	"fmt"
	"portalharvest/internal/components/assert"
	"portalharvest/internal/components/chrono"
	"portalharvest/internal/components/telemetry"
	"portalharvest/internal/dedupe"
	"portalharvest/internal/fetch"
	"portalharvest/internal/normalize"
	"portalharvest/internal/record"
	"portalharvest/internal/sink"
	"portalharvest/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("portalharvest.collect")

const (
	report_collect_state      = "state"
	report_collect_unit       = "collect.unit"
	report_collect_checkpoint = "collect.checkpoint"
	report_collect_written    = "collect.written"
	report_collect_fetched    = "collect.fetched"
	report_collect_duplicates = "collect.duplicates"
	report_collect_failed     = "collect.failed"
)

// Checkpoints remembers which units a previous run already completed and
// logs every run.
//
// note: fault injection point
type Checkpoints interface {
	Completed(ctx context.Context) (map[string]bool, error)
	MarkCompleted(ctx context.Context, unit string, records int) error
	StartRun(ctx context.Context, id, mode string) error
	FinishRun(ctx context.Context, id string, summary store.RunSummary) error
}

type Options struct {
	Source     UnitSource
	Normalizer *normalize.Normalizer
	Keys       dedupe.KeySet
	Sink       *sink.Writer
	// Checkpoints may be nil, in which case every unit is always fetched.
	Checkpoints Checkpoints
	// Pacer spaces out fetched units, nil means no delay.
	Pacer chrono.Pacer
	Time  chrono.TimeAPI
	Tel   telemetry.API
}

type Orchestrator struct {
	source      UnitSource
	normalizer  *normalize.Normalizer
	keys        dedupe.KeySet
	sink        *sink.Writer
	checkpoints Checkpoints
	pacer       chrono.Pacer
	time        chrono.TimeAPI
	tel         telemetry.API
}

func NewOrchestrator(opts Options) *Orchestrator {
	assert.NotNil(opts.Source)
	assert.NotNil(opts.Normalizer)
	assert.NotNil(opts.Keys)
	assert.NotNil(opts.Sink)
	assert.NotNil(opts.Time)
	assert.NotNil(opts.Tel)

	pacer := opts.Pacer
	if pacer == nil {
		pacer = chrono.NoPacer{}
	}
	return &Orchestrator{
		source:      opts.Source,
		normalizer:  opts.Normalizer,
		keys:        opts.Keys,
		sink:        opts.Sink,
		checkpoints: opts.Checkpoints,
		pacer:       pacer,
		time:        opts.Time,
		tel:         telemetry.NewScopedAPI("collect", opts.Tel),
	}
}

// fatalError is a failure of the output or the key set, after which no
// further unit can be written safely.
type fatalError struct {
	err error
}

func (e fatalError) Error() string {
	return e.err.Error()
}

func (e fatalError) Unwrap() error {
	return e.err
}

func (o *Orchestrator) enter(rs *RunState, state State) {
	if rs.State == state {
		return
	}
	o.tel.ReportDebug(report_collect_state, rs.Unit.ID, string(rs.State), string(state))
	rs.State = state
}

// Run processes units until the source runs out, the cap is reached or ctx
// is cancelled. Unit failures are recorded in the summary and never stop the
// run, an error is only returned when the output itself cannot be written.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	rs := &RunState{
		State: StatePending,
		Summary: Summary{
			RunID:   uuid.NewString(),
			Mode:    o.source.Mode(),
			Started: o.time.Now(),
		},
		tally: NewTally(),
	}

	err := o.run(ctx, rs)
	if err != nil {
		rs.Summary.Outcome = OutcomeAborted
	}
	o.finish(rs)

	if o.checkpoints != nil && rs.Summary.RunID != "" {
		ferr := o.checkpoints.FinishRun(context.WithoutCancel(ctx), rs.Summary.RunID, store.RunSummary{
			Outcome:   string(rs.Summary.Outcome),
			Attempted: rs.Summary.Attempted,
			Succeeded: rs.Summary.Succeeded,
			Failed:    rs.Summary.Failed,
			Fetched:   rs.Summary.Fetched,
			Written:   rs.Summary.Written,
		})
		if ferr != nil {
			o.tel.ReportWarning(report_collect_checkpoint, fmt.Errorf("finish run: %w", ferr))
		}
	}
	return rs.Summary, err
}

func (o *Orchestrator) finish(rs *RunState) {
	rs.Summary.Regions = rs.tally.Regions()
	rs.Summary.Identifiers = rs.tally.Identifiers()
	rs.Summary.TotalAmount = rs.tally.Amount
	rs.Summary.Duration = o.time.Now().Sub(rs.Summary.Started)

	o.tel.ReportCount(report_collect_fetched, int64(rs.Summary.Fetched))
	o.tel.ReportCount(report_collect_written, int64(rs.Summary.Written))
	o.tel.ReportCount(report_collect_duplicates, int64(rs.Summary.Duplicates))
	o.tel.ReportCount(report_collect_failed, int64(rs.Summary.Failed))
}

func (o *Orchestrator) run(ctx context.Context, rs *RunState) error {
	completed := map[string]bool{}
	if o.checkpoints != nil {
		var err error
		completed, err = o.checkpoints.Completed(ctx)
		if err != nil {
			rs.Summary.RunID = ""
			return fmt.Errorf("load checkpoints: %w", err)
		}
		err = o.checkpoints.StartRun(ctx, rs.Summary.RunID, rs.Summary.Mode)
		if err != nil {
			rs.Summary.RunID = ""
			return fmt.Errorf("start run: %w", err)
		}
	}

	fetched := 0
	for {
		if o.sink.Remaining() == 0 {
			o.enter(rs, StateCapReached)
			rs.Summary.Outcome = OutcomeCapReached
			return nil
		}
		if ctx.Err() != nil {
			rs.Summary.Outcome = OutcomeCancelled
			return nil
		}

		unit, ok, err := o.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				rs.Summary.Outcome = OutcomeCancelled
				return nil
			}
			// the listing can't be walked past this point
			rs.Unit = unit
			rs.Summary.Attempted++
			o.fail(rs, err)
			o.enter(rs, StateNoMoreUnits)
			rs.Summary.Outcome = OutcomeNoMoreUnits
			return nil
		}
		if !ok {
			if rs.Summary.Mode == ModePages {
				o.enter(rs, StateNoMoreUnits)
				rs.Summary.Outcome = OutcomeNoMoreUnits
			} else {
				o.enter(rs, StateExhausted)
				rs.Summary.Outcome = OutcomeExhausted
			}
			return nil
		}
		rs.Unit = unit

		if completed[unit.ID] {
			o.tel.ReportDebug(report_collect_unit, unit.ID, "skipped")
			rs.Summary.Skipped++
			continue
		}

		if fetched > 0 {
			err = o.pacer.Wait(ctx)
			if err != nil {
				rs.Summary.Outcome = OutcomeCancelled
				return nil
			}
		}
		fetched++

		written, err := o.processUnit(ctx, rs, unit)
		capReached := errors.Is(err, sink.ErrCapReached)
		var fatal fatalError
		switch {
		case errors.As(err, &fatal):
			return fatal.err
		case capReached || err == nil:
			rs.Summary.Attempted++
			rs.Summary.Succeeded++
		case ctx.Err() != nil:
			rs.Summary.Outcome = OutcomeCancelled
			return nil
		default:
			rs.Summary.Attempted++
			o.fail(rs, err)
			o.enter(rs, StateNextUnit)
			continue
		}

		if capReached {
			o.enter(rs, StateCapReached)
			rs.Summary.Outcome = OutcomeCapReached
			return nil
		}

		if o.checkpoints != nil {
			err = o.checkpoints.MarkCompleted(ctx, unit.ID, written)
			if err != nil {
				o.tel.ReportWarning(report_collect_checkpoint, unit.ID, err)
			}
		}
		o.enter(rs, StateNextUnit)
	}
}

func (o *Orchestrator) fail(rs *RunState, err error) {
	o.enter(rs, StateUnitFailed)

	kind := "other"
	var transportErr *fetch.TransportError
	var payloadErr *fetch.PayloadError
	switch {
	case errors.As(err, &transportErr):
		kind = "transport"
	case errors.As(err, &payloadErr):
		kind = "payload"
	}

	rs.Summary.Failed++
	rs.Summary.Failures = append(rs.Summary.Failures, Failure{
		Unit:    rs.Unit.ID,
		Kind:    kind,
		Message: err.Error(),
	})
	o.tel.ReportWarning(report_collect_unit, rs.Unit.ID, err)
}

// processUnit fetches the unit and writes its new records. It returns the
// number of records written for the unit.
func (o *Orchestrator) processUnit(ctx context.Context, rs *RunState, unit Unit) (int, error) {
	ctx, span := tracer.Start(ctx, "collect.unit")
	defer span.End()
	span.SetAttributes(attribute.String("unit", unit.ID))

	o.enter(rs, StateFetching)

	written := 0
	err := o.source.Fetch(ctx, unit, func(table record.Table) error {
		o.enter(rs, StateNormalizing)
		batch := o.normalizer.Normalize(table, unit.Period)
		rs.Summary.Fetched += len(batch)

		o.enter(rs, StateDeduping)
		staged := &stagedSet{inner: o.keys}
		res, err := dedupe.Filter(batch, staged)
		if err != nil {
			return fatalError{fmt.Errorf("dedupe: %w", err)}
		}
		rs.Summary.Duplicates += res.Dropped

		o.enter(rs, StateWriting)
		n, werr := o.sink.Append(res.Kept)
		if werr != nil && !errors.Is(werr, sink.ErrCapReached) {
			return fatalError{fmt.Errorf("write: %w", werr)}
		}
		err = staged.commit(n)
		if err != nil {
			return fatalError{fmt.Errorf("dedupe: %w", err)}
		}
		for _, r := range res.Kept[:n] {
			rs.tally.Add(r)
		}
		rs.Summary.Written += n
		written += n
		o.enter(rs, StateFetching)
		return werr
	})

	span.SetAttributes(attribute.Int("written", written))
	if err != nil && !errors.Is(err, sink.ErrCapReached) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unit failed")
	}
	o.tel.ReportDebug(report_collect_unit, unit.ID, "written", written)
	return written, err
}

// stagedSet holds back the keys added during a batch until it is known how
// many of the batch's records made it into the output, so records cut off by
// the cap are not remembered as seen.
type stagedSet struct {
	inner  dedupe.KeySet
	staged []string
}

func (s *stagedSet) Has(key string) (bool, error) {
	return s.inner.Has(key)
}

func (s *stagedSet) Add(keys ...string) error {
	s.staged = append(s.staged, keys...)
	return nil
}

func (s *stagedSet) Len() int {
	return s.inner.Len() + len(s.staged)
}

func (s *stagedSet) commit(n int) error {
	if n > len(s.staged) {
		n = len(s.staged)
	}
	if n == 0 {
		return nil
	}
	return s.inner.Add(s.staged[:n]...)
}
