package collect

import (
	"time"
)

type State string

const (
	StatePending     State = "PENDING"
	StateFetching    State = "FETCHING"
	StateNormalizing State = "NORMALIZING"
	StateDeduping    State = "DEDUPING"
	StateWriting     State = "WRITING"
	StateNextUnit    State = "NEXT_UNIT"
	StateUnitFailed  State = "UNIT_FAILED"
	StateCapReached  State = "CAP_REACHED"
	StateNoMoreUnits State = "NO_MORE_UNITS"
	StateExhausted   State = "EXHAUSTED"
)

// Outcome is how a run ended. Every outcome but OutcomeAborted is a success.
type Outcome string

const (
	OutcomeExhausted   Outcome = "exhausted"
	OutcomeNoMoreUnits Outcome = "no-more-units"
	OutcomeCapReached  Outcome = "cap-reached"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeAborted     Outcome = "aborted"
)

// Failure is a unit that produced no (or only part of its) records.
type Failure struct {
	Unit    string
	Kind    string
	Message string
}

type Summary struct {
	RunID   string
	Mode    string
	Outcome Outcome

	Attempted int
	Succeeded int
	Failed    int
	// Skipped units were checkpointed by an earlier run.
	Skipped  int
	Failures []Failure

	// Fetched counts records before deduplication.
	Fetched    int
	Written    int
	Duplicates int

	// Regions, Identifiers and TotalAmount describe the records written by
	// this run.
	Regions     int
	Identifiers int
	// TotalAmount is in cents.
	TotalAmount int64

	Started  time.Time
	Duration time.Duration
}

// RunState is the mutable state of one run.
type RunState struct {
	State   State
	Unit    Unit
	Summary Summary
	tally   *Tally
}
