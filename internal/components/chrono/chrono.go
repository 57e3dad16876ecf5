package chrono

import (
	"context"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func (StandardTime) Now() time.Time {
	return time.Now()
}

// Pacer spaces out units of work so the remote source is not hammered.
//
// note: fault injection point
type Pacer interface {
	// Wait blocks until the next unit may start or ctx is done.
	Wait(ctx context.Context) error
}

// SleepPacer waits the full delay on every call, however long the work
// since the previous call took.
type SleepPacer struct {
	Delay time.Duration
}

func (p SleepPacer) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
