package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can assert
// on what a component reported.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
	counts  map[string]int64
}

func NewRecorder() *Recorder {
	return &Recorder{counts: map[string]int64{}}
}

func (r *Recorder) push(kind, id string, params []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id] = count
}

// Reports returns every report of the given kind whose id ends with suffix.
func (r *Recorder) Reports(kind, suffix string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if rep.Kind == kind && strings.HasSuffix(rep.ID, suffix) {
			out = append(out, rep)
		}
	}
	return out
}

// Count returns the last count reported under an id ending with suffix.
func (r *Recorder) Count(suffix string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.counts {
		if strings.HasSuffix(id, suffix) {
			return n, true
		}
	}
	return 0, false
}

func (r Report) String() string {
	return fmt.Sprintf("%s %s %v", r.Kind, r.ID, r.Params)
}
