// Package dedupe filters records whose (identifier, period) key was already
// accepted during the run.
package dedupe

import (
	"portalharvest/internal/record"
)

// KeySet is the growing set of dedup keys a run has accepted. Keys are never
// removed.
//
// note: fault injection point
type KeySet interface {
	Has(key string) (bool, error)
	Add(keys ...string) error
	Len() int
}

// MemorySet is a KeySet held in memory for the duration of a run.
type MemorySet struct {
	keys map[string]struct{}
}

func NewMemorySet() *MemorySet {
	return &MemorySet{keys: map[string]struct{}{}}
}

func (s *MemorySet) Has(key string) (bool, error) {
	_, ok := s.keys[key]
	return ok, nil
}

func (s *MemorySet) Add(keys ...string) error {
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return nil
}

func (s *MemorySet) Len() int {
	return len(s.keys)
}

// Result is the outcome of filtering one batch.
type Result struct {
	Kept    []record.Record
	Dropped int
}

// Filter returns, in their original order, the records whose key is neither in
// the set nor seen earlier in the same batch. The keys of kept records are
// added to the set before returning, so only the first occurrence of a key in
// processing order survives.
func Filter(batch []record.Record, set KeySet) (Result, error) {
	out := Result{Kept: make([]record.Record, 0, len(batch))}
	fresh := make(map[string]struct{}, len(batch))
	var keys []string

	for _, rec := range batch {
		key := rec.Key()
		if _, dup := fresh[key]; dup {
			out.Dropped++
			continue
		}
		seen, err := set.Has(key)
		if err != nil {
			return Result{}, err
		}
		if seen {
			out.Dropped++
			continue
		}
		fresh[key] = struct{}{}
		keys = append(keys, key)
		out.Kept = append(out.Kept, rec)
	}

	if len(keys) > 0 {
		err := set.Add(keys...)
		if err != nil {
			return Result{}, err
		}
	}
	return out, nil
}
