package collect

import (
	"portalharvest/internal/dedupe"
	"portalharvest/internal/record"
	"portalharvest/internal/sink"
)

const seedBatch = 10000

// OpenSink opens the output for appending. The keys of every record already
// in the file are added to the key set first, so a resumed run never writes
// a record the file already holds, even when a persisted key set lags the
// file. Adding a known key is a no-op.
func OpenSink(path string, opts sink.Options, keys dedupe.KeySet) (*sink.Writer, error) {
	var pending []string
	opts.OnExisting = func(r record.Record) error {
		pending = append(pending, r.Key())
		if len(pending) < seedBatch {
			return nil
		}
		err := keys.Add(pending...)
		pending = pending[:0]
		return err
	}
	w, err := sink.Open(path, opts)
	if err != nil {
		return nil, err
	}
	err = keys.Add(pending...)
	if err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
