// Package store persists run checkpoints and, optionally, the dedup key set
// next to an output file so an interrupted run can pick up where it stopped.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"portalharvest/internal/components/assert"
	"portalharvest/internal/components/chrono"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Config struct {
	// File is a local sqlite database, used when Url is empty.
	File string `json:"file"`
	// Url points at a remote libsql database.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the configured database and makes sure the schema exists.
func (c Config) OpenDB() (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	if c.Url != "" {
		dsn := c.Url
		if c.AuthToken != "" {
			dsn = withQuery(dsn, "authToken", c.AuthToken)
		}
		db, err = sql.Open("libsql", dsn)
	} else {
		assert.NotEmptyStr(c.File)
		db, err = sql.Open("sqlite", c.File)
		if err == nil {
			// one writer, and a single connection keeps :memory: databases alive
			db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func withQuery(dsn, key, value string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + key + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// Store records the progress of runs against one output file.
type Store struct {
	db   *sql.DB
	sink string
	time chrono.TimeAPI
}

func NewStore(db *sql.DB, sink string, time chrono.TimeAPI) Store {
	assert.NotNil(db)
	assert.NotEmptyStr(sink)
	assert.NotNil(time)
	return Store{db: db, sink: sink, time: time}
}

// MarkCompleted checkpoints a unit as fully written.
func (s Store) MarkCompleted(ctx context.Context, unit string, records int) error {
	_, err := s.db.ExecContext(
		ctx,
		`insert into completed_unit (sink, unit, records, completed_at) values (?, ?, ?, ?)
		on conflict (sink, unit) do update set records = excluded.records, completed_at = excluded.completed_at`,
		s.sink, unit, records, s.time.Now().Unix(),
	)
	return err
}

// Completed returns the set of units already checkpointed for the sink.
func (s Store) Completed(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `select unit from completed_unit where sink = ?`, s.sink)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var unit string
		err = rows.Scan(&unit)
		if err != nil {
			return nil, err
		}
		out[unit] = true
	}
	return out, rows.Err()
}

// Reset forgets every checkpoint and persisted key of the sink.
func (s Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `delete from completed_unit where sink = ?`, s.sink)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `delete from dedup_key where sink = ?`, s.sink)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RunSummary is what gets persisted about a finished run.
type RunSummary struct {
	Outcome   string
	Attempted int
	Succeeded int
	Failed    int
	Fetched   int
	Written   int
}

func (s Store) StartRun(ctx context.Context, id, mode string) error {
	_, err := s.db.ExecContext(
		ctx,
		`insert into run (id, sink, mode, started_at) values (?, ?, ?, ?)`,
		id, s.sink, mode, s.time.Now().Unix(),
	)
	return err
}

func (s Store) FinishRun(ctx context.Context, id string, summary RunSummary) error {
	_, err := s.db.ExecContext(
		ctx,
		`update run set
			finished_at = ?, outcome = ?,
			attempted = ?, succeeded = ?, failed = ?, fetched = ?, written = ?
		where id = ?`,
		s.time.Now().Unix(), summary.Outcome,
		summary.Attempted, summary.Succeeded, summary.Failed, summary.Fetched, summary.Written,
		id,
	)
	return err
}

// Run is a row of the run log.
type Run struct {
	ID       string
	Mode     string
	Started  time.Time
	Finished time.Time
	Summary  RunSummary
}

// Runs lists the runs against the sink, latest first.
func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select id, mode, started_at, coalesce(finished_at, 0), coalesce(outcome, ''),
			attempted, succeeded, failed, fetched, written
		from run where sink = ? order by started_at desc, rowid desc limit ?`,
		s.sink, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		err = rows.Scan(
			&r.ID, &r.Mode, &started, &finished, &r.Summary.Outcome,
			&r.Summary.Attempted, &r.Summary.Succeeded, &r.Summary.Failed,
			&r.Summary.Fetched, &r.Summary.Written,
		)
		if err != nil {
			return nil, err
		}
		r.Started = time.Unix(started, 0)
		if finished > 0 {
			r.Finished = time.Unix(finished, 0)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
