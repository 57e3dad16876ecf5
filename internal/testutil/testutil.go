package testutil

import (
	"database/sql"
	"portalharvest/internal/store"
	"testing"

	_ "modernc.org/sqlite"
)

type DBParams struct {
	// if unspecified, store.Schema is applied
	Schema string
	// if unspecified, it will use `:memory:`
	Path string
}

// SetupDB opens a sqlite database that is closed when the test ends.
func SetupDB(t testing.TB, params DBParams) *sql.DB {
	t.Helper()

	path := params.Path
	if path == "" {
		path = ":memory:"
	}
	schema := params.Schema
	if schema == "" {
		schema = store.Schema
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(schema)
	if err != nil {
		t.Fatal(err)
	}
	return db
}
