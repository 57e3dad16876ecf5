package store

import (
	"context"
	"database/sql"
	"portalharvest/internal/components/assert"
)

// KeySet is a dedup key set persisted in the store, so duplicates are
// recognized across restarts without rescanning the output.
type KeySet struct {
	ctx  context.Context
	db   *sql.DB
	sink string
	n    int
}

// KeySet loads the persisted key count of the sink. The context bounds every
// later lookup.
func (s Store) KeySet(ctx context.Context) (*KeySet, error) {
	assert.NotNil(ctx)

	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from dedup_key where sink = ?`, s.sink).Scan(&n)
	if err != nil {
		return nil, err
	}
	return &KeySet{ctx: ctx, db: s.db, sink: s.sink, n: n}, nil
}

func (k *KeySet) Has(key string) (bool, error) {
	var one int
	err := k.db.QueryRowContext(
		k.ctx,
		`select 1 from dedup_key where sink = ? and key = ?`,
		k.sink, key,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (k *KeySet) Add(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := k.db.BeginTx(k.ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(k.ctx, `insert or ignore into dedup_key (sink, key) values (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	added := 0
	for _, key := range keys {
		res, err := stmt.ExecContext(k.ctx, k.sink, key)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		added += int(affected)
	}

	err = tx.Commit()
	if err != nil {
		return err
	}
	k.n += added
	return nil
}

func (k *KeySet) Len() int {
	return k.n
}
