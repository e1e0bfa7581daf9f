// Package pgstore keeps collections as JSONB documents in a PostgreSQL table.
package pgstore

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

const (
	loadQuery     = `SELECT data FROM collections WHERE name = $1`
	lockQuery     = `SELECT pg_advisory_xact_lock(hashtext($1))`
	saveQuery     = `INSERT INTO collections (name, data, updated_at) VALUES ($1, $2, now()) ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	deleteQuery   = `DELETE FROM collections WHERE name = $1`
	loadLockQuery = loadQuery + ` FOR UPDATE`
)

type Store struct {
	db *sqlx.DB
}

var _ core.RecordStore = (*Store)(nil) // interface compliance check

// Open connects to the app database, waits for it and applies pending migrations.
func Open(conf *core.Config) (*Store, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := pingFunc(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Load(ctx context.Context, coll core.Collection) ([]byte, error) {
	var data []byte
	if err := s.db.GetContext(ctx, &data, loadQuery, string(coll)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrCollectionNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, coll core.Collection, data []byte) error {
	_, err := s.db.ExecContext(ctx, saveQuery, string(coll), data)
	return err
}

func (s *Store) Delete(ctx context.Context, coll core.Collection) error {
	_, err := s.db.ExecContext(ctx, deleteQuery, string(coll))
	return err
}

// Update serialises writers of coll with a transaction-scoped advisory lock,
// which also covers collections that have no row yet.
func (s *Store) Update(ctx context.Context, coll core.Collection, fn core.UpdateFunc) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, lockQuery, string(coll)); err != nil {
		return errors.Wrap(err, "locking collection")
	}

	var data []byte
	found := true
	if err = tx.GetContext(ctx, &data, loadLockQuery, string(coll)); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		found = false
	}

	out, err := fn(data, found)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, saveQuery, string(coll), out); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error { return s.db.Close() }
