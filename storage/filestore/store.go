// Package filestore keeps each collection in its own JSON file under a directory.
package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

type Store struct {
	mu  sync.Mutex
	dir string
}

var _ core.RecordStore = (*Store)(nil) // interface compliance check

// Open creates dir when it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating store dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(coll core.Collection) string {
	return filepath.Join(s.dir, string(coll)+".json")
}

func (s *Store) read(coll core.Collection) ([]byte, error) {
	data, err := os.ReadFile(s.path(coll))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrCollectionNotFound
		}
		return nil, err
	}
	return data, nil
}

// write replaces the file of coll through a rename, so readers never see a partial file.
func (s *Store) write(coll core.Collection, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+string(coll)+"-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(coll))
}

func (s *Store) Load(ctx context.Context, coll core.Collection) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(coll)
}

func (s *Store) Save(ctx context.Context, coll core.Collection, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(coll, data)
}

func (s *Store) Delete(ctx context.Context, coll core.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(coll)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) Update(ctx context.Context, coll core.Collection, fn core.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(coll)
	found := true
	if err == core.ErrCollectionNotFound {
		found = false
	} else if err != nil {
		return err
	}

	out, err := fn(data, found)
	if err != nil {
		return err
	}
	return s.write(coll, out)
}

func (s *Store) Close() error { return nil }
