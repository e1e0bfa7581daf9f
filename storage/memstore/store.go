package memstore

import (
	"context"
	"sync"

	"github.com/trezcool/portal/core"
)

// Store keeps every collection in memory. Stored values are copied in and out.
type Store struct {
	sync.RWMutex
	table map[core.Collection][]byte
}

var _ core.RecordStore = (*Store)(nil) // interface compliance check

func Open() *Store {
	return &Store{table: make(map[core.Collection][]byte)}
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

func (s *Store) Load(_ context.Context, coll core.Collection) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()

	data, ok := s.table[coll]
	if !ok {
		return nil, core.ErrCollectionNotFound
	}
	return clone(data), nil
}

func (s *Store) Save(_ context.Context, coll core.Collection, data []byte) error {
	s.Lock()
	defer s.Unlock()

	s.table[coll] = clone(data)
	return nil
}

func (s *Store) Delete(_ context.Context, coll core.Collection) error {
	s.Lock()
	defer s.Unlock()

	delete(s.table, coll)
	return nil
}

func (s *Store) Update(ctx context.Context, coll core.Collection, fn core.UpdateFunc) error {
	s.Lock()
	defer s.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	data, found := s.table[coll]
	out, err := fn(clone(data), found)
	if err != nil {
		return err
	}
	s.table[coll] = clone(out)
	return nil
}

// Reset drops every collection.
func (s *Store) Reset() {
	s.Lock()
	defer s.Unlock()

	s.table = make(map[core.Collection][]byte)
}

func (s *Store) Close() error { return nil }
