package testutil

import (
	"context"
	"errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/storage/memstore"
)

var ErrStoreDown = errors.New("store is down")

// FailingStore wraps a memstore and fails writes (and reads when FailReads is set) with ErrStoreDown.
type FailingStore struct {
	*memstore.Store
	FailReads bool
}

var _ core.RecordStore = (*FailingStore)(nil)

func NewFailingStore(failReads bool) *FailingStore {
	return &FailingStore{Store: memstore.Open(), FailReads: failReads}
}

func (s *FailingStore) Load(ctx context.Context, coll core.Collection) ([]byte, error) {
	if s.FailReads {
		return nil, ErrStoreDown
	}
	return s.Store.Load(ctx, coll)
}

func (s *FailingStore) Save(context.Context, core.Collection, []byte) error { return ErrStoreDown }

func (s *FailingStore) Delete(context.Context, core.Collection) error { return ErrStoreDown }

func (s *FailingStore) Update(context.Context, core.Collection, core.UpdateFunc) error {
	return ErrStoreDown
}
