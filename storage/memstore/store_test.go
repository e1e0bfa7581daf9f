package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/storage/memstore"
	"github.com/trezcool/portal/testutil"
)

func TestStore(t *testing.T) {
	testutil.RunRecordStoreTests(t, memstore.Open())
}

func TestStore_copies(t *testing.T) {
	ctx := context.Background()
	store := memstore.Open()

	in := []byte(`"abc"`)
	require.NoError(t, store.Save(ctx, core.Courses, in))
	in[1] = 'x'

	out, err := store.Load(ctx, core.Courses)
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(out))

	out[1] = 'y'
	again, err := store.Load(ctx, core.Courses)
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(again))
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := memstore.Open()
	require.NoError(t, store.Save(ctx, core.Courses, []byte(`[]`)))

	store.Reset()
	_, err := store.Load(ctx, core.Courses)
	assert.Equal(t, core.ErrCollectionNotFound, err)
}

func TestStore_Update_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := memstore.Open().Update(ctx, core.Courses, func([]byte, bool) ([]byte, error) {
		t.Fatal("update func called")
		return nil, nil
	})
	assert.Equal(t, context.Canceled, err)
}
