package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core"
)

// RunRecordStoreTests checks that store honours the core.RecordStore contract.
// store must be empty.
func RunRecordStoreTests(t *testing.T, store core.RecordStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("load absent", func(t *testing.T) {
		_, err := store.Load(ctx, core.Courses)
		assert.True(t, errors.Is(err, core.ErrCollectionNotFound), "got %v", err)
	})

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, core.Courses, []byte(`[{"id":"CS1002"}]`)))
		data, err := store.Load(ctx, core.Courses)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"CS1002"}]`, string(data))

		// whole-collection replace
		require.NoError(t, store.Save(ctx, core.Courses, []byte(`[]`)))
		data, err = store.Load(ctx, core.Courses)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(data))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, core.CurrentSession, []byte(`{"id":"STU001"}`)))
		require.NoError(t, store.Delete(ctx, core.CurrentSession))
		_, err := store.Load(ctx, core.CurrentSession)
		assert.True(t, errors.Is(err, core.ErrCollectionNotFound), "got %v", err)

		// absent: no-op
		assert.NoError(t, store.Delete(ctx, core.CurrentSession))
	})

	t.Run("update", func(t *testing.T) {
		err := store.Update(ctx, core.Results, func(data []byte, found bool) ([]byte, error) {
			assert.False(t, found)
			return []byte(`[1]`), nil
		})
		require.NoError(t, err)

		err = store.Update(ctx, core.Results, func(data []byte, found bool) ([]byte, error) {
			assert.True(t, found)
			assert.JSONEq(t, `[1]`, string(data))
			return []byte(`[1,2]`), nil
		})
		require.NoError(t, err)

		// a failing update writes nothing
		errBoom := errors.New("boom")
		err = store.Update(ctx, core.Results, func([]byte, bool) ([]byte, error) { return nil, errBoom })
		assert.True(t, errors.Is(err, errBoom), "got %v", err)

		data, err := store.Load(ctx, core.Results)
		require.NoError(t, err)
		assert.JSONEq(t, `[1,2]`, string(data))
	})

	t.Run("concurrent updates", func(t *testing.T) {
		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Update(ctx, core.AttendanceHistory, func(data []byte, found bool) ([]byte, error) {
					count := 0
					if found {
						c, err := strconv.Atoi(string(data))
						if err != nil {
							return nil, err
						}
						count = c
					}
					return []byte(strconv.Itoa(count + 1)), nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		data, err := store.Load(ctx, core.AttendanceHistory)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(n), string(data))
	})
}
