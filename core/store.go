package core

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection is the semantic key of a whole collection held by a RecordStore.
type Collection string

const (
	Users             Collection = "portal_users"
	Courses           Collection = "portal_courses"
	Attendance        Collection = "portal_attendance"
	Results           Collection = "portal_results"
	AttendanceHistory Collection = "portal_attendance_history"
	CurrentSession    Collection = "portal_current_user"
)

var AllCollections = []Collection{Users, Courses, Attendance, Results, AttendanceHistory, CurrentSession}

var ErrCollectionNotFound = errors.New("collection not found")

type (
	// UpdateFunc receives the current encoded collection (found is false when absent)
	// and returns the encoded value to store in its place.
	UpdateFunc func(data []byte, found bool) ([]byte, error)

	// RecordStore persists whole collections. Each write replaces the stored value wholesale.
	RecordStore interface {
		// Load returns ErrCollectionNotFound when nothing was ever saved under coll.
		Load(ctx context.Context, coll Collection) ([]byte, error)
		Save(ctx context.Context, coll Collection, data []byte) error
		Delete(ctx context.Context, coll Collection) error
		// Update runs a read-modify-write of coll atomically with respect to other writers.
		Update(ctx context.Context, coll Collection, fn UpdateFunc) error
		Close() error
	}
)

// LoadJSON decodes coll into v. found is false (and v untouched) when the collection is absent.
func LoadJSON(ctx context.Context, store RecordStore, coll Collection, v interface{}) (found bool, err error) {
	data, err := store.Load(ctx, coll)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return false, nil
		}
		return false, NewPersistenceError("load", coll, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, NewPersistenceError("decode", coll, err)
	}
	return true, nil
}

func SaveJSON(ctx context.Context, store RecordStore, coll Collection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return NewPersistenceError("encode", coll, err)
	}
	if err := store.Save(ctx, coll, data); err != nil {
		return NewPersistenceError("save", coll, err)
	}
	return nil
}

// UpdateJSON decodes coll into a fresh value produced by newFn, lets mutate change it, then stores the result.
// Nothing is written when mutate fails; its error is returned as is.
func UpdateJSON(ctx context.Context, store RecordStore, coll Collection, newFn func() interface{}, mutate func(v interface{}) error) error {
	var mutateErr error
	err := store.Update(ctx, coll, func(data []byte, found bool) ([]byte, error) {
		v := newFn()
		if found {
			if err := json.Unmarshal(data, v); err != nil {
				return nil, NewPersistenceError("decode", coll, err)
			}
		}
		if err := mutate(v); err != nil {
			mutateErr = err
			return nil, err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return nil, NewPersistenceError("encode", coll, err)
		}
		return out, nil
	})
	if mutateErr != nil {
		return mutateErr
	}
	if err != nil {
		if IsPersistenceError(err) {
			return err
		}
		return NewPersistenceError("update", coll, err)
	}
	return nil
}
