package course

import (
	"context"
	"errors"
	"sort"

	"github.com/trezcool/portal/core"
)

var ErrNotFound = errors.New("course not found")

type Course struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Semester int    `json:"semester"`
	Credits  int    `json:"credits"`
}

// Service reads the course catalogue from a core.RecordStore.
type Service struct {
	store core.RecordStore
}

func NewService(store core.RecordStore) *Service {
	return &Service{store: store}
}

// All returns the catalogue ordered by semester, then by ID.
func (svc *Service) All(ctx context.Context) ([]Course, error) {
	courses := make([]Course, 0)
	if _, err := core.LoadJSON(ctx, svc.store, core.Courses, &courses); err != nil {
		return nil, err
	}
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Semester != courses[j].Semester {
			return courses[i].Semester < courses[j].Semester
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	courses, err := svc.All(ctx)
	if err != nil {
		return Course{}, err
	}
	for _, c := range courses {
		if c.ID == id {
			return c, nil
		}
	}
	return Course{}, ErrNotFound
}

// BySemester returns the courses taught in semester.
func (svc *Service) BySemester(ctx context.Context, semester int) ([]Course, error) {
	courses, err := svc.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Course, 0)
	for _, c := range courses {
		if c.Semester == semester {
			out = append(out, c)
		}
	}
	return out, nil
}

// Exists reports whether every id is in the catalogue and returns the unknown ones.
func (svc *Service) Exists(ctx context.Context, ids ...string) (unknown []string, err error) {
	courses, err := svc.All(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(courses))
	for _, c := range courses {
		known[c.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	return unknown, nil
}
