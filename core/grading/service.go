package grading

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

var NowFunc = time.Now // mockable

// Service manages the Results collection of a core.RecordStore.
type Service struct {
	store  core.RecordStore
	engine *Engine
	logger core.Logger
}

func NewService(store core.RecordStore, engine *Engine, logger core.Logger) *Service {
	return &Service{store: store, engine: engine, logger: logger}
}

func (svc *Service) Engine() *Engine { return svc.engine }

func (svc *Service) load(ctx context.Context) ([]Result, error) {
	var results []Result
	if _, err := core.LoadJSON(ctx, svc.store, core.Results, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// update applies fn to the stored results in a single read-modify-write.
func (svc *Service) update(ctx context.Context, fn func([]Result) ([]Result, error)) error {
	return core.UpdateJSON(ctx, svc.store, core.Results,
		func() interface{} { return new([]Result) },
		func(v interface{}) error {
			results := v.(*[]Result)
			out, err := fn(*results)
			if err != nil {
				return err
			}
			*results = out
			return nil
		},
	)
}

// Preview grades nr without saving it.
func (svc *Service) Preview(nr NewResult) (Assessment, []Contribution, error) {
	a, err := svc.engine.Assess(nr.Scores())
	if err != nil {
		return Assessment{}, nil, err
	}
	return a, svc.engine.Breakdown(nr.Scores()), nil
}

func (svc *Service) grade(nr NewResult, now time.Time) (Result, error) {
	a, err := svc.engine.Assess(nr.Scores())
	if err != nil {
		return Result{}, errors.Wrap(err, "assessing scores")
	}
	return Result{
		StudentID:  nr.StudentID,
		Course:     nr.Course,
		Scores:     nr.Scores(),
		Total:      a.Total,
		Grade:      a.Grade,
		GPA:        a.GPA,
		UploadedAt: now.UTC(),
	}, nil
}

// Save grades nr and upserts the Result, replacing any previous one of the same student and course.
func (svc *Service) Save(ctx context.Context, nr NewResult) (Result, error) {
	r, err := svc.grade(nr, NowFunc())
	if err != nil {
		return Result{}, err
	}
	if err := svc.Upsert(ctx, r); err != nil {
		return Result{}, err
	}
	return r, nil
}

// Upsert stores r in a single write of the Results collection.
func (svc *Service) Upsert(ctx context.Context, r Result) error {
	err := svc.update(ctx, func(results []Result) ([]Result, error) {
		return UpsertResult(results, r), nil
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("saving result %s/%s: %v", r.StudentID, r.Course, err), err)
		return err
	}
	svc.logger.Info(fmt.Sprintf("result saved: %s/%s - %.1f (%s)", r.StudentID, r.Course, r.Total, r.Grade))
	return nil
}

// Import grades and upserts every NewResult in a single write: either all are saved or none is.
func (svc *Service) Import(ctx context.Context, nrs []NewResult) ([]Result, error) {
	now := NowFunc()
	graded := make([]Result, 0, len(nrs))
	for _, nr := range nrs {
		r, err := svc.grade(nr, now)
		if err != nil {
			return nil, err
		}
		graded = append(graded, r)
	}

	err := svc.update(ctx, func(results []Result) ([]Result, error) {
		for _, r := range graded {
			results = UpsertResult(results, r)
		}
		return results, nil
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("importing %d results: %v", len(graded), err), err)
		return nil, err
	}
	svc.logger.Info(fmt.Sprintf("%d results imported", len(graded)))
	return graded, nil
}

// Delete removes the result of (studentID, course). Deleting a missing result is a no-op: removed is false.
func (svc *Service) Delete(ctx context.Context, studentID, course string) (removed bool, err error) {
	err = svc.update(ctx, func(results []Result) ([]Result, error) {
		var out []Result
		out, removed = DeleteResult(results, studentID, course)
		return out, nil
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("deleting result %s/%s: %v", studentID, course, err), err)
		return false, err
	}
	if removed {
		svc.logger.Info(fmt.Sprintf("result deleted: %s/%s", studentID, course))
	}
	return removed, nil
}

func (svc *Service) All(ctx context.Context) ([]Result, error) {
	return svc.Query(ctx, QueryFilter{})
}

// Query returns the results matching filter, newest first.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Result, error) {
	results, err := svc.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if filter.match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (svc *Service) ForStudent(ctx context.Context, studentID string) ([]Result, error) {
	return svc.Query(ctx, QueryFilter{StudentID: studentID})
}

// Get returns the result of (studentID, course); found is false when there is none.
func (svc *Service) Get(ctx context.Context, studentID, course string) (r Result, found bool, err error) {
	results, err := svc.load(ctx)
	if err != nil {
		return Result{}, false, err
	}
	for _, res := range results {
		if res.sameKey(studentID, course) {
			return res, true, nil
		}
	}
	return Result{}, false, nil
}

// Overall returns the overall performance of a student; ok is false when they have no results.
func (svc *Service) Overall(ctx context.Context, studentID string) (perf Performance, ok bool, err error) {
	results, err := svc.ForStudent(ctx, studentID)
	if err != nil {
		return Performance{}, false, err
	}
	perf, ok = OverallPerformance(results, svc.engine.Scale())
	return perf, ok, nil
}
