package grading

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/portal/core"
)

// Result is the graded outcome of one student in one course.
// There is at most one Result per (StudentID, Course).
type Result struct {
	StudentID string `json:"student_id"`
	Course    string `json:"course"`
	Scores
	Total      float64   `json:"total"`
	Grade      string    `json:"grade"`
	GPA        float64   `json:"gpa"`
	UploadedAt time.Time `json:"uploaded_at"` // UTC
}

func (r Result) sameKey(studentID, course string) bool {
	return r.StudentID == studentID && r.Course == course
}

// Performance is the overall standing of a student across all of their results.
type Performance struct {
	AverageTotal float64 `json:"average_total"`
	Grade        string  `json:"grade"`
	GPA          float64 `json:"gpa"`
	Courses      int     `json:"courses"`
}

// UpsertResult returns a copy of results where r replaces the result with the same
// (StudentID, Course), or is appended when there is none.
func UpsertResult(results []Result, r Result) []Result {
	out := make([]Result, 0, len(results)+1)
	var replaced bool
	for _, res := range results {
		if res.sameKey(r.StudentID, r.Course) {
			if replaced {
				continue
			}
			res = r
			replaced = true
		}
		out = append(out, res)
	}
	if !replaced {
		out = append(out, r)
	}
	return out
}

// DeleteResult returns a copy of results without the result of (studentID, course).
// removed is false when there was no such result.
func DeleteResult(results []Result, studentID, course string) (out []Result, removed bool) {
	out = make([]Result, 0, len(results))
	for _, res := range results {
		if res.sameKey(studentID, course) {
			removed = true
			continue
		}
		out = append(out, res)
	}
	return out, removed
}

// OverallPerformance averages the totals of results and re-grades that average;
// the GPA is the mean of the GPA of each result's letter, rounded to two decimals.
// ok is false when there are no results.
func OverallPerformance(results []Result, sc Scale) (perf Performance, ok bool) {
	if len(results) == 0 {
		return Performance{}, false
	}
	var totalSum, gpaSum float64
	for _, r := range results {
		totalSum += r.Total
		gpaSum += sc.GPAFor(r.Grade)
	}
	n := float64(len(results))
	avg := totalSum / n
	return Performance{
		AverageTotal: core.Round(avg, 1),
		Grade:        sc.GradeFor(avg),
		GPA:          core.Round(gpaSum/n, 2),
		Courses:      len(results),
	}, true
}

// NewResult contains the information needed to grade and save a Result.
// Marks left out are worth 0.
type NewResult struct {
	StudentID  string  `json:"student_id" validate:"required,notblank"`
	Course     string  `json:"course" validate:"required,notblank"`
	Quiz       float64 `json:"quiz"`
	Assignment float64 `json:"assignment"`
	Midterm    float64 `json:"midterm"`
	Final      float64 `json:"final"`
}

func (nr *NewResult) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.Course = core.CleanString(nr.Course)
	return validate.Struct(nr)
}

func (nr NewResult) Scores() Scores {
	return Scores{
		Quiz:       nr.Quiz,
		Assignment: nr.Assignment,
		Midterm:    nr.Midterm,
		Final:      nr.Final,
	}
}

// QueryFilter narrows a results query. Empty fields and Course "all" match everything.
type QueryFilter struct {
	StudentID string `query:"student"`
	Course    string `query:"course"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Course = core.CleanString(qf.Course)
	if qf.Course == "all" {
		qf.Course = ""
	}
}

func (qf QueryFilter) match(r Result) bool {
	return (qf.StudentID == "" || r.StudentID == qf.StudentID) &&
		(qf.Course == "" || qf.Course == "all" || r.Course == qf.Course)
}
