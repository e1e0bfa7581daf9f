package attendance

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

// Status of a student at one session.
type Status string

const (
	Present Status = "present"
	Absent  Status = "absent"
)

func (s Status) Valid() bool { return s == Present || s == Absent }

// ParseStatus reads a status case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(core.CleanString(s, true /* lower */))
	if !st.Valid() {
		return "", errors.Errorf("invalid status %q", s)
	}
	return st, nil
}

// Record is the status of a student at the session of Date in Course.
// A student has at most one Record per (Date, Course).
type Record struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Course string `json:"course"`
	Status Status `json:"status"`
}

// StudentAttendance holds the counters and records of one student.
// Present + Absent == Total at all times.
type StudentAttendance struct {
	Present int      `json:"present"`
	Absent  int      `json:"absent"`
	Total   int      `json:"total"`
	Records []Record `json:"records"`
}

func (sa *StudentAttendance) inc(st Status, delta int) {
	if st == Present {
		sa.Present += delta
	} else {
		sa.Absent += delta
	}
}

// mark records st for (date, course): an existing record is updated in place
// and moves one count between counters, a new one grows the total.
func (sa *StudentAttendance) mark(date, course string, st Status) {
	for i := range sa.Records {
		rec := &sa.Records[i]
		if rec.Date == date && rec.Course == course {
			sa.inc(rec.Status, -1)
			rec.Status = st
			sa.inc(st, 1)
			return
		}
	}
	sa.Records = append(sa.Records, Record{Date: date, Course: course, Status: st})
	sa.inc(st, 1)
	sa.Total++
}

// PresentOn reports the status of the first record of date, in recording order.
// A student with several sessions that day is judged on the first one.
func (sa *StudentAttendance) PresentOn(date string) bool {
	for _, rec := range sa.Records {
		if rec.Date == date {
			return rec.Status == Present
		}
	}
	return false
}

// Below reports whether the student attends less than threshold percent.
// The exact ratio is compared, not the rounded Percentage.
func (sa *StudentAttendance) Below(threshold float64) bool {
	return sa.Total > 0 && float64(sa.Present)/float64(sa.Total)*100 < threshold
}

func (sa *StudentAttendance) Summary() Summary {
	return sa.summary(LowThreshold)
}

func (sa *StudentAttendance) summary(threshold float64) Summary {
	return Summary{
		Present:    sa.Present,
		Absent:     sa.Absent,
		Total:      sa.Total,
		Percentage: Percentage(sa.Present, sa.Total),
		IsLow:      sa.Below(threshold),
	}
}

// Mark is one attendance entry to record.
type Mark struct {
	StudentID string `json:"student_id" validate:"required,notblank"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Course    string `json:"course" validate:"required,notblank"`
	Status    Status `json:"status" validate:"required,oneof=present absent"`
}

// Ledger maps a student ID to their attendance.
type Ledger map[string]*StudentAttendance

const dateLayout = "2006-01-02"

func (m *Mark) clean() {
	m.StudentID = core.CleanString(m.StudentID)
	m.Date = core.CleanString(m.Date)
	m.Course = core.CleanString(m.Course)
}

// Mark applies every mark to the ledger, allocating it when nil. The whole batch is checked first:
// when any mark is invalid, a core.ValidationError is returned and the ledger is left untouched.
func (l *Ledger) Mark(marks ...Mark) error {
	cleaned := make([]Mark, len(marks))
	var fldErrs []core.FieldError
	for i, m := range marks {
		m.clean()
		cleaned[i] = m

		fld := func(name string) string { return fmt.Sprintf("marks[%d].%s", i, name) }
		if m.StudentID == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: fld("student_id"), Error: "this field is required"})
		}
		if m.Date == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: fld("date"), Error: "this field is required"})
		} else if _, err := time.Parse(dateLayout, m.Date); err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: fld("date"), Error: "expected format: YYYY-MM-DD"})
		}
		if m.Course == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: fld("course"), Error: "this field is required"})
		}
		if !m.Status.Valid() {
			fldErrs = append(fldErrs, core.FieldError{Field: fld("status"), Error: "invalid status"})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(errors.New("invalid attendance marks"), fldErrs...)
	}

	if *l == nil {
		*l = make(Ledger)
	}
	for _, m := range cleaned {
		sa, ok := l.Get(m.StudentID)
		if !ok {
			sa = &StudentAttendance{Records: []Record{}}
			(*l)[m.StudentID] = sa
		}
		sa.mark(m.Date, m.Course, m.Status)
	}
	return nil
}

// Get returns the attendance of a student. A nil entry counts as missing.
func (l Ledger) Get(studentID string) (*StudentAttendance, bool) {
	sa := l[studentID]
	return sa, sa != nil
}

// SummaryFor returns the summary of a student; a student without attendance has an all-zero summary.
func (l Ledger) SummaryFor(studentID string) Summary {
	return l.SummaryBelow(studentID, LowThreshold)
}

// SummaryBelow is SummaryFor with IsLow flagged against threshold.
func (l Ledger) SummaryBelow(studentID string, threshold float64) Summary {
	sa, ok := l.Get(studentID)
	if !ok {
		return Summary{}
	}
	return sa.summary(threshold)
}

// Summary is derived from a StudentAttendance. A student without records is never low.
type Summary struct {
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	IsLow      bool    `json:"is_low"`
}

// Percentage returns present/total as a percentage rounded to one decimal, 0 when total is 0.
func Percentage(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return core.Round(float64(present)/float64(total)*100, 1)
}
