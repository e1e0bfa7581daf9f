package report

import (
	"context"
	"time"

	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/user"
)

// StudentReport is the marksheet of a student.
type StudentReport struct {
	Student     user.User            `json:"student"`
	Results     []grading.Result     `json:"results"`
	Overall     *grading.Performance `json:"overall"` // nil: no data
	Attendance  attendance.Summary   `json:"attendance"`
	Standing    attendance.Standing  `json:"standing,omitempty"`
	LatestGrade string               `json:"latest_grade,omitempty"`
	Records     []attendance.Record  `json:"records"`
	GeneratedAt time.Time            `json:"generated_at"` // UTC
}

func (svc *Service) StudentReport(ctx context.Context, studentID string) (StudentReport, error) {
	stu, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	if !stu.IsStudent() {
		return StudentReport{}, ErrNotStudent
	}

	results, err := svc.grading.ForStudent(ctx, stu.ID)
	if err != nil {
		return StudentReport{}, err
	}
	ledger, err := svc.attendance.Ledger(ctx)
	if err != nil {
		return StudentReport{}, err
	}

	rep := StudentReport{
		Student:     stu,
		Results:     results,
		Records:     []attendance.Record{},
		GeneratedAt: NowFunc().UTC(),
	}
	if perf, ok := grading.OverallPerformance(results, svc.grading.Engine().Scale()); ok {
		rep.Overall = &perf
	}
	if len(results) > 0 {
		rep.LatestGrade = results[0].Grade
	}

	rep.Attendance = ledger.SummaryBelow(stu.ID, svc.attendance.LowThreshold())
	rep.Standing = standing(rep.Attendance)
	if sa, ok := ledger.Get(stu.ID); ok && sa.Records != nil {
		rep.Records = sa.Records
	}
	return rep, nil
}

type (
	AttendanceRow struct {
		StudentID  string              `json:"student_id"`
		Name       string              `json:"name"`
		Present    int                 `json:"present"`
		Absent     int                 `json:"absent"`
		Total      int                 `json:"total"`
		Percentage float64             `json:"percentage"`
		Standing   attendance.Standing `json:"standing,omitempty"`
	}

	CourseRow struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Semester int    `json:"semester"`
		Credits  int    `json:"credits"`
		Teachers int    `json:"teachers"`
		Students int    `json:"students"`
	}
)

// AttendanceReport lists the attendance of every student, ordered by ID.
func (svc *Service) AttendanceReport(ctx context.Context) ([]AttendanceRow, error) {
	students, err := svc.users.QueryByRole(ctx, user.RoleStudent)
	if err != nil {
		return nil, err
	}
	ledger, err := svc.attendance.Ledger(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]AttendanceRow, 0, len(students))
	for _, s := range students {
		sum := ledger.SummaryFor(s.ID)
		rows = append(rows, AttendanceRow{
			StudentID:  s.ID,
			Name:       s.Name,
			Present:    sum.Present,
			Absent:     sum.Absent,
			Total:      sum.Total,
			Percentage: sum.Percentage,
			Standing:   standing(sum),
		})
	}
	return rows, nil
}

// CourseOverview counts the teachers and students assigned to each course of the catalogue.
func (svc *Service) CourseOverview(ctx context.Context) ([]CourseRow, error) {
	courses, err := svc.courses.All(ctx)
	if err != nil {
		return nil, err
	}
	users, err := svc.users.Query(ctx, user.QueryFilter{})
	if err != nil {
		return nil, err
	}

	rows := make([]CourseRow, 0, len(courses))
	for _, c := range courses {
		row := CourseRow{ID: c.ID, Name: c.Name, Semester: c.Semester, Credits: c.Credits}
		for _, u := range users {
			if !u.HasCourse(c.ID) {
				continue
			}
			switch u.Role {
			case user.RoleTeacher:
				row.Teachers++
			case user.RoleStudent:
				row.Students++
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
