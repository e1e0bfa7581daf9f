package report

import (
	"context"

	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/user"
)

type (
	LowAttendanceAlert struct {
		StudentID  string  `json:"student_id"`
		Name       string  `json:"name"`
		Email      string  `json:"email"`
		Percentage float64 `json:"percentage"`
	}

	StudentRow struct {
		StudentID   string              `json:"student_id"`
		Name        string              `json:"name"`
		Percentage  float64             `json:"percentage"`
		Standing    attendance.Standing `json:"standing,omitempty"`
		LatestGrade string              `json:"latest_grade,omitempty"`
	}

	TeacherDashboard struct {
		Date            string               `json:"date"`
		Students        int                  `json:"students"`
		TodaysPresence  float64              `json:"todays_presence"`
		LowAttendance   []LowAttendanceAlert `json:"low_attendance"`
		ResultsUploaded int                  `json:"results_uploaded"`
		Rows            []StudentRow         `json:"rows"`
	}
)

// TeacherDashboard summarises the students taking course ("" or "all" for every student) as of today (YYYY-MM-DD).
func (svc *Service) TeacherDashboard(ctx context.Context, today, course string) (TeacherDashboard, error) {
	filter := user.QueryFilter{Role: user.RoleStudent, Course: course}
	filter.Clean()
	if filter.Course == "all" {
		filter.Course = ""
	}

	students, err := svc.users.Query(ctx, filter)
	if err != nil {
		return TeacherDashboard{}, err
	}
	ledger, err := svc.attendance.Ledger(ctx)
	if err != nil {
		return TeacherDashboard{}, err
	}
	results, err := svc.grading.Query(ctx, grading.QueryFilter{Course: filter.Course})
	if err != nil {
		return TeacherDashboard{}, err
	}

	ids := studentIDs(students)
	names := make(map[string]user.User, len(students))
	for _, s := range students {
		names[s.ID] = s
	}

	dash := TeacherDashboard{
		Date:            today,
		Students:        len(students),
		TodaysPresence:  attendance.TodaysPresencePercentage(ids, ledger, today),
		LowAttendance:   make([]LowAttendanceAlert, 0),
		ResultsUploaded: len(results),
		Rows:            make([]StudentRow, 0, len(students)),
	}
	for _, e := range attendance.LowAttendanceRoster(ids, ledger, svc.attendance.LowThreshold()) {
		s := names[e.StudentID]
		dash.LowAttendance = append(dash.LowAttendance, LowAttendanceAlert{
			StudentID:  s.ID,
			Name:       s.Name,
			Email:      s.Email,
			Percentage: e.Summary.Percentage,
		})
	}

	grades := latestGrades(results)
	for _, s := range students {
		sum := ledger.SummaryFor(s.ID)
		dash.Rows = append(dash.Rows, StudentRow{
			StudentID:   s.ID,
			Name:        s.Name,
			Percentage:  sum.Percentage,
			Standing:    standing(sum),
			LatestGrade: grades[s.ID],
		})
	}
	return dash, nil
}

// Today returns the current date as YYYY-MM-DD.
func Today() string {
	return NowFunc().Format("2006-01-02")
}

