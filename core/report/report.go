// Package report assembles portal-wide read models (statistics, dashboards, marksheets)
// from the user, course, grading and attendance services.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/course"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/user"
)

var (
	ErrNotStudent = errors.New("user is not a student")

	NowFunc = time.Now // mockable
)

type Service struct {
	users      *user.Service
	courses    *course.Service
	grading    *grading.Service
	attendance *attendance.Service
}

func NewService(usrSvc *user.Service, crsSvc *course.Service, grdSvc *grading.Service, attSvc *attendance.Service) *Service {
	return &Service{users: usrSvc, courses: crsSvc, grading: grdSvc, attendance: attSvc}
}

type Statistics struct {
	TotalUsers         int     `json:"total_users"`
	TotalStudents      int     `json:"total_students"`
	TotalTeachers      int     `json:"total_teachers"`
	TotalCourses       int     `json:"total_courses"`
	AverageAttendance  float64 `json:"average_attendance"` // whole percent
	AverageGrade       float64 `json:"average_grade"`      // whole points
	LowAttendanceCount int     `json:"low_attendance_count"`
}

// Statistics averages attendance over the ledger entries having at least one record.
func (svc *Service) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics

	users, err := svc.users.Query(ctx, user.QueryFilter{})
	if err != nil {
		return stats, err
	}
	stats.TotalUsers = len(users)
	for _, u := range users {
		switch u.Role {
		case user.RoleStudent:
			stats.TotalStudents++
		case user.RoleTeacher:
			stats.TotalTeachers++
		}
	}

	courses, err := svc.courses.All(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalCourses = len(courses)

	ledger, err := svc.attendance.Ledger(ctx)
	if err != nil {
		return stats, err
	}
	var pctSum float64
	var withRecords int
	for _, sa := range ledger {
		if sa == nil || sa.Total == 0 {
			continue
		}
		pct := float64(sa.Present) / float64(sa.Total) * 100
		pctSum += pct
		withRecords++
		if pct < svc.attendance.LowThreshold() {
			stats.LowAttendanceCount++
		}
	}
	if withRecords > 0 {
		stats.AverageAttendance = core.Round(pctSum/float64(withRecords), 0)
	}

	results, err := svc.grading.All(ctx)
	if err != nil {
		return stats, err
	}
	if len(results) > 0 {
		var sum float64
		for _, r := range results {
			sum += r.Total
		}
		stats.AverageGrade = core.Round(sum/float64(len(results)), 0)
	}
	return stats, nil
}

// standing is empty for a student without records: no data is not a standing.
func standing(sum attendance.Summary) attendance.Standing {
	if sum.Total == 0 {
		return ""
	}
	return attendance.Classify(sum.Percentage)
}

// latestGrades maps each student to the grade of their most recently uploaded result.
func latestGrades(results []grading.Result) map[string]string {
	grades := make(map[string]string)
	for _, r := range results { // newest first
		if _, ok := grades[r.StudentID]; !ok {
			grades[r.StudentID] = r.Grade
		}
	}
	return grades
}

func studentIDs(students []user.User) []string {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	return ids
}
