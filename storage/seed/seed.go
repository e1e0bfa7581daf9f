// Package seed writes the portal's default data into an empty record store.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/course"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/user"
)

const DefaultPassword = "password123"

var NowFunc = time.Now // mockable

type student struct {
	id, name string
	semester int
	courses  []string
	present  int // of 20 sessions
}

var (
	Courses = []course.Course{
		{ID: "CL1000", Name: "Introduction to Information and Communication Technology", Semester: 1, Credits: 3},
		{ID: "CS1002", Name: "Programming Fundamentals", Semester: 1, Credits: 4},
		{ID: "MT1003", Name: "Calculus and Analytical Geometry", Semester: 1, Credits: 3},
		{ID: "SE1001", Name: "Introduction to Software Engineering", Semester: 3, Credits: 3},
		{ID: "CS2001", Name: "Data Structure", Semester: 3, Credits: 4},
		{ID: "EE2003", Name: "Computer Organization and Assembly Language", Semester: 3, Credits: 3},
	}

	staff = []user.NewUser{
		{ID: "ADMIN001", Name: "System Administrator", Email: "admin@portal.edu", Role: user.RoleAdmin},
		{ID: "TCH001", Name: "Dr. Sarah Johnson", Email: "sarah.johnson@portal.edu", Role: user.RoleTeacher, Courses: []string{"CS1002", "CS2001"}},
		{ID: "TCH002", Name: "Prof. Michael Chen", Email: "michael.chen@portal.edu", Role: user.RoleTeacher, Courses: []string{"MT1003", "SE1001"}},
		{ID: "TCH003", Name: "Dr. Emily Davis", Email: "emily.davis@portal.edu", Role: user.RoleTeacher, Courses: []string{"CL1000", "EE2003"}},
		{ID: "TCH004", Name: "Prof. James Wilson", Email: "james.wilson@portal.edu", Role: user.RoleTeacher, Courses: []string{"CS1002", "SE1001"}},
	}

	students = []student{
		{"STU001", "Ahmed Hassan", 1, []string{"CS1002", "MT1003"}, 18},
		{"STU002", "Maria Garcia", 1, []string{"CL1000", "CS1002"}, 16},
		{"STU003", "John Smith", 1, []string{"MT1003", "CL1000"}, 14},
		{"STU004", "Fatima Ali", 1, []string{"CS1002", "CL1000"}, 19},
		{"STU005", "David Wilson", 1, []string{"MT1003"}, 12},
		{"STU006", "Priya Sharma", 1, []string{"CL1000", "CS1002"}, 17},
		{"STU007", "James Brown", 1, []string{"MT1003", "CL1000"}, 15},
		{"STU008", "Aisha Khan", 1, []string{"CS1002"}, 20},
		{"STU009", "Carlos Rodriguez", 1, []string{"CL1000", "MT1003"}, 19},
		{"STU010", "Sophia Patel", 1, []string{"CS1002", "MT1003"}, 16},
		{"STU011", "Hassan Malik", 1, []string{"CL1000"}, 18},
		{"STU012", "Isabella Rossi", 1, []string{"MT1003", "CS1002"}, 17},
		{"STU013", "Lucas Fernandes", 1, []string{"CL1000"}, 14},
		{"STU014", "Amira Hassan", 1, []string{"CS1002", "CL1000"}, 19},
		{"STU015", "Oliver Thompson", 1, []string{"MT1003"}, 15},
		{"STU016", "Yasmin Ibrahim", 3, []string{"SE1001", "CS2001"}, 18},
		{"STU017", "Muhammad Ahmed", 3, []string{"CS2001", "EE2003"}, 20},
		{"STU018", "Zainab Khan", 3, []string{"SE1001", "EE2003"}, 16},
		{"STU019", "Karim Hassan", 3, []string{"SE1001"}, 19},
		{"STU020", "Leila Mostafa", 3, []string{"CS2001"}, 17},
		{"STU021", "Nasser Khalil", 3, []string{"EE2003", "SE1001"}, 14},
		{"STU022", "Rabia Omar", 3, []string{"CS2001", "SE1001"}, 18},
		{"STU023", "Tariq Saleh", 3, []string{"EE2003"}, 15},
		{"STU024", "Hana Rashid", 3, []string{"SE1001", "CS2001"}, 19},
		{"STU025", "Samir Hussain", 3, []string{"EE2003", "CS2001"}, 16},
		{"STU026", "Dina Farrah", 3, []string{"SE1001"}, 20},
		{"STU027", "Adel Nasser", 3, []string{"CS2001", "EE2003"}, 17},
		{"STU028", "Noor Mansour", 3, []string{"SE1001", "EE2003"}, 18},
		{"STU029", "Rami Farah", 3, []string{"CS2001"}, 14},
		{"STU030", "Nadia Hassan", 3, []string{"EE2003", "SE1001"}, 19},
	}

	results = []grading.NewResult{
		{StudentID: "STU001", Course: "CS1002", Quiz: 85, Assignment: 90, Midterm: 78, Final: 82},
		{StudentID: "STU002", Course: "CS1002", Quiz: 92, Assignment: 88, Midterm: 95, Final: 90},
		{StudentID: "STU003", Course: "MT1003", Quiz: 70, Assignment: 75, Midterm: 68, Final: 72},
		{StudentID: "STU004", Course: "CS1002", Quiz: 95, Assignment: 98, Midterm: 92, Final: 96},
		{StudentID: "STU016", Course: "SE1001", Quiz: 88, Assignment: 92, Midterm: 85, Final: 89},
		{StudentID: "STU017", Course: "CS2001", Quiz: 80, Assignment: 85, Midterm: 78, Final: 82},
	}
)

const sessionsPerStudent = 20

// Seeder writes default data through the portal services.
type Seeder struct {
	store   core.RecordStore
	users   *user.Service
	grading *grading.Service
	logger  core.Logger
}

func NewSeeder(store core.RecordStore, usrSvc *user.Service, grdSvc *grading.Service, logger core.Logger) *Seeder {
	return &Seeder{store: store, users: usrSvc, grading: grdSvc, logger: logger}
}

// Initialize seeds every collection that was never written. Existing collections are left untouched.
func (s *Seeder) Initialize(ctx context.Context) error {
	steps := []struct {
		coll core.Collection
		fn   func(context.Context) (int, error)
	}{
		{core.Users, s.seedUsers},
		{core.Courses, s.seedCourses},
		{core.Attendance, s.seedAttendance},
		{core.Results, s.seedResults},
		{core.AttendanceHistory, s.seedHistory},
	}
	for _, step := range steps {
		exists, err := s.exists(ctx, step.coll)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		n, err := step.fn(ctx)
		if err != nil {
			return errors.Wrapf(err, "seeding %s", step.coll)
		}
		s.logger.Info(fmt.Sprintf("seeded %s: %d entries", step.coll, n))
	}
	return nil
}

func (s *Seeder) exists(ctx context.Context, coll core.Collection) (bool, error) {
	_, err := s.store.Load(ctx, coll)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, core.ErrCollectionNotFound) {
		return false, nil
	}
	return false, core.NewPersistenceError("load", coll, err)
}

func (s *Seeder) seedUsers(ctx context.Context) (int, error) {
	nus := make([]user.NewUser, 0, len(staff)+len(students))
	for _, nu := range staff {
		nu.Password = DefaultPassword
		nus = append(nus, nu)
	}
	for _, stu := range students {
		nus = append(nus, user.NewUser{
			ID:       stu.id,
			Name:     stu.name,
			Email:    emailOf(stu.name),
			Role:     user.RoleStudent,
			Semester: stu.semester,
			Courses:  stu.courses,
			Password: DefaultPassword,
		})
	}
	users, err := s.users.CreateMany(ctx, nus...)
	return len(users), err
}

func (s *Seeder) seedCourses(ctx context.Context) (int, error) {
	return len(Courses), core.SaveJSON(ctx, s.store, core.Courses, Courses)
}

// seedAttendance writes counters only: past sessions predate per-session records.
func (s *Seeder) seedAttendance(ctx context.Context) (int, error) {
	ledger := make(attendance.Ledger, len(students))
	for _, stu := range students {
		ledger[stu.id] = &attendance.StudentAttendance{
			Present: stu.present,
			Absent:  sessionsPerStudent - stu.present,
			Total:   sessionsPerStudent,
			Records: []attendance.Record{},
		}
	}
	return len(ledger), core.SaveJSON(ctx, s.store, core.Attendance, ledger)
}

func (s *Seeder) seedResults(ctx context.Context) (int, error) {
	saved, err := s.grading.Import(ctx, results)
	return len(saved), err
}

// seedHistory writes one CS1002 session per day for the last 6 days.
func (s *Seeder) seedHistory(ctx context.Context) (int, error) {
	now := NowFunc().UTC()
	history := make(attendance.History, 0, 6)
	for i := 5; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		present := 6 + (i % 3)
		history = append(history, attendance.HistoryEntry{
			ID:         uuid.New().String(),
			Date:       day.Format("2006-01-02"),
			Course:     "CS1002",
			Present:    present,
			Absent:     8 - present,
			Total:      8,
			RecordedAt: day,
		})
	}
	return len(history), core.SaveJSON(ctx, s.store, core.AttendanceHistory, history)
}

// emailOf derives "first.last@student.edu" from a student name.
func emailOf(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@student.edu"
}
