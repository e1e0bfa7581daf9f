package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/course"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/user"
	"github.com/trezcool/portal/testutil"
)

func newTestSeeder(t *testing.T, store core.RecordStore) (*Seeder, *user.Service, *grading.Service) {
	engine, err := grading.NewEngine(grading.DefaultWeights(), grading.DefaultScale())
	require.NoError(t, err)
	usrSvc := user.NewService(store, testutil.Logger())
	grdSvc := grading.NewService(store, engine, testutil.Logger())
	return NewSeeder(store, usrSvc, grdSvc, testutil.Logger()), usrSvc, grdSvc
}

func TestSeeder_Initialize(t *testing.T) {
	ctx := context.Background()
	NowFunc = func() time.Time { return time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { NowFunc = time.Now })

	store := testutil.OpenStore(t)
	seeder, usrSvc, grdSvc := newTestSeeder(t, store)
	require.NoError(t, seeder.Initialize(ctx))

	users, err := usrSvc.Query(ctx, user.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 35)

	teachers, err := usrSvc.QueryByRole(ctx, user.RoleTeacher)
	require.NoError(t, err)
	assert.Len(t, teachers, 4)

	stu, err := usrSvc.Login(ctx, "stu003", DefaultPassword, user.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "john.smith@student.edu", stu.Email)
	assert.Equal(t, 1, stu.Semester)
	assert.Equal(t, []string{"MT1003", "CL1000"}, stu.Courses)

	courses, err := course.NewService(store).All(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 6)

	attSvc := attendance.NewService(store, testutil.Logger(), attendance.LowThreshold)
	sum, err := attSvc.Summary(ctx, "STU005")
	require.NoError(t, err)
	assert.Equal(t, attendance.Summary{Present: 12, Absent: 8, Total: 20, Percentage: 60, IsLow: true}, sum)

	// computed through the engine, not copied
	r, found, err := grdSvc.Get(ctx, "STU001", "CS1002")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 83.2, r.Total)
	assert.Equal(t, "B", r.Grade)
	all, err := grdSvc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	h, err := attSvc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, h, 6)
	assert.Equal(t, "2024-01-10", h[0].Date)
	assert.Equal(t, "2024-01-05", h[5].Date)
	for _, e := range h {
		assert.Equal(t, e.Total, e.Present+e.Absent)
	}
}

func TestSeeder_Initialize_keepsExistingCollections(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenStore(t)
	seeder, usrSvc, _ := newTestSeeder(t, store)

	require.NoError(t, core.SaveJSON(ctx, store, core.Courses, []course.Course{{ID: "XX0000", Name: "Custom", Semester: 1}}))
	testutil.CreateUser(t, usrSvc, "ADMIN001", "Admin", "admin@school.test", "s3cretPass", user.RoleAdmin, true)

	require.NoError(t, seeder.Initialize(ctx))
	// second run is a no-op
	require.NoError(t, seeder.Initialize(ctx))

	courses, err := course.NewService(store).All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []course.Course{{ID: "XX0000", Name: "Custom", Semester: 1}}, courses)

	users, err := usrSvc.Query(ctx, user.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@school.test", users[0].Email)

	l, err := attendance.NewService(store, testutil.Logger(), 0).Ledger(ctx)
	require.NoError(t, err)
	assert.Len(t, l, 30)
}

func TestSeeder_Initialize_storeDown(t *testing.T) {
	seeder, _, _ := newTestSeeder(t, testutil.NewFailingStore(true))
	err := seeder.Initialize(context.Background())
	assert.True(t, core.IsPersistenceError(err), "got %v", err)
}

func TestEmailOf(t *testing.T) {
	assert.Equal(t, "carlos.rodriguez@student.edu", emailOf("Carlos Rodriguez"))
}
