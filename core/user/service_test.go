package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/user"
	"github.com/trezcool/portal/testutil"
)

func newTestService(t *testing.T) *user.Service {
	return user.NewService(testutil.OpenStore(t), testutil.Logger())
}

func setClock(t *testing.T, now time.Time) {
	user.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { user.NowFunc = time.Now })
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	setClock(t, now)
	svc := newTestService(t)

	usr, err := svc.Create(ctx, user.NewUser{
		ID:       "STU001",
		Name:     "Alice Mwamba",
		Email:    "alice@school.test",
		Role:     user.RoleStudent,
		Semester: 3,
		Courses:  []string{"CS1002", "MT1003"},
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "STU001", usr.ID)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsStudent())
	assert.Equal(t, 3, usr.Semester)
	assert.Equal(t, now, usr.CreatedAt)
	assert.NoError(t, usr.CheckPassword("password123"))

	got, err := svc.GetByID(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, usr, got)

	// the ID is unique, case-insensitively
	_, err = svc.Create(ctx, user.NewUser{ID: "stu001", Name: "Other", Email: "o@school.test", Role: user.RoleStudent, Password: "password123"})
	require.Error(t, err)
	require.True(t, core.IsValidationError(err))
	assert.Equal(t, []core.FieldError{{Field: "id", Error: user.ErrIDExists.Error()}}, err.(*core.ValidationError).Fields)

	// only students have a semester
	tch, err := svc.Create(ctx, user.NewUser{ID: "TCH001", Name: "Bob", Email: "bob@school.test", Role: user.RoleTeacher, Semester: 2, Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, 0, tch.Semester)
	assert.Equal(t, []string{}, tch.Courses)
}

func TestService_GetByID_notFound(t *testing.T) {
	_, err := newTestService(t).GetByID(context.Background(), "NOPE")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	stu2 := testutil.CreateUser(t, svc, "STU002", "Carol Ilunga", "carol@school.test", "password123", user.RoleStudent, true, "CS1002")
	adm := testutil.CreateUser(t, svc, "ADMIN001", "Admin", "admin@school.test", "password123", user.RoleAdmin, true)
	tch := testutil.CreateUser(t, svc, "TCH001", "Bob Kasongo", "bob@school.test", "password123", user.RoleTeacher, true, "CS1002", "MT1003")
	stu1 := testutil.CreateUser(t, svc, "STU001", "Alice Mwamba", "alice@school.test", "password123", user.RoleStudent, false, "MT1003")

	active := true
	tests := []struct {
		name   string
		filter user.QueryFilter
		want   []user.User
	}{
		{name: "all, ordered by id", filter: user.QueryFilter{}, want: []user.User{adm, stu1, stu2, tch}},
		{name: "role all", filter: user.QueryFilter{Role: "all"}, want: []user.User{adm, stu1, stu2, tch}},
		{name: "students", filter: user.QueryFilter{Role: user.RoleStudent}, want: []user.User{stu1, stu2}},
		{name: "by course", filter: user.QueryFilter{Course: "MT1003"}, want: []user.User{stu1, tch}},
		{name: "active students", filter: user.QueryFilter{Role: user.RoleStudent, IsActive: &active}, want: []user.User{stu2}},
		{name: "search name", filter: user.QueryFilter{Search: "KASONGO"}, want: []user.User{tch}},
		{name: "search email", filter: user.QueryFilter{Search: "alice@"}, want: []user.User{stu1}},
		{name: "no match", filter: user.QueryFilter{Search: "zzz"}, want: []user.User{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Clean()
			got, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	students, err := svc.QueryByRole(ctx, user.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	stu := testutil.CreateUser(t, svc, "STU001", "Alice", "alice@school.test", "password123", user.RoleStudent, true, "CS1002")

	inactive := false
	sem := 4
	usr, err := svc.Update(ctx, stu.ID, user.UpdateUser{
		Name:     "Alice M.",
		Email:    "alice.m@school.test",
		IsActive: &inactive,
		Semester: &sem,
		Courses:  []string{"MT1003"},
		Password: "n3wPassw0rd",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice M.", usr.Name)
	assert.Equal(t, "alice.m@school.test", usr.Email)
	assert.False(t, usr.IsActive)
	assert.Equal(t, 4, usr.Semester)
	assert.Equal(t, []string{"MT1003"}, usr.Courses)
	assert.NoError(t, usr.CheckPassword("n3wPassw0rd"))

	_, err = svc.Update(ctx, "NOPE", user.UpdateUser{Name: "x"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	setClock(t, now)
	svc := newTestService(t)

	testutil.CreateUser(t, svc, "STU001", "Alice", "alice@school.test", "password123", user.RoleStudent, true, "CS1002")
	testutil.CreateUser(t, svc, "STU002", "Carol", "carol@school.test", "password123", user.RoleStudent, false, "CS1002")

	tests := []struct {
		name    string
		id      string
		pwd     string
		role    user.Role
		wantErr error
	}{
		{name: "wrong role", id: "STU001", pwd: "password123", role: user.RoleTeacher, wantErr: user.ErrNoRoleMatch},
		{name: "unknown id", id: "STU999", pwd: "password123", role: user.RoleStudent, wantErr: user.ErrNoRoleMatch},
		{name: "wrong password", id: "STU001", pwd: "wrong-password", role: user.RoleStudent, wantErr: user.ErrInvalidPassword},
		{name: "inactive", id: "STU002", pwd: "password123", role: user.RoleStudent, wantErr: user.ErrInactive},
		{name: "case-insensitive id", id: " stu001 ", pwd: "password123", role: user.RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Login(ctx, tt.id, tt.pwd, tt.role)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "STU001", usr.ID)
			assert.Equal(t, now, usr.LastLogin)
		})
	}

	sess, err := svc.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.Session{UserID: "STU001", Name: "Alice", Email: "alice@school.test", Role: user.RoleStudent, LoginTime: now}, sess)

	stored, err := svc.GetByID(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, now, stored.LastLogin)

	require.NoError(t, svc.Logout(ctx))
	_, err = svc.CurrentSession(ctx)
	assert.Equal(t, user.ErrNoSession, err)

	// logging out twice is fine
	assert.NoError(t, svc.Logout(ctx))
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	testutil.CreateUser(t, svc, "TCH001", "Bob", "bob@school.test", "password123", user.RoleTeacher, true, "CS1002")

	err := svc.ChangePassword(ctx, "TCH001", user.PasswordChange{OldPassword: "wrong", Password: "n3wPassw0rd", PasswordConfirm: "n3wPassw0rd"})
	require.Error(t, err)
	require.True(t, core.IsValidationError(err))
	assert.Equal(t, "old_password", err.(*core.ValidationError).Fields[0].Field)

	require.NoError(t, svc.ChangePassword(ctx, "TCH001", user.PasswordChange{OldPassword: "password123", Password: "n3wPassw0rd", PasswordConfirm: "n3wPassw0rd"}))
	_, err = svc.Login(ctx, "TCH001", "n3wPassw0rd", user.RoleTeacher)
	assert.NoError(t, err)

	require.NoError(t, svc.SetPassword(ctx, "TCH001", "password123"))
	_, err = svc.Login(ctx, "TCH001", "password123", user.RoleTeacher)
	assert.NoError(t, err)

	assert.Equal(t, user.ErrNotFound, svc.SetPassword(ctx, "NOPE", "password123"))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	testutil.CreateUser(t, svc, "STU001", "Alice", "alice@school.test", "password123", user.RoleStudent, true, "CS1002")
	testutil.CreateUser(t, svc, "STU002", "Carol", "carol@school.test", "password123", user.RoleStudent, true, "CS1002")
	tch := testutil.CreateUser(t, svc, "TCH001", "Bob", "bob@school.test", "password123", user.RoleTeacher, true, "CS1002")

	require.NoError(t, svc.Delete(ctx))
	require.NoError(t, svc.Delete(ctx, "STU001", "STU002", "NOPE"))

	users, err := svc.Query(ctx, user.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, []user.User{tch}, users)
}

func TestService_persistenceFailure(t *testing.T) {
	ctx := context.Background()
	svc := user.NewService(testutil.NewFailingStore(true), testutil.Logger())

	_, err := svc.Create(ctx, user.NewUser{ID: "STU001", Name: "Alice", Role: user.RoleStudent, Password: "password123"})
	assert.True(t, core.IsPersistenceError(err), "got %v", err)

	_, err = svc.Query(ctx, user.QueryFilter{})
	assert.True(t, core.IsPersistenceError(err), "got %v", err)

	_, err = svc.Login(ctx, "STU001", "password123", user.RoleStudent)
	assert.True(t, core.IsPersistenceError(err), "got %v", err)

	assert.True(t, core.IsPersistenceError(svc.Logout(ctx)))
}
