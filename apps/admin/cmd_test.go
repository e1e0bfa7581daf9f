package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/term"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/user"
	emailsvc "github.com/trezcool/portal/services/email"
	"github.com/trezcool/portal/storage/seed"
	"github.com/trezcool/portal/testutil"
)

const testPassword = "s3cret-Pass"

type testCLI struct {
	*commandLine
	out    *bytes.Buffer
	mailer *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testCLI {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testutil.Logger()
	core.ParseEmailTemplates(conf, logger)

	engine, err := grading.NewEngine(grading.DefaultWeights(), grading.DefaultScale())
	require.NoError(t, err)
	validate, _ := testutil.NewValidator()
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	cli := newCommandLine(conf, testutil.OpenStore(t), nil, engine, validate, mailer, logger)
	out := new(bytes.Buffer)
	cli.out = out
	return testCLI{commandLine: cli, out: out, mailer: mailer}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantValErr bool // input rejected by the validator or the user service
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantValErr:
		var fldErrs validator.ValidationErrors
		assert.True(t, core.IsValidationError(err) || errors.As(err, &fldErrs), "got %v", err)
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(t *testing.T, pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if pwd == "" {
			return nil, nil
		}
		return []byte(pwd), nil
	}
	t.Cleanup(func() { readPasswordFunc = term.ReadPassword })
}

func Test_commandLine_usage(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "import: no file", args: []string{"import"}, wantErr: errHelp},
		{name: "resetpassword: no id", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "adduser: missing email", args: []string{"adduser", "-id", "ADMIN002", "-name", "Grace Hopper"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Contains(t, cli.out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	t.Run("not a postgres store", func(t *testing.T) {
		err := cli.run([]string{"admin", "migrate", "up"})
		assert.Equal(t, errNoDatabase, err)
	})

	cli.db = new(sql.DB)
	origRun := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRun })
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "history_index", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no password", args: []string{"adduser", "-id", "ADMIN002", "-name", "Grace Hopper", "-email", "grace@portal.test"}, wantErr: errHelp},
		{
			name:    "bad email",
			args:    []string{"adduser", "-id", "ADMIN002", "-name", "Grace Hopper", "-email", "grace"},
			extra:      testPassword,
			wantValErr: true,
		},
		{name: "success", args: []string{"adduser", "-id", "ADMIN002", "-name", "Grace Hopper", "-email", "grace@portal.test"}, extra: testPassword},
		{
			name:    "duplicate id",
			args:    []string{"adduser", "-id", "admin002", "-name", "Ada Lovelace", "-email", "ada@portal.test"},
			extra:      testPassword,
			wantValErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usr, err := cli.usrSvc.Login(context.Background(), "ADMIN002", testPassword, user.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "grace@portal.test", usr.Email)
	assert.True(t, usr.IsActive)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrSvc, "STU001", "Ahmed Hassan", "ahmed@portal.test", testPassword, user.RoleStudent, true, "CS1002")

	tests := []cliTest{
		{name: "id but no password", args: []string{"resetpassword", "-id", usr.ID}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-id", "lol"}, extra: "n3w-Passw0rd", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-id", usr.ID}, extra: "n3w-Passw0rd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	ctx := context.Background()
	_, err := cli.usrSvc.Login(ctx, usr.ID, testPassword, user.RoleStudent)
	assert.Equal(t, user.ErrInvalidPassword, errors.Cause(err))
	_, err = cli.usrSvc.Login(ctx, usr.ID, "n3w-Passw0rd", user.RoleStudent)
	assert.NoError(t, err)
}

func Test_commandLine_seedAndNotify(t *testing.T) {
	cli := setup(t)

	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, cli.out.String(), "store seeded")

	users, err := cli.usrSvc.Query(context.Background(), user.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 35)

	// STU003, STU005, STU013, STU021 and STU029 attended less than 75% of the seeded sessions
	require.NoError(t, cli.run([]string{"admin", "notify"}))
	assert.Contains(t, cli.out.String(), "5 students notified")
	assert.Len(t, cli.mailer.SentMessages(), 5)
}

func Test_commandLine_importResults(t *testing.T) {
	cli := setup(t)

	path := filepath.Join(t.TempDir(), "marks.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"student_id", "course", "quiz", "assignment", "midterm", "final"},
		{"STU001", "CS1002", 85, 90, 78, 82},
		{"STU002", "CS1002", 92, 88, 95, 90},
	}
	for i := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &rows[i]))
	}
	require.NoError(t, f.SaveAs(path))

	tests := []cliTest{
		{name: "missing file", args: []string{"import", "-file", filepath.Join(t.TempDir(), "nope.xlsx")}, wantErrStr: "opening workbook"},
		{name: "success", args: []string{"import", "-file", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErrStr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
				return
			}
			require.NoError(t, err)
		})
	}
	assert.Contains(t, cli.out.String(), "2 results imported")

	r, found, err := cli.grdSvc.Get(context.Background(), "STU001", "CS1002")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 83.2, r.Total)
	assert.Equal(t, "B", r.Grade)
}

func Test_seedPasswordIsUsable(t *testing.T) {
	cli := setup(t)
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	_, err := cli.usrSvc.Login(context.Background(), "ADMIN001", seed.DefaultPassword, user.RoleAdmin)
	assert.NoError(t, err)
}
