package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/portal/apps/api/echo"
	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/course"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/report"
	"github.com/trezcool/portal/core/user"
	emailsvc "github.com/trezcool/portal/services/email"
	"github.com/trezcool/portal/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

const testPassword = "s3cret-Pass"

type fixture struct {
	app    *Server
	conf   *core.Config
	usrSvc *user.Service
	grdSvc *grading.Service
	attSvc *attendance.Service
	mailer *emailsvc.ConsoleServiceMock

	admin    user.User
	teacher  user.User // CS1002
	teacher2 user.User // MT1003
	student  user.User // CS1002, MT1003
	student2 user.User // CS1002
	inactive user.User // MT1003
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testutil.Logger()
	store := testutil.OpenStore(t)
	core.ParseEmailTemplates(conf, logger)

	require.NoError(t, core.SaveJSON(context.Background(), store, core.Courses, []course.Course{
		{ID: "CS1002", Name: "Programming Fundamentals", Semester: 1, Credits: 4},
		{ID: "MT1003", Name: "Calculus and Analytical Geometry", Semester: 1, Credits: 3},
	}))

	engine, err := grading.NewEngine(grading.DefaultWeights(), grading.DefaultScale())
	require.NoError(t, err)

	f := fixture{
		conf:   conf,
		usrSvc: user.NewService(store, logger),
		grdSvc: grading.NewService(store, engine, logger),
		attSvc: attendance.NewService(store, logger, attendance.LowThreshold),
		mailer: emailsvc.NewConsoleServiceMock(conf, logger),
	}
	crsSvc := course.NewService(store)
	validate, translator := testutil.NewValidator()

	f.admin = testutil.CreateUser(t, f.usrSvc, "ADMIN001", "System Administrator", "admin@portal.test", testPassword, user.RoleAdmin, true)
	f.teacher = testutil.CreateUser(t, f.usrSvc, "TCH001", "Sarah Johnson", "sarah@portal.test", testPassword, user.RoleTeacher, true, "CS1002")
	f.teacher2 = testutil.CreateUser(t, f.usrSvc, "TCH002", "Michael Chen", "michael@portal.test", testPassword, user.RoleTeacher, true, "MT1003")
	f.student = testutil.CreateUser(t, f.usrSvc, "STU001", "Ahmed Hassan", "ahmed@portal.test", testPassword, user.RoleStudent, true, "CS1002", "MT1003")
	f.student2 = testutil.CreateUser(t, f.usrSvc, "STU002", "Maria Garcia", "maria@portal.test", testPassword, user.RoleStudent, true, "CS1002")
	f.inactive = testutil.CreateUser(t, f.usrSvc, "STU009", "Carlos Rodriguez", "carlos@portal.test", testPassword, user.RoleStudent, false, "MT1003")

	f.app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       f.usrSvc,
		CourseSvc:     crsSvc,
		GradingSvc:    f.grdSvc,
		AttendanceSvc: f.attSvc,
		ReportSvc:     report.NewService(f.usrSvc, crsSvc, f.grdSvc, f.attSvc),
		Mailer:        f.mailer,
		Validate:      validate,
		Translator:    translator,
	})
	return f
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func (tt httpTest) run(t *testing.T, app http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
