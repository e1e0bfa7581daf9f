package tests

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/trezcool/portal/apps/api/echo"
	"github.com/trezcool/portal/core/grading"
)

func Test_resultApi_preview(t *testing.T) {
	f := setup(t)

	body := marchallObj(t, grading.NewResult{Quiz: 85, Assignment: 90, Midterm: 78, Final: 82})
	req, rec := newAuthRequest(http.MethodPost, "/v1/results/preview", getToken(t, f.conf, f.teacher), body)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PreviewResponse
	unmarshal(t, rec, &resp)
	assert.Equal(t, 83.2, resp.Total)
	assert.Equal(t, "B", resp.Grade)
	assert.Equal(t, 3.0, resp.GPA)
	require.Len(t, resp.Breakdown, 4)
	var points float64
	for _, c := range resp.Breakdown {
		points += c.Points
	}
	assert.InDelta(t, 83.2, points, 1e-9)

	all, err := f.grdSvc.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "preview must not save")
}

func Test_resultApi_save(t *testing.T) {
	f := setup(t)
	teacherToken := getToken(t, f.conf, f.teacher)

	result := func(stu, crs string) []byte {
		return marchallObj(t, grading.NewResult{StudentID: stu, Course: crs, Quiz: 85, Assignment: 90, Midterm: 78, Final: 82})
	}

	tests := []httpTest{
		{name: "Auth required", body: result("STU001", "CS1002"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "students are not staff", body: result("STU001", "CS1002"), token: getToken(t, f.conf, f.student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "teacher of another course", body: result("STU001", "MT1003"), token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "missing fields", body: []byte(`{"quiz": 50}`), token: getToken(t, f.conf, f.admin),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": "this field is required", "course": "this field is required"}),
		},
		{
			name: "unknown student", body: result("STU404", "CS1002"), token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "unknown student: STU404"}),
		},
		{
			name: "not enrolled", body: result("STU002", "MT1003"), token: getToken(t, f.conf, f.teacher2),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"course": "STU002 is not enrolled in MT1003"}),
		},
		{name: "success", body: result("STU001", "CS1002"), token: teacherToken, wantCode: http.StatusCreated},
		{name: "re-upload replaces", body: result("STU001", "CS1002"), token: teacherToken, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/results"
			checkCodeAndData(t, tt, tt.run(t, f.app))
		})
	}

	all, err := f.grdSvc.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 83.2, all[0].Total)
	assert.Equal(t, "B", all[0].Grade)
}

func Test_resultApi_queryAndDestroy(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	adminToken := getToken(t, f.conf, f.admin)

	cs, err := f.grdSvc.Save(ctx, grading.NewResult{StudentID: "STU001", Course: "CS1002", Quiz: 85, Assignment: 90, Midterm: 78, Final: 82})
	require.NoError(t, err)
	mt, err := f.grdSvc.Save(ctx, grading.NewResult{StudentID: "STU001", Course: "MT1003", Quiz: 70, Assignment: 75, Midterm: 68, Final: 72})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "all", path: "/v1/results", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, mt, cs)},
		{name: "course=all", path: "/v1/results?course=all", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, mt, cs)},
		{name: "course=CS1002", path: "/v1/results?course=CS1002", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, cs)},
		{name: "student (none)", path: "/v1/results?student=STU002", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{
			name: "delete: teacher of another course", method: http.MethodDelete, path: "/v1/results/STU001/MT1003",
			token: getToken(t, f.conf, f.teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/results/STU001/MT1003", token: getToken(t, f.conf, f.teacher2), wantCode: http.StatusNoContent},
		{
			name: "delete: missing", method: http.MethodDelete, path: "/v1/results/STU001/MT1003", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "after delete", path: "/v1/results", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, cs)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.run(t, f.app))
		})
	}
}

func newUploadRequest(t *testing.T, token string, rows ...[]interface{}) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	wb := excelize.NewFile()
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", axis, &row))
	}
	xlsx, err := wb.WriteToBuffer()
	require.NoError(t, err)

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "results.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/results/import", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_resultApi_importSheet(t *testing.T) {
	f := setup(t)
	header := []interface{}{"student_id", "course", "quiz", "assignment", "midterm", "final"}

	t.Run("one bad row imports nothing", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, f.conf, f.admin), header,
			[]interface{}{"STU001", "CS1002", 85, 90, 78, 82},
			[]interface{}{"STU404", "CS1002", 50, 50, 50, 50},
		)
		f.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		all, err := f.grdSvc.All(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("missing column", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, f.conf, f.admin),
			[]interface{}{"student_id", "course", "quiz"},
			[]interface{}{"STU001", "CS1002", 85},
		)
		f.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "missing column")
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, f.conf, f.teacher), header,
			[]interface{}{"STU001", "CS1002", 85, 90, 78, 82},
			[]interface{}{"STU002", "CS1002", 92, "absent", 95, 90},
		)
		f.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var results []grading.Result
		unmarshal(t, rec, &results)
		require.Len(t, results, 2)
		assert.Equal(t, 83.2, results[0].Total)
		assert.Equal(t, 0.0, results[1].Assignment)
	})

	t.Run("no file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/results/import", getToken(t, f.conf, f.admin))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": "this field is required"}),
		}, rec)
	})
}
