package echoapi

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/attendance"
	"github.com/trezcool/portal/core/user"
)

const defaultHistoryLimit = 10

type attendanceApi struct {
	auth     *authenticator
	svc      *attendance.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := attendanceApi{
		auth:     auth,
		svc:      deps.AttendanceSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/attendance", jwt, staffMiddleware(auth))
	ag.POST("", api.saveSession)
	ag.GET("/history", api.history)

	sg := g.Group("/students/:id", jwt, selfOrStaffMiddleware(auth))
	sg.GET("/attendance", api.studentAttendance)
}

func (api *attendanceApi) saveSession(ctx echo.Context) error {
	var data attendance.SessionMarks
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionMarks")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return err
	}
	if usr.IsTeacher() && !usr.HasCourse(data.Course) {
		return errHttpForbidden
	}
	if err := api.checkRoster(ctx, data); err != nil {
		return err
	}

	entry, err := api.svc.SaveSession(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving attendance session")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

// checkRoster accepts marks of students enrolled in the session's course only.
func (api *attendanceApi) checkRoster(ctx echo.Context, sm attendance.SessionMarks) error {
	enrolled, err := api.usrSvc.Query(ctx.Request().Context(), user.QueryFilter{Role: user.RoleStudent, Course: sm.Course})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	known := make(map[string]bool, len(enrolled))
	for _, s := range enrolled {
		known[s.ID] = true
	}

	ids := make([]string, 0, len(sm.Statuses))
	for id := range sm.Statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var fldErrs []core.FieldError
	for _, id := range ids {
		if !known[id] {
			fldErrs = append(fldErrs, core.FieldError{Field: "statuses." + id, Error: "student not enrolled in " + sm.Course})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(errors.New("invalid attendance roster"), fldErrs...)
	}
	return nil
}

// history returns the most recent sessions first; ?limit= defaults to 10, 0 for all.
func (api *attendanceApi) history(ctx echo.Context) error {
	limit := defaultHistoryLimit
	if l := ctx.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "must be a positive number"})
		}
		limit = n
	}

	h, err := api.svc.History(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying attendance history")
	}
	if h == nil {
		h = attendance.History{}
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *attendanceApi) studentAttendance(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	stu, err := api.usrSvc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if !stu.IsStudent() {
		return errHttpNotFound
	}

	sum, err := api.svc.Summary(reqCtx, stu.ID)
	if err != nil {
		return errors.Wrap(err, "summarising attendance")
	}
	records, err := api.svc.Records(reqCtx, stu.ID)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []attendance.Record{}
	}

	resp := StudentAttendanceResponse{Summary: sum, Records: records}
	if sum.Total > 0 {
		resp.Standing = attendance.Classify(sum.Percentage)
	}
	return ctx.JSON(http.StatusOK, resp)
}

type StudentAttendanceResponse struct {
	attendance.Summary
	Standing attendance.Standing `json:"standing,omitempty"`
	Records  []attendance.Record `json:"records"`
}
