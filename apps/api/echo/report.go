package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/report"
)

type reportApi struct {
	auth   *authenticator
	svc    *report.Service
	mailer core.EmailService
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := reportApi{auth: auth, svc: deps.ReportSvc, mailer: deps.Mailer}

	staff := staffMiddleware(auth)
	admin := adminMiddleware(auth)

	dg := g.Group("/dashboard", jwt)
	dg.GET("/teacher", api.teacherDashboard, staff)
	dg.GET("/stats", api.statistics, admin)

	rg := g.Group("/reports", jwt)
	rg.GET("/attendance", api.attendanceReport, staff)
	rg.GET("/courses", api.courseOverview, admin)
	rg.POST("/low-attendance/notify", api.notifyLowAttendance, admin)

	g.GET("/students/:id/report", api.studentReport, jwt, selfOrStaffMiddleware(auth))
}

// teacherDashboard accepts ?course= (default: all students) and ?date=YYYY-MM-DD (default: today).
func (api *reportApi) teacherDashboard(ctx echo.Context) error {
	date := ctx.QueryParam("date")
	if date == "" {
		date = report.Today()
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "expected format: YYYY-MM-DD"})
	}

	course := ctx.QueryParam("course")
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return err
	}
	if usr.IsTeacher() && course != "" && course != "all" && !usr.HasCourse(course) {
		return errHttpForbidden
	}

	dash, err := api.svc.TeacherDashboard(ctx.Request().Context(), date, course)
	if err != nil {
		return errors.Wrap(err, "building teacher dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *reportApi) statistics(ctx echo.Context) error {
	stats, err := api.svc.Statistics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reportApi) attendanceReport(ctx echo.Context) error {
	rows, err := api.svc.AttendanceReport(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building attendance report")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *reportApi) courseOverview(ctx echo.Context) error {
	rows, err := api.svc.CourseOverview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building course overview")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *reportApi) studentReport(ctx echo.Context) error {
	rep, err := api.svc.StudentReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *reportApi) notifyLowAttendance(ctx echo.Context) error {
	msgs, err := api.svc.LowAttendanceEmails(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building low attendance emails")
	}
	api.mailer.SendMessages(msgs...)
	return ctx.JSON(http.StatusOK, NotifyResponse{Sent: len(msgs)})
}

type NotifyResponse struct {
	Sent int `json:"sent"`
}
