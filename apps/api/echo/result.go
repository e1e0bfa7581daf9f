package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/grading"
	"github.com/trezcool/portal/core/user"
	"github.com/trezcool/portal/services/sheet"
)

const uploadField = "file"

type resultApi struct {
	auth     *authenticator
	svc      *grading.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerResultAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := resultApi{
		auth:     auth,
		svc:      deps.GradingSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	rg := g.Group("/results", jwt, staffMiddleware(auth))
	rg.GET("", api.query)
	rg.POST("", api.save)
	rg.POST("/preview", api.preview)
	rg.POST("/import", api.importSheet)
	rg.DELETE("/:student/:course", api.destroy)
}

func (api *resultApi) query(ctx echo.Context) error {
	filter := new(grading.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []grading.Result{})
	}
	filter.Clean()

	results, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []grading.Result{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) preview(ctx echo.Context) error {
	var data grading.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	assessment, breakdown, err := api.svc.Preview(data)
	if err != nil {
		return errors.Wrap(err, "previewing result")
	}
	return ctx.JSON(http.StatusOK, PreviewResponse{Assessment: assessment, Breakdown: breakdown})
}

func (api *resultApi) save(ctx echo.Context) error {
	var data grading.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkResults(ctx, data); err != nil {
		return err
	}

	r, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving result")
	}
	return ctx.JSON(http.StatusCreated, r)
}

// importSheet grades every row of an uploaded xlsx workbook; nothing is saved unless every row is valid.
func (api *resultApi) importSheet(ctx echo.Context) error {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: uploadField, Error: "this field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	rows, err := sheet.ParseResults(f)
	if err != nil {
		if core.IsValidationError(err) {
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: uploadField, Error: err.Error()})
	}
	for i := range rows {
		if err := rows[i].Validate(api.validate); err != nil {
			return err
		}
	}
	if err := api.checkResults(ctx, rows...); err != nil {
		return err
	}

	results, err := api.svc.Import(ctx.Request().Context(), rows)
	if err != nil {
		return errors.Wrap(err, "importing results")
	}
	return ctx.JSON(http.StatusCreated, results)
}

func (api *resultApi) destroy(ctx echo.Context) error {
	if err := api.checkTeaches(ctx, ctx.Param("course")); err != nil {
		return err
	}
	removed, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("student"), ctx.Param("course"))
	if err != nil {
		return errors.Wrap(err, "deleting result")
	}
	if !removed {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

// checkResults accepts results of known students taking the course, uploaded by a teacher of that course or an admin.
func (api *resultApi) checkResults(ctx echo.Context, nrs ...grading.NewResult) error {
	var fldErrs []core.FieldError
	for _, nr := range nrs {
		if err := api.checkTeaches(ctx, nr.Course); err != nil {
			return err
		}
		stu, err := api.usrSvc.GetByID(ctx.Request().Context(), nr.StudentID)
		switch {
		case errors.Cause(err) == user.ErrNotFound || (err == nil && !stu.IsStudent()):
			fldErrs = append(fldErrs, core.FieldError{Field: "student_id", Error: "unknown student: " + nr.StudentID})
		case err != nil:
			return errors.Wrap(err, "finding student by ID")
		case !stu.HasCourse(nr.Course):
			fldErrs = append(fldErrs, core.FieldError{Field: "course", Error: nr.StudentID + " is not enrolled in " + nr.Course})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(errors.New("invalid results"), fldErrs...)
	}
	return nil
}

func (api *resultApi) checkTeaches(ctx echo.Context, course string) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return err
	}
	if usr.IsTeacher() && !usr.HasCourse(course) {
		return errHttpForbidden
	}
	return nil
}

type PreviewResponse struct {
	grading.Assessment
	Breakdown []grading.Contribution `json:"breakdown"`
}
