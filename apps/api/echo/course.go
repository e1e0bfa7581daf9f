package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{svc: deps.CourseSvc}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
}

// query lists the catalogue, optionally narrowed to ?semester=
func (api *courseApi) query(ctx echo.Context) error {
	var (
		courses []course.Course
		err     error
	)
	if sem := ctx.QueryParam("semester"); sem != "" {
		n, convErr := strconv.Atoi(sem)
		if convErr != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "semester", Error: "must be a number"})
		}
		courses, err = api.svc.BySemester(ctx.Request().Context(), n)
	} else {
		courses, err = api.svc.All(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}
