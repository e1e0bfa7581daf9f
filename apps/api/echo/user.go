package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/course"
	"github.com/trezcool/portal/core/user"
)

var errCannotDeleteSelf = echo.NewHTTPError(http.StatusForbidden, "you cannot delete your own account")

type userApi struct {
	auth     *authenticator
	svc      *user.Service
	crsSvc   *course.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := userApi{
		auth:     auth,
		svc:      deps.UserSvc,
		crsSvc:   deps.CourseSvc,
		validate: deps.Validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/logout", api.logout)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.POST("/password", api.changePassword)

	admin := adminMiddleware(auth)
	ag.GET("", api.query, admin)
	ag.POST("", api.create, admin)
	ag.GET("/roles", api.queryRoles, admin)
	ag.PUT("/:id", api.update, admin)
	ag.DELETE("/:id", api.destroy, admin)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, token, err := api.auth.authenticate(ctx, data.ID, data.Password, data.Role)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) logout(ctx echo.Context) error {
	if err := api.svc.Logout(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) changePassword(ctx echo.Context) error {
	usr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return err
	}

	var data user.PasswordChange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordChange")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.svc.ChangePassword(ctx.Request().Context(), usr.ID, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password changed successfully."})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()

	users, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkCourses(ctx, data.Courses); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(usr, api.validate); err != nil {
		return err
	}
	if err := api.checkCourses(ctx, data.Courses); err != nil {
		return err
	}

	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return err
	}
	// admins cannot lock themselves out
	if usr.ID == ctxUsr.ID && data.IsActive != nil && !*data.IsActive {
		return errHttpForbidden
	}

	usr, err = api.svc.Update(reqCtx, usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	ctxUsr, err := api.auth.getContextUser(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if strings.EqualFold(id, ctxUsr.ID) {
		return errCannotDeleteSelf
	}

	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

// checkCourses rejects assignments to courses missing from the catalogue.
func (api *userApi) checkCourses(ctx echo.Context, courses []string) error {
	if len(courses) == 0 {
		return nil
	}
	unknown, err := api.crsSvc.Exists(ctx.Request().Context(), courses...)
	if err != nil {
		return errors.Wrap(err, "checking courses")
	}
	if len(unknown) > 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "courses",
			Error: "unknown course(s): " + strings.Join(unknown, ", "),
		})
	}
	return nil
}

type (
	LoginRequest struct {
		ID       string    `json:"id" validate:"required"`
		Password string    `json:"password" validate:"required"`
		Role     user.Role `json:"role" validate:"required,userrole"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.ID = core.CleanString(lr.ID)
	lr.Role = user.Role(core.CleanString(string(lr.Role), true /* lower */))
	return validate.Struct(lr)
}
