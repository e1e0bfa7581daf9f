package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/portal/core/user"
)

// roleMiddleware lets through active users having one of roles.
func roleMiddleware(a *authenticator, roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := a.getContextUser(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(a *authenticator) echo.MiddlewareFunc {
	return roleMiddleware(a, user.RoleAdmin)
}

func staffMiddleware(a *authenticator) echo.MiddlewareFunc {
	return roleMiddleware(a, user.RoleAdmin, user.RoleTeacher)
}

// selfOrStaffMiddleware lets students through for their own :id only.
func selfOrStaffMiddleware(a *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := a.getContextUser(ctx)
			if err != nil {
				return err
			}
			if usr.IsStudent() && ctx.Param("id") != usr.ID {
				return errHttpNotFound
			}
			return next(ctx)
		}
	}
}
