package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core/user"
)

// permMiddleware only lets through users holding at least one of perms.
// It must run after the jwt middleware.
func permMiddleware(perms ...user.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := contextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.HasAnyPerm(perms...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
