package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errMissingToken         = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken         = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, svc *shared.Services, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if fields, ok := core.FieldErrors(err, svc.Translator); ok {
			code = http.StatusBadRequest
			message = fields
			if vErr, isCoreErr := errors.Cause(err).(*core.ValidationError); isCoreErr && len(fields) == 0 {
				message = vErr.Error()
			}
		} else {
			switch cause := errors.Cause(err); {
			case isHTTPError(cause):
				herr := cause.(*echo.HTTPError)
				if herr.Internal != nil {
					if inner, ok := herr.Internal.(*echo.HTTPError); ok {
						herr = inner
					}
				}
				code = herr.Code
				message = herr.Message
			case shared.IsBadRequest(err):
				code = http.StatusBadRequest
				message = cause.Error()
			case cause == core.ErrPermissionDenied:
				code = http.StatusForbidden
				message = cause.Error()
			case cause == core.ErrUnauthenticated:
				code = http.StatusUnauthorized
				message = cause.Error()
			case shared.IsNotFound(err):
				code = http.StatusNotFound
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				usr, _ := user.FromContext(ctx.Request().Context())
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func isHTTPError(err error) bool {
	_, ok := err.(*echo.HTTPError)
	return ok
}
