package gqlapi

import (
	"context"
	"net/http"

	"github.com/graph-gophers/graphql-go"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

// Error codes set in the "code" extension of resolver errors.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL"
)

// presentErrors rewrites the resolver errors of resp: domain errors get a code
// (and their field errors), any other error is logged and hidden.
// Query syntax & validation errors are left untouched.
func (api *API) presentErrors(ctx context.Context, resp *graphql.Response) {
	for _, qErr := range resp.Errors {
		err := qErr.ResolverError
		if err == nil {
			continue
		}

		ext := map[string]interface{}{}
		if fields, ok := core.FieldErrors(err, api.svc.Translator); ok {
			ext["code"] = CodeValidation
			if len(fields) > 0 {
				ext["fields"] = fields
			}
			if _, isCoreErr := errors.Cause(err).(*core.ValidationError); !isCoreErr {
				qErr.Message = "invalid input"
			}
			qErr.Extensions = ext
			continue
		}

		switch cause := errors.Cause(err); {
		case shared.IsBadRequest(err):
			ext["code"] = CodeValidation
		case cause == core.ErrPermissionDenied:
			ext["code"] = CodePermissionDenied
		case cause == core.ErrUnauthenticated:
			ext["code"] = CodeUnauthenticated
		case shared.IsNotFound(err):
			ext["code"] = CodeNotFound
			qErr.Message = cause.Error()
		default:
			msg := http.StatusText(http.StatusInternalServerError)
			usr, _ := user.FromContext(ctx)
			api.logger.Error(msg, errors.Wrap(err, msg), usr)
			ext["code"] = CodeInternal
			qErr.Message = msg

			// shutting down...
			if core.IsShutdown(err) && api.signalShutdown != nil {
				api.signalShutdown()
			}
		}
		qErr.Extensions = ext
	}
}
