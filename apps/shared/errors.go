package shared

import (
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/core/location"
	"github.com/kitab-bazar/server/core/logistics"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/payment"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
)

var notFoundErrs = []error{
	user.ErrNotFound,
	location.ErrNotFound,
	publisher.ErrNotFound,
	school.ErrNotFound,
	book.ErrNotFound,
	book.ErrCategoryNotFound,
	book.ErrTagNotFound,
	order.ErrNotFound,
	order.ErrCartItemNotFound,
	order.ErrWishListNotFound,
	order.ErrWindowNotFound,
	payment.ErrNotFound,
	logistics.ErrNotFound,
}

// IsNotFound reports whether the cause of err is one of the domain "not found" errors.
func IsNotFound(err error) bool {
	cause := errors.Cause(err)
	for _, nf := range notFoundErrs {
		if cause == nf {
			return true
		}
	}
	return false
}

var badRequestErrs = []error{
	logistics.ErrNothingToPackage,
}

// IsBadRequest reports whether err is a domain error caused by the request itself
// that is not reported as a validation error.
func IsBadRequest(err error) bool {
	cause := errors.Cause(err)
	for _, br := range badRequestErrs {
		if cause == br {
			return true
		}
	}
	return false
}
