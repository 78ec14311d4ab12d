package user

import "context"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying the authenticated user.
func NewContext(ctx context.Context, usr User) context.Context {
	return context.WithValue(ctx, ctxKey{}, usr)
}

// FromContext returns the authenticated user carried by ctx, if any.
func FromContext(ctx context.Context) (User, bool) {
	usr, ok := ctx.Value(ctxKey{}).(User)
	return usr, ok
}
