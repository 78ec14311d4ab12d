package gqlapi

import (
	"context"
	"time"

	"github.com/graph-gophers/graphql-go"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/user"
)

// actor returns the authenticated user or ErrUnauthenticated.
func actor(ctx context.Context) (user.User, error) {
	usr, ok := user.FromContext(ctx)
	if !ok {
		return user.User{}, core.ErrUnauthenticated
	}
	return usr, nil
}

// anyone returns the authenticated user, or an anonymous one.
func anyone(ctx context.Context) user.User {
	usr, _ := user.FromContext(ctx)
	return usr
}

func withPerm(ctx context.Context, perms ...user.Permission) (user.User, error) {
	usr, err := actor(ctx)
	if err != nil {
		return usr, err
	}
	if !usr.HasAnyPerm(perms...) {
		return usr, core.ErrPermissionDenied
	}
	return usr, nil
}

func optID(id string) *graphql.ID {
	if id == "" {
		return nil
	}
	gid := graphql.ID(id)
	return &gid
}

func toIDs(ids []string) []graphql.ID {
	out := make([]graphql.ID, len(ids))
	for i, id := range ids {
		out[i] = graphql.ID(id)
	}
	return out
}

func fromIDs(ids []graphql.ID) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func optTime(t time.Time) *graphql.Time {
	if t.IsZero() {
		return nil
	}
	return &graphql.Time{Time: t}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func idStr(id *graphql.ID) string {
	if id == nil {
		return ""
	}
	return string(*id)
}

func num(n *int32) int {
	if n == nil {
		return 0
	}
	return int(*n)
}

func optNum(n *int32) *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

func optIDStr(id *graphql.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

func optStrings(s *[]string) []string {
	if s == nil {
		return nil
	}
	return *s
}

func boolean(b *bool) bool {
	return b != nil && *b
}

func ordering(val *string, allowed map[string]string) []core.DBOrdering {
	return core.ParseOrdering(str(val), allowed)
}

// page returns the [start:end] bounds of n items for the optional limit & offset.
func page(n int, limit, offset *int32) (start, end int) {
	return core.Pagination{Limit: num(limit), Offset: num(offset)}.Apply(n)
}
