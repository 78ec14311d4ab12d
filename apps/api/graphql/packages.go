package gqlapi

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/kitab-bazar/server/core/logistics"
	"github.com/kitab-bazar/server/core/user"
)

type packageFilterInput struct {
	OrderWindowID *graphql.ID
	Kind          *string
	OwnerID       *graphql.ID
	Status        *string
}

func (in *packageFilterInput) filter() logistics.QueryFilter {
	if in == nil {
		return logistics.QueryFilter{}
	}
	return logistics.QueryFilter{
		OrderWindowID: idStr(in.OrderWindowID),
		Kind:          str(in.Kind),
		OwnerID:       idStr(in.OwnerID),
		Status:        str(in.Status),
	}
}

func (r *Resolver) Packages(ctx context.Context, args struct{ Filter *packageFilterInput }) ([]*packageResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pkgs, err := r.svc.Logistics.Query(ctx, actr, args.Filter.filter())
	if err != nil {
		return nil, err
	}
	return packages(pkgs), nil
}

func (r *Resolver) Package(ctx context.Context, args struct{ ID graphql.ID }) (*packageResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pkg, err := r.svc.Logistics.Get(ctx, actr, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &packageResolver{p: pkg}, nil
}

func (r *Resolver) GeneratePackages(ctx context.Context, args struct{ OrderWindowID graphql.ID }) ([]*packageResolver, error) {
	if _, err := withPerm(ctx, user.PermManagePackages); err != nil {
		return nil, err
	}
	pkgs, err := r.svc.Logistics.Generate(ctx, string(args.OrderWindowID))
	if err != nil {
		return nil, err
	}
	return packages(pkgs), nil
}

func (r *Resolver) UpdatePackageStatus(ctx context.Context, args statusArgs) (*packageResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pkg, err := r.svc.Logistics.UpdateStatus(ctx, actr, string(args.ID), args.Status)
	if err != nil {
		return nil, err
	}
	return &packageResolver{p: pkg}, nil
}

func (r *Resolver) DeletePackages(ctx context.Context, args struct{ OrderWindowID graphql.ID }) (int32, error) {
	if _, err := withPerm(ctx, user.PermManagePackages); err != nil {
		return 0, err
	}
	n, err := r.svc.Logistics.Delete(ctx, string(args.OrderWindowID))
	return int32(n), err
}
