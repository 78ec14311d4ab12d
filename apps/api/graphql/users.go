package gqlapi

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/account"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
)

type (
	userFilterInput struct {
		Search        *string
		UserTypes     *[]string
		IsActive      *bool
		IsVerified    *bool
		PublisherID   *graphql.ID
		SchoolID      *graphql.ID
		InstitutionID *graphql.ID
	}

	registerInput struct {
		FullName        string
		Email           string
		PhoneNumber     *string
		UserType        string
		Password        string
		PasswordConfirm string
		Publisher       *publisherInput
		School          *schoolInput
		Institution     *schoolInput
	}

	updateMeInput struct {
		FullName    *string
		PhoneNumber *string
	}

	changePasswordInput struct {
		OldPassword     string
		Password        string
		PasswordConfirm string
	}

	updateUserInput struct {
		FullName    *string
		Email       *string
		PhoneNumber *string
		UserType    *string
		IsActive    *bool
		IsVerified  *bool
	}
)

func (in *userFilterInput) filter() *user.QueryFilter {
	if in == nil {
		return nil
	}
	return &user.QueryFilter{
		Search:        str(in.Search),
		UserTypes:     optStrings(in.UserTypes),
		IsActive:      in.IsActive,
		IsVerified:    in.IsVerified,
		PublisherID:   idStr(in.PublisherID),
		SchoolID:      idStr(in.SchoolID),
		InstitutionID: idStr(in.InstitutionID),
	}
}

func (in registerInput) registration() account.Registration {
	reg := account.Registration{
		User: user.NewUser{
			FullName:        in.FullName,
			Email:           in.Email,
			PhoneNumber:     str(in.PhoneNumber),
			UserType:        in.UserType,
			Password:        in.Password,
			PasswordConfirm: in.PasswordConfirm,
		},
	}
	if in.Publisher != nil {
		np := in.Publisher.newPublisher()
		reg.Publisher = &np
	}
	if in.School != nil {
		ns := in.School.newSchool(school.KindSchool)
		reg.School = &ns
	}
	if in.Institution != nil {
		ns := in.Institution.newSchool(school.KindInstitution)
		reg.Institution = &ns
	}
	return reg
}

// Queries

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	usr, ok := user.FromContext(ctx)
	if !ok {
		return nil, nil
	}
	return &userResolver{r: r, usr: usr}, nil
}

func (r *Resolver) Users(ctx context.Context, args struct {
	Filter   *userFilterInput
	Ordering *string
	Limit    *int32
	Offset   *int32
}) ([]*userResolver, error) {
	if _, err := withPerm(ctx, user.PermManageUsers, user.PermVerifyUsers); err != nil {
		return nil, err
	}
	usrs, err := r.svc.Users.Query(ctx, args.Filter.filter(), ordering(args.Ordering, user.OrderingFields))
	if err != nil {
		return nil, err
	}
	start, end := page(len(usrs), args.Limit, args.Offset)
	return r.users(usrs[start:end]), nil
}

func (r *Resolver) User(ctx context.Context, args struct{ ID graphql.ID }) (*userResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if string(args.ID) != actr.ID && !actr.HasAnyPerm(user.PermManageUsers, user.PermVerifyUsers) {
		return nil, core.ErrPermissionDenied
	}
	usr, err := r.svc.Users.GetByID(ctx, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &userResolver{r: r, usr: usr}, nil
}

func (r *Resolver) UserTypes() []*userTypeResolver {
	out := make([]*userTypeResolver, len(user.Types))
	for i, t := range user.Types {
		out[i] = &userTypeResolver{t: t}
	}
	return out
}

// Mutations

func (r *Resolver) Register(ctx context.Context, args struct{ Input registerInput }) (*userResolver, error) {
	usr, err := r.svc.Accounts.Register(ctx, args.Input.registration())
	if err != nil {
		return nil, err
	}
	return &userResolver{r: r, usr: usr}, nil
}

func (r *Resolver) VerifyUser(ctx context.Context, args struct{ ID graphql.ID }) (*userResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	usr, err := r.svc.Accounts.Verify(ctx, actr, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &userResolver{r: r, usr: usr}, nil
}

func (r *Resolver) UpdateMe(ctx context.Context, args struct{ Input updateMeInput }) (*userResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	usr, err := r.svc.Users.Update(ctx, actr, user.UpdateUser{
		FullName:    args.Input.FullName,
		PhoneNumber: args.Input.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}
	return &userResolver{r: r, usr: usr}, nil
}

func (r *Resolver) ChangePassword(ctx context.Context, args struct{ Input changePasswordInput }) (*userResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	usr, err := r.svc.Users.ChangePassword(ctx, actr, user.ChangePassword{
		OldPassword:     args.Input.OldPassword,
		Password:        args.Input.Password,
		PasswordConfirm: args.Input.PasswordConfirm,
	})
	if err != nil {
		return nil, err
	}
	return &userResolver{r: r, usr: usr}, nil
}

func (r *Resolver) UpdateUser(ctx context.Context, args struct {
	ID    graphql.ID
	Input updateUserInput
}) (*userResolver, error) {
	if _, err := withPerm(ctx, user.PermManageUsers); err != nil {
		return nil, err
	}
	usr, err := r.svc.Users.GetByID(ctx, string(args.ID))
	if err != nil {
		return nil, err
	}
	in := args.Input
	usr, err = r.svc.Users.Update(ctx, usr, user.UpdateUser{
		FullName:    in.FullName,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		UserType:    in.UserType,
		IsActive:    in.IsActive,
		IsVerified:  in.IsVerified,
	})
	if err != nil {
		return nil, err
	}
	return &userResolver{r: r, usr: usr}, nil
}

func (r *Resolver) DeleteUser(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	actr, err := withPerm(ctx, user.PermManageUsers)
	if err != nil {
		return false, err
	}
	if string(args.ID) == actr.ID {
		return false, core.ErrPermissionDenied
	}
	if _, err = r.svc.Users.GetByID(ctx, string(args.ID)); err != nil {
		return false, err
	}
	if err = r.svc.Users.Delete(ctx, string(args.ID)); err != nil {
		return false, err
	}
	return true, nil
}

// profile inputs shared by registration and the admin mutations

type (
	publisherInput struct {
		Name           string
		Email          *string
		PhoneNumber    *string
		PanNumber      *string
		VatNumber      *string
		MunicipalityID *graphql.ID
		WardNumber     *int32
		LocalAddress   *string
	}

	schoolInput struct {
		Name           string
		SchoolCode     *string
		PanNumber      *string
		MunicipalityID graphql.ID
		WardNumber     *int32
		LocalAddress   *string
	}
)

func (in publisherInput) newPublisher() publisher.NewPublisher {
	return publisher.NewPublisher{
		Name:           in.Name,
		Email:          str(in.Email),
		PhoneNumber:    str(in.PhoneNumber),
		PanNumber:      str(in.PanNumber),
		VatNumber:      str(in.VatNumber),
		MunicipalityID: idStr(in.MunicipalityID),
		WardNumber:     num(in.WardNumber),
		LocalAddress:   str(in.LocalAddress),
	}
}

func (in schoolInput) newSchool(kind string) school.NewSchool {
	return school.NewSchool{
		Kind:           kind,
		Name:           in.Name,
		SchoolCode:     str(in.SchoolCode),
		PanNumber:      str(in.PanNumber),
		MunicipalityID: string(in.MunicipalityID),
		WardNumber:     num(in.WardNumber),
		LocalAddress:   str(in.LocalAddress),
	}
}
