package gqlapi

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/core/location"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
)

type (
	searchArgs struct{ Search *string }

	updatePublisherInput struct {
		Name           *string
		Email          *string
		PhoneNumber    *string
		PanNumber      *string
		VatNumber      *string
		MunicipalityID *graphql.ID
		WardNumber     *int32
		LocalAddress   *string
	}

	schoolFilterInput struct {
		Search         *string
		MunicipalityID *graphql.ID
		IsVerified     *bool
	}

	updateSchoolInput struct {
		Name           *string
		SchoolCode     *string
		PanNumber      *string
		MunicipalityID *graphql.ID
		WardNumber     *int32
		LocalAddress   *string
		IsVerified     *bool
	}

	bookFilterInput struct {
		Search      *string
		PublisherID *graphql.ID
		CategoryID  *graphql.ID
		TagID       *graphql.ID
		Grade       *string
		Language    *string
		PriceMin    *int32
		PriceMax    *int32
		IsPublished *bool
	}

	bookInput struct {
		Title         string
		Description   *string
		ISBN          string
		Edition       *string
		Language      string
		Grade         *string
		Price         int32
		NumberOfPages *int32
		PublishedDate *graphql.Time
		PublisherID   *graphql.ID
		CategoryIDs   *[]graphql.ID
		TagIDs        *[]graphql.ID
		Image         *string
		IsPublished   *bool
	}

	updateBookInput struct {
		Title         *string
		Description   *string
		ISBN          *string
		Edition       *string
		Language      *string
		Grade         *string
		Price         *int32
		NumberOfPages *int32
		PublishedDate *graphql.Time
		CategoryIDs   *[]graphql.ID
		TagIDs        *[]graphql.ID
		Image         *string
		IsPublished   *bool
	}
)

func (in *schoolFilterInput) filter(kind string) school.QueryFilter {
	qf := school.QueryFilter{Kind: kind}
	if in != nil {
		qf.Search = str(in.Search)
		qf.MunicipalityID = idStr(in.MunicipalityID)
		qf.IsVerified = in.IsVerified
	}
	return qf
}

func (in *bookFilterInput) filter() book.QueryFilter {
	if in == nil {
		return book.QueryFilter{}
	}
	return book.QueryFilter{
		Search:      str(in.Search),
		PublisherID: idStr(in.PublisherID),
		CategoryID:  idStr(in.CategoryID),
		TagID:       idStr(in.TagID),
		Grade:       str(in.Grade),
		Language:    str(in.Language),
		PriceMin:    optNum(in.PriceMin),
		PriceMax:    optNum(in.PriceMax),
		IsPublished: in.IsPublished,
	}
}

func idList(ids *[]graphql.ID) []string {
	if ids == nil {
		return nil
	}
	return fromIDs(*ids)
}

func optIDList(ids *[]graphql.ID) *[]string {
	if ids == nil {
		return nil
	}
	out := fromIDs(*ids)
	return &out
}

// Locations

func (r *Resolver) Provinces(ctx context.Context, args searchArgs) ([]*provinceResolver, error) {
	provinces, err := r.svc.Locations.Provinces(ctx, str(args.Search))
	if err != nil {
		return nil, err
	}
	out := make([]*provinceResolver, len(provinces))
	for i, p := range provinces {
		out[i] = &provinceResolver{p: p}
	}
	return out, nil
}

func (r *Resolver) Districts(ctx context.Context, args struct {
	ProvinceID *graphql.ID
	Search     *string
}) ([]*districtResolver, error) {
	districts, err := r.svc.Locations.Districts(ctx, idStr(args.ProvinceID), str(args.Search))
	if err != nil {
		return nil, err
	}
	out := make([]*districtResolver, len(districts))
	for i, d := range districts {
		out[i] = &districtResolver{d: d}
	}
	return out, nil
}

func (r *Resolver) Municipalities(ctx context.Context, args struct {
	DistrictID *graphql.ID
	Search     *string
}) ([]*municipalityResolver, error) {
	municipalities, err := r.svc.Locations.Municipalities(ctx, idStr(args.DistrictID), str(args.Search))
	if err != nil {
		return nil, err
	}
	out := make([]*municipalityResolver, len(municipalities))
	for i, m := range municipalities {
		out[i] = &municipalityResolver{r: r, m: m}
	}
	return out, nil
}

func (r *Resolver) Municipality(ctx context.Context, args struct{ ID graphql.ID }) (*municipalityResolver, error) {
	m, err := r.svc.Locations.GetMunicipality(ctx, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &municipalityResolver{r: r, m: m}, nil
}

func (r *Resolver) CreateProvince(ctx context.Context, args struct{ Name string }) (*provinceResolver, error) {
	if _, err := withPerm(ctx, user.PermManageLocations); err != nil {
		return nil, err
	}
	p, err := r.svc.Locations.CreateProvince(ctx, location.NewProvince{Name: args.Name})
	if err != nil {
		return nil, err
	}
	return &provinceResolver{p: p}, nil
}

func (r *Resolver) CreateDistrict(ctx context.Context, args struct {
	ProvinceID graphql.ID
	Name       string
}) (*districtResolver, error) {
	if _, err := withPerm(ctx, user.PermManageLocations); err != nil {
		return nil, err
	}
	d, err := r.svc.Locations.CreateDistrict(ctx, location.NewDistrict{Name: args.Name, ProvinceID: string(args.ProvinceID)})
	if err != nil {
		return nil, err
	}
	return &districtResolver{d: d}, nil
}

func (r *Resolver) CreateMunicipality(ctx context.Context, args struct {
	DistrictID graphql.ID
	Name       string
}) (*municipalityResolver, error) {
	if _, err := withPerm(ctx, user.PermManageLocations); err != nil {
		return nil, err
	}
	m, err := r.svc.Locations.CreateMunicipality(ctx, location.NewMunicipality{Name: args.Name, DistrictID: string(args.DistrictID)})
	if err != nil {
		return nil, err
	}
	return &municipalityResolver{r: r, m: m}, nil
}

// Publishers

func (r *Resolver) Publishers(ctx context.Context, args struct {
	Search   *string
	Ordering *string
}) ([]*publisherResolver, error) {
	pubs, err := r.svc.Publishers.Query(ctx, publisher.QueryFilter{Search: str(args.Search)}, ordering(args.Ordering, publisher.OrderingFields))
	if err != nil {
		return nil, err
	}
	out := make([]*publisherResolver, len(pubs))
	for i, p := range pubs {
		out[i] = &publisherResolver{p: p}
	}
	return out, nil
}

func (r *Resolver) Publisher(ctx context.Context, args struct{ ID graphql.ID }) (*publisherResolver, error) {
	p, err := r.svc.Publishers.Get(ctx, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &publisherResolver{p: p}, nil
}

func (r *Resolver) CreatePublisher(ctx context.Context, args struct{ Input publisherInput }) (*publisherResolver, error) {
	if _, err := withPerm(ctx, user.PermManagePublishers); err != nil {
		return nil, err
	}
	p, err := r.svc.Publishers.Create(ctx, args.Input.newPublisher())
	if err != nil {
		return nil, err
	}
	return &publisherResolver{p: p}, nil
}

// UpdatePublisher is allowed to staff and to the publisher's own users.
func (r *Resolver) UpdatePublisher(ctx context.Context, args struct {
	ID    graphql.ID
	Input updatePublisherInput
}) (*publisherResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	id := string(args.ID)
	if !actr.HasPerm(user.PermManagePublishers) && !(actr.IsActive && actr.IsPublisher() && actr.PublisherID == id) {
		return nil, core.ErrPermissionDenied
	}
	in := args.Input
	p, err := r.svc.Publishers.Update(ctx, id, publisher.UpdatePublisher{
		Name:           in.Name,
		Email:          in.Email,
		PhoneNumber:    in.PhoneNumber,
		PanNumber:      in.PanNumber,
		VatNumber:      in.VatNumber,
		MunicipalityID: optIDStr(in.MunicipalityID),
		WardNumber:     optNum(in.WardNumber),
		LocalAddress:   in.LocalAddress,
	})
	if err != nil {
		return nil, err
	}
	return &publisherResolver{p: p}, nil
}

func (r *Resolver) DeletePublisher(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	if _, err := withPerm(ctx, user.PermManagePublishers); err != nil {
		return false, err
	}
	if err := r.svc.Publishers.Delete(ctx, string(args.ID)); err != nil {
		return false, err
	}
	return true, nil
}

// Schools & institutions

func (r *Resolver) querySchools(ctx context.Context, kind string, filter *schoolFilterInput, ord *string) ([]*schoolResolver, error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	schools, err := r.svc.Schools.Query(ctx, filter.filter(kind), ordering(ord, school.OrderingFields))
	if err != nil {
		return nil, err
	}
	out := make([]*schoolResolver, len(schools))
	for i, s := range schools {
		out[i] = &schoolResolver{r: r, s: s}
	}
	return out, nil
}

func (r *Resolver) getSchool(ctx context.Context, kind string, id graphql.ID) (*schoolResolver, error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	s, err := r.svc.Schools.Get(ctx, kind, string(id))
	if err != nil {
		return nil, err
	}
	return &schoolResolver{r: r, s: s}, nil
}

func (r *Resolver) createSchool(ctx context.Context, kind string, in schoolInput) (*schoolResolver, error) {
	if _, err := withPerm(ctx, user.PermManageSchools); err != nil {
		return nil, err
	}
	s, err := r.svc.Schools.Create(ctx, in.newSchool(kind))
	if err != nil {
		return nil, err
	}
	return &schoolResolver{r: r, s: s}, nil
}

// updateSchool is allowed to staff. The school's own users may update it but never verify it.
func (r *Resolver) updateSchool(ctx context.Context, kind string, id graphql.ID, in updateSchoolInput) (*schoolResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if !actr.HasPerm(user.PermManageSchools) {
		ownID := actr.SchoolID
		if kind == school.KindInstitution {
			ownID = actr.InstitutionID
		}
		if !actr.IsActive || ownID == "" || ownID != string(id) || in.IsVerified != nil {
			return nil, core.ErrPermissionDenied
		}
	}
	s, err := r.svc.Schools.Update(ctx, kind, string(id), school.UpdateSchool{
		Name:           in.Name,
		SchoolCode:     in.SchoolCode,
		PanNumber:      in.PanNumber,
		MunicipalityID: optIDStr(in.MunicipalityID),
		WardNumber:     optNum(in.WardNumber),
		LocalAddress:   in.LocalAddress,
		IsVerified:     in.IsVerified,
	})
	if err != nil {
		return nil, err
	}
	return &schoolResolver{r: r, s: s}, nil
}

func (r *Resolver) deleteSchool(ctx context.Context, kind string, id graphql.ID) (bool, error) {
	if _, err := withPerm(ctx, user.PermManageSchools); err != nil {
		return false, err
	}
	if err := r.svc.Schools.Delete(ctx, kind, string(id)); err != nil {
		return false, err
	}
	return true, nil
}

type schoolsArgs struct {
	Filter   *schoolFilterInput
	Ordering *string
}

type updateSchoolArgs struct {
	ID    graphql.ID
	Input updateSchoolInput
}

func (r *Resolver) Schools(ctx context.Context, args schoolsArgs) ([]*schoolResolver, error) {
	return r.querySchools(ctx, school.KindSchool, args.Filter, args.Ordering)
}

func (r *Resolver) School(ctx context.Context, args struct{ ID graphql.ID }) (*schoolResolver, error) {
	return r.getSchool(ctx, school.KindSchool, args.ID)
}

func (r *Resolver) CreateSchool(ctx context.Context, args struct{ Input schoolInput }) (*schoolResolver, error) {
	return r.createSchool(ctx, school.KindSchool, args.Input)
}

func (r *Resolver) UpdateSchool(ctx context.Context, args updateSchoolArgs) (*schoolResolver, error) {
	return r.updateSchool(ctx, school.KindSchool, args.ID, args.Input)
}

func (r *Resolver) DeleteSchool(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	return r.deleteSchool(ctx, school.KindSchool, args.ID)
}

func (r *Resolver) Institutions(ctx context.Context, args schoolsArgs) ([]*schoolResolver, error) {
	return r.querySchools(ctx, school.KindInstitution, args.Filter, args.Ordering)
}

func (r *Resolver) Institution(ctx context.Context, args struct{ ID graphql.ID }) (*schoolResolver, error) {
	return r.getSchool(ctx, school.KindInstitution, args.ID)
}

func (r *Resolver) CreateInstitution(ctx context.Context, args struct{ Input schoolInput }) (*schoolResolver, error) {
	return r.createSchool(ctx, school.KindInstitution, args.Input)
}

func (r *Resolver) UpdateInstitution(ctx context.Context, args updateSchoolArgs) (*schoolResolver, error) {
	return r.updateSchool(ctx, school.KindInstitution, args.ID, args.Input)
}

func (r *Resolver) DeleteInstitution(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	return r.deleteSchool(ctx, school.KindInstitution, args.ID)
}

// Categories & tags

func (r *Resolver) Categories(ctx context.Context, args searchArgs) ([]*categoryResolver, error) {
	cats, err := r.svc.Books.Categories(ctx, str(args.Search))
	if err != nil {
		return nil, err
	}
	out := make([]*categoryResolver, len(cats))
	for i, c := range cats {
		out[i] = &categoryResolver{c: c}
	}
	return out, nil
}

func (r *Resolver) Tags(ctx context.Context, args searchArgs) ([]*tagResolver, error) {
	tags, err := r.svc.Books.Tags(ctx, str(args.Search))
	if err != nil {
		return nil, err
	}
	out := make([]*tagResolver, len(tags))
	for i, t := range tags {
		out[i] = &tagResolver{t: t}
	}
	return out, nil
}

func (r *Resolver) CreateCategory(ctx context.Context, args struct {
	Name     string
	ParentID *graphql.ID
}) (*categoryResolver, error) {
	if _, err := withPerm(ctx, user.PermManageCatalog); err != nil {
		return nil, err
	}
	c, err := r.svc.Books.CreateCategory(ctx, book.NewCategory{Name: args.Name, ParentID: idStr(args.ParentID)})
	if err != nil {
		return nil, err
	}
	return &categoryResolver{c: c}, nil
}

func (r *Resolver) CreateTag(ctx context.Context, args struct{ Name string }) (*tagResolver, error) {
	if _, err := withPerm(ctx, user.PermManageCatalog); err != nil {
		return nil, err
	}
	t, err := r.svc.Books.CreateTag(ctx, book.NewTag{Name: args.Name})
	if err != nil {
		return nil, err
	}
	return &tagResolver{t: t}, nil
}

// Books

func (r *Resolver) Books(ctx context.Context, args struct {
	Filter   *bookFilterInput
	Ordering *string
	Limit    *int32
	Offset   *int32
}) ([]*bookResolver, error) {
	books, err := r.svc.Books.Query(ctx, anyone(ctx), args.Filter.filter(), ordering(args.Ordering, book.OrderingFields))
	if err != nil {
		return nil, err
	}
	start, end := page(len(books), args.Limit, args.Offset)
	return r.books(books[start:end]), nil
}

func (r *Resolver) Book(ctx context.Context, args struct{ ID graphql.ID }) (*bookResolver, error) {
	b, err := r.svc.Books.Get(ctx, anyone(ctx), string(args.ID))
	if err != nil {
		return nil, err
	}
	return &bookResolver{r: r, b: b}, nil
}

func (r *Resolver) CreateBook(ctx context.Context, args struct{ Input bookInput }) (*bookResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	in := args.Input
	nb := book.NewBook{
		Title:         in.Title,
		Description:   str(in.Description),
		ISBN:          in.ISBN,
		Edition:       str(in.Edition),
		Language:      in.Language,
		Grade:         str(in.Grade),
		Price:         int(in.Price),
		NumberOfPages: num(in.NumberOfPages),
		PublisherID:   idStr(in.PublisherID),
		CategoryIDs:   idList(in.CategoryIDs),
		TagIDs:        idList(in.TagIDs),
		Image:         str(in.Image),
		IsPublished:   boolean(in.IsPublished),
	}
	if in.PublishedDate != nil {
		nb.PublishedDate = in.PublishedDate.Time
	}
	b, err := r.svc.Books.Create(ctx, actr, nb)
	if err != nil {
		return nil, err
	}
	return &bookResolver{r: r, b: b}, nil
}

func (r *Resolver) UpdateBook(ctx context.Context, args struct {
	ID    graphql.ID
	Input updateBookInput
}) (*bookResolver, error) {
	actr, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	in := args.Input
	ub := book.UpdateBook{
		Title:         in.Title,
		Description:   in.Description,
		ISBN:          in.ISBN,
		Edition:       in.Edition,
		Language:      in.Language,
		Grade:         in.Grade,
		Price:         optNum(in.Price),
		NumberOfPages: optNum(in.NumberOfPages),
		CategoryIDs:   optIDList(in.CategoryIDs),
		TagIDs:        optIDList(in.TagIDs),
		Image:         in.Image,
		IsPublished:   in.IsPublished,
	}
	if in.PublishedDate != nil {
		ub.PublishedDate = &in.PublishedDate.Time
	}
	b, err := r.svc.Books.Update(ctx, actr, string(args.ID), ub)
	if err != nil {
		return nil, err
	}
	return &bookResolver{r: r, b: b}, nil
}

func (r *Resolver) DeleteBook(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	actr, err := actor(ctx)
	if err != nil {
		return false, err
	}
	if err = r.svc.Books.Delete(ctx, actr, string(args.ID)); err != nil {
		return false, err
	}
	return true, nil
}
