package gqlapi

import (
	"context"

	"github.com/graph-gophers/graphql-go"
	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/core/location"
	"github.com/kitab-bazar/server/core/logistics"
	"github.com/kitab-bazar/server/core/notification"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/payment"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
)

// User

type userResolver struct {
	r   *Resolver
	usr user.User
}

func (u *userResolver) ID() graphql.ID { return graphql.ID(u.usr.ID) }
func (u *userResolver) FullName() string { return u.usr.FullName }
func (u *userResolver) Email() string { return u.usr.Email }
func (u *userResolver) PhoneNumber() string { return u.usr.PhoneNumber }
func (u *userResolver) UserType() string { return u.usr.UserType }
func (u *userResolver) PublisherID() *graphql.ID { return optID(u.usr.PublisherID) }
func (u *userResolver) SchoolID() *graphql.ID { return optID(u.usr.SchoolID) }
func (u *userResolver) InstitutionID() *graphql.ID { return optID(u.usr.InstitutionID) }
func (u *userResolver) IsActive() bool { return u.usr.IsActive }
func (u *userResolver) IsVerified() bool { return u.usr.IsVerified }
func (u *userResolver) CreatedAt() graphql.Time { return graphql.Time{Time: u.usr.CreatedAt} }
func (u *userResolver) LastLogin() *graphql.Time { return optTime(u.usr.LastLogin) }

func (u *userResolver) Permissions() []string {
	perms := u.usr.Permissions()
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func (u *userResolver) Publisher(ctx context.Context) (*publisherResolver, error) {
	if u.usr.PublisherID == "" {
		return nil, nil
	}
	p, err := u.r.svc.Publishers.Get(ctx, u.usr.PublisherID)
	if err != nil {
		return nil, nilIfNotFound(err, publisher.ErrNotFound)
	}
	return &publisherResolver{p: p}, nil
}

func (u *userResolver) School(ctx context.Context) (*schoolResolver, error) {
	return u.r.schoolOf(ctx, school.KindSchool, u.usr.SchoolID)
}

func (u *userResolver) Institution(ctx context.Context) (*schoolResolver, error) {
	return u.r.schoolOf(ctx, school.KindInstitution, u.usr.InstitutionID)
}

func (r *Resolver) schoolOf(ctx context.Context, kind, id string) (*schoolResolver, error) {
	if id == "" {
		return nil, nil
	}
	s, err := r.svc.Schools.Get(ctx, kind, id)
	if err != nil {
		return nil, nilIfNotFound(err, school.ErrNotFound)
	}
	return &schoolResolver{r: r, s: s}, nil
}

// nilIfNotFound drops err when a related object has disappeared.
func nilIfNotFound(err, notFound error) error {
	if errors.Cause(err) == notFound {
		return nil
	}
	return err
}

func (r *Resolver) users(usrs []user.User) []*userResolver {
	out := make([]*userResolver, len(usrs))
	for i, usr := range usrs {
		out[i] = &userResolver{r: r, usr: usr}
	}
	return out
}

type userTypeResolver struct{ t user.Type }

func (t *userTypeResolver) Name() string { return t.t.Name }
func (t *userTypeResolver) Value() string { return t.t.Value }

// Locations

type provinceResolver struct{ p location.Province }

func (p *provinceResolver) ID() graphql.ID { return graphql.ID(p.p.ID) }
func (p *provinceResolver) Name() string { return p.p.Name }

type districtResolver struct{ d location.District }

func (d *districtResolver) ID() graphql.ID { return graphql.ID(d.d.ID) }
func (d *districtResolver) Name() string { return d.d.Name }
func (d *districtResolver) ProvinceID() graphql.ID { return graphql.ID(d.d.ProvinceID) }

type municipalityResolver struct {
	r *Resolver
	m location.Municipality
}

func (m *municipalityResolver) ID() graphql.ID { return graphql.ID(m.m.ID) }
func (m *municipalityResolver) Name() string { return m.m.Name }
func (m *municipalityResolver) DistrictID() graphql.ID { return graphql.ID(m.m.DistrictID) }

func (m *municipalityResolver) District(ctx context.Context) (*districtResolver, error) {
	d, err := m.r.svc.Locations.GetDistrict(ctx, m.m.DistrictID)
	if err != nil {
		return nil, nilIfNotFound(err, location.ErrNotFound)
	}
	return &districtResolver{d: d}, nil
}

// Publishers & schools

type publisherResolver struct{ p publisher.Publisher }

func (p *publisherResolver) ID() graphql.ID { return graphql.ID(p.p.ID) }
func (p *publisherResolver) Name() string { return p.p.Name }
func (p *publisherResolver) Email() string { return p.p.Email }
func (p *publisherResolver) PhoneNumber() string { return p.p.PhoneNumber }
func (p *publisherResolver) PanNumber() string { return p.p.PanNumber }
func (p *publisherResolver) VatNumber() string { return p.p.VatNumber }
func (p *publisherResolver) MunicipalityID() *graphql.ID { return optID(p.p.MunicipalityID) }
func (p *publisherResolver) WardNumber() int32 { return int32(p.p.WardNumber) }
func (p *publisherResolver) LocalAddress() string { return p.p.LocalAddress }
func (p *publisherResolver) CreatedAt() graphql.Time { return graphql.Time{Time: p.p.CreatedAt} }

type schoolResolver struct {
	r *Resolver
	s school.School
}

func (s *schoolResolver) ID() graphql.ID { return graphql.ID(s.s.ID) }
func (s *schoolResolver) Kind() string { return s.s.Kind }
func (s *schoolResolver) Name() string { return s.s.Name }
func (s *schoolResolver) SchoolCode() string { return s.s.SchoolCode }
func (s *schoolResolver) PanNumber() string { return s.s.PanNumber }
func (s *schoolResolver) MunicipalityID() graphql.ID { return graphql.ID(s.s.MunicipalityID) }
func (s *schoolResolver) WardNumber() int32 { return int32(s.s.WardNumber) }
func (s *schoolResolver) LocalAddress() string { return s.s.LocalAddress }
func (s *schoolResolver) IsVerified() bool { return s.s.IsVerified }
func (s *schoolResolver) CreatedAt() graphql.Time { return graphql.Time{Time: s.s.CreatedAt} }

func (s *schoolResolver) Municipality(ctx context.Context) (*municipalityResolver, error) {
	m, err := s.r.svc.Locations.GetMunicipality(ctx, s.s.MunicipalityID)
	if err != nil {
		return nil, nilIfNotFound(err, location.ErrNotFound)
	}
	return &municipalityResolver{r: s.r, m: m}, nil
}

// Catalog

type categoryResolver struct{ c book.Category }

func (c *categoryResolver) ID() graphql.ID { return graphql.ID(c.c.ID) }
func (c *categoryResolver) Name() string { return c.c.Name }
func (c *categoryResolver) ParentID() *graphql.ID { return optID(c.c.ParentID) }

type tagResolver struct{ t book.Tag }

func (t *tagResolver) ID() graphql.ID { return graphql.ID(t.t.ID) }
func (t *tagResolver) Name() string { return t.t.Name }

type bookResolver struct {
	r *Resolver
	b book.Book
}

func (b *bookResolver) ID() graphql.ID { return graphql.ID(b.b.ID) }
func (b *bookResolver) Title() string { return b.b.Title }
func (b *bookResolver) Description() string { return b.b.Description }
func (b *bookResolver) ISBN() string { return b.b.ISBN }
func (b *bookResolver) Edition() string { return b.b.Edition }
func (b *bookResolver) Language() string { return b.b.Language }
func (b *bookResolver) Grade() string { return b.b.Grade }
func (b *bookResolver) Price() int32 { return int32(b.b.Price) }
func (b *bookResolver) NumberOfPages() int32 { return int32(b.b.NumberOfPages) }
func (b *bookResolver) PublishedDate() *graphql.Time { return optTime(b.b.PublishedDate) }
func (b *bookResolver) PublisherID() graphql.ID { return graphql.ID(b.b.PublisherID) }
func (b *bookResolver) CategoryIDs() []graphql.ID { return toIDs(b.b.CategoryIDs) }
func (b *bookResolver) TagIDs() []graphql.ID { return toIDs(b.b.TagIDs) }
func (b *bookResolver) Image() string { return b.b.Image }
func (b *bookResolver) IsPublished() bool { return b.b.IsPublished }
func (b *bookResolver) CreatedAt() graphql.Time { return graphql.Time{Time: b.b.CreatedAt} }
func (b *bookResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: b.b.UpdatedAt} }

func (b *bookResolver) Publisher(ctx context.Context) (*publisherResolver, error) {
	p, err := b.r.svc.Publishers.Get(ctx, b.b.PublisherID)
	if err != nil {
		return nil, nilIfNotFound(err, publisher.ErrNotFound)
	}
	return &publisherResolver{p: p}, nil
}

func (r *Resolver) books(books []book.Book) []*bookResolver {
	out := make([]*bookResolver, len(books))
	for i, b := range books {
		out[i] = &bookResolver{r: r, b: b}
	}
	return out
}

// Cart & wishlist

type cartItemResolver struct{ item order.CartItem }

func (c *cartItemResolver) ID() graphql.ID { return graphql.ID(c.item.ID) }
func (c *cartItemResolver) BookID() graphql.ID { return graphql.ID(c.item.BookID) }
func (c *cartItemResolver) Quantity() int32 { return int32(c.item.Quantity) }
func (c *cartItemResolver) CreatedAt() graphql.Time { return graphql.Time{Time: c.item.CreatedAt} }

type cartLineResolver struct{ line order.CartLine }

func (c *cartLineResolver) Item() *cartItemResolver { return &cartItemResolver{item: c.line.Item} }
func (c *cartLineResolver) Title() string { return c.line.Title }
func (c *cartLineResolver) Price() int32 { return int32(c.line.Price) }
func (c *cartLineResolver) TotalPrice() int32 { return int32(c.line.TotalPrice) }

type cartResolver struct{ cart order.Cart }

func (c *cartResolver) Lines() []*cartLineResolver {
	out := make([]*cartLineResolver, len(c.cart.Lines))
	for i, l := range c.cart.Lines {
		out[i] = &cartLineResolver{line: l}
	}
	return out
}

func (c *cartResolver) TotalQuantity() int32 { return int32(c.cart.TotalQuantity) }
func (c *cartResolver) TotalPrice() int32 { return int32(c.cart.TotalPrice) }

type wishListItemResolver struct {
	r    *Resolver
	item order.WishListItem
}

func (w *wishListItemResolver) ID() graphql.ID { return graphql.ID(w.item.ID) }
func (w *wishListItemResolver) BookID() graphql.ID { return graphql.ID(w.item.BookID) }
func (w *wishListItemResolver) CreatedAt() graphql.Time { return graphql.Time{Time: w.item.CreatedAt} }

// Book is null once the book is deleted or unpublished.
func (w *wishListItemResolver) Book(ctx context.Context) (*bookResolver, error) {
	b, err := w.r.svc.Books.Get(ctx, anyone(ctx), w.item.BookID)
	if err != nil {
		return nil, nilIfNotFound(err, book.ErrNotFound)
	}
	return &bookResolver{r: w.r, b: b}, nil
}

// Orders

type orderWindowResolver struct{ w order.OrderWindow }

func (w *orderWindowResolver) ID() graphql.ID { return graphql.ID(w.w.ID) }
func (w *orderWindowResolver) Title() string { return w.w.Title }
func (w *orderWindowResolver) Description() string { return w.w.Description }
func (w *orderWindowResolver) WindowType() string { return w.w.WindowType }
func (w *orderWindowResolver) StartDate() graphql.Time { return graphql.Time{Time: w.w.StartDate} }
func (w *orderWindowResolver) EndDate() graphql.Time { return graphql.Time{Time: w.w.EndDate} }
func (w *orderWindowResolver) CreatedAt() graphql.Time { return graphql.Time{Time: w.w.CreatedAt} }

func windows(ws []order.OrderWindow) []*orderWindowResolver {
	out := make([]*orderWindowResolver, len(ws))
	for i, w := range ws {
		out[i] = &orderWindowResolver{w: w}
	}
	return out
}

type bookOrderResolver struct{ l order.BookOrder }

func (b *bookOrderResolver) ID() graphql.ID { return graphql.ID(b.l.ID) }
func (b *bookOrderResolver) BookID() graphql.ID { return graphql.ID(b.l.BookID) }
func (b *bookOrderResolver) Title() string { return b.l.Title }
func (b *bookOrderResolver) ISBN() string { return b.l.ISBN }
func (b *bookOrderResolver) Edition() string { return b.l.Edition }
func (b *bookOrderResolver) Price() int32 { return int32(b.l.Price) }
func (b *bookOrderResolver) PublisherID() graphql.ID { return graphql.ID(b.l.PublisherID) }
func (b *bookOrderResolver) Image() string { return b.l.Image }
func (b *bookOrderResolver) Quantity() int32 { return int32(b.l.Quantity) }
func (b *bookOrderResolver) TotalPrice() int32 { return int32(b.l.TotalPrice) }

type orderResolver struct{ o order.Order }

func (o *orderResolver) ID() graphql.ID { return graphql.ID(o.o.ID) }
func (o *orderResolver) OrderCode() string { return o.o.OrderCode }
func (o *orderResolver) Status() string { return o.o.Status }
func (o *orderResolver) CreatedByID() graphql.ID { return graphql.ID(o.o.CreatedByID) }
func (o *orderResolver) OrderWindowID() *graphql.ID { return optID(o.o.OrderWindowID) }
func (o *orderResolver) TotalPrice() int32 { return int32(o.o.TotalPrice) }
func (o *orderResolver) TotalQuantity() int32 { return int32(o.o.TotalQuantity) }
func (o *orderResolver) AssignedForPackage() bool { return o.o.AssignedForPackage }
func (o *orderResolver) CreatedAt() graphql.Time { return graphql.Time{Time: o.o.CreatedAt} }
func (o *orderResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: o.o.UpdatedAt} }

func (o *orderResolver) Books() []*bookOrderResolver {
	out := make([]*bookOrderResolver, len(o.o.Books))
	for i, l := range o.o.Books {
		out[i] = &bookOrderResolver{l: l}
	}
	return out
}

type orderStatsResolver struct{ s order.StatusStats }

func (s *orderStatsResolver) Status() string { return s.s.Status }
func (s *orderStatsResolver) Count() int32 { return int32(s.s.Count) }
func (s *orderStatsResolver) TotalQuantity() int32 { return int32(s.s.TotalQuantity) }
func (s *orderStatsResolver) TotalPrice() int32 { return int32(s.s.TotalPrice) }

// Payments

type paymentResolver struct{ p payment.Payment }

func (p *paymentResolver) ID() graphql.ID { return graphql.ID(p.p.ID) }
func (p *paymentResolver) UserID() graphql.ID { return graphql.ID(p.p.UserID) }
func (p *paymentResolver) OrderID() *graphql.ID { return optID(p.p.OrderID) }
func (p *paymentResolver) Amount() int32 { return int32(p.p.Amount) }
func (p *paymentResolver) PaymentType() string { return p.p.PaymentType }
func (p *paymentResolver) TransactionType() string { return p.p.TransactionType }
func (p *paymentResolver) Status() string { return p.p.Status }
func (p *paymentResolver) Remarks() string { return p.p.Remarks }
func (p *paymentResolver) CreatedByID() graphql.ID { return graphql.ID(p.p.CreatedByID) }
func (p *paymentResolver) CreatedAt() graphql.Time { return graphql.Time{Time: p.p.CreatedAt} }
func (p *paymentResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: p.p.UpdatedAt} }

type balanceResolver struct{ b payment.Balance }

func (b *balanceResolver) UserID() graphql.ID { return graphql.ID(b.b.UserID) }
func (b *balanceResolver) Credits() int32 { return int32(b.b.Credits) }
func (b *balanceResolver) Debits() int32 { return int32(b.b.Debits) }
func (b *balanceResolver) Amount() int32 { return int32(b.b.Amount) }

// Notifications

type notificationResolver struct{ n notification.Notification }

func (n *notificationResolver) ID() graphql.ID { return graphql.ID(n.n.ID) }
func (n *notificationResolver) Title() string { return n.n.Title }
func (n *notificationResolver) Body() string { return n.n.Body }
func (n *notificationResolver) NotificationType() string { return n.n.NotificationType }
func (n *notificationResolver) OrderID() *graphql.ID { return optID(n.n.OrderID) }
func (n *notificationResolver) IsRead() bool { return n.n.IsRead }
func (n *notificationResolver) CreatedAt() graphql.Time { return graphql.Time{Time: n.n.CreatedAt} }

// Packages

type packageBookResolver struct{ b logistics.PackageBook }

func (b *packageBookResolver) BookID() graphql.ID { return graphql.ID(b.b.BookID) }
func (b *packageBookResolver) Title() string { return b.b.Title }
func (b *packageBookResolver) ISBN() string { return b.b.ISBN }
func (b *packageBookResolver) Price() int32 { return int32(b.b.Price) }
func (b *packageBookResolver) Quantity() int32 { return int32(b.b.Quantity) }
func (b *packageBookResolver) TotalPrice() int32 { return int32(b.b.TotalPrice) }

type packageResolver struct{ p logistics.Package }

func (p *packageResolver) ID() graphql.ID { return graphql.ID(p.p.ID) }
func (p *packageResolver) Code() string { return p.p.Code }
func (p *packageResolver) Kind() string { return p.p.Kind }
func (p *packageResolver) OwnerID() graphql.ID { return graphql.ID(p.p.OwnerID) }
func (p *packageResolver) OwnerName() string { return p.p.OwnerName }
func (p *packageResolver) OrderWindowID() graphql.ID { return graphql.ID(p.p.OrderWindowID) }
func (p *packageResolver) Status() string { return p.p.Status }
func (p *packageResolver) TotalQuantity() int32 { return int32(p.p.TotalQuantity) }
func (p *packageResolver) TotalPrice() int32 { return int32(p.p.TotalPrice) }
func (p *packageResolver) IsEligibleForIncentive() bool { return p.p.IsEligibleForIncentive }
func (p *packageResolver) Incentive() int32 { return int32(p.p.Incentive) }
func (p *packageResolver) OrderIDs() []graphql.ID { return toIDs(p.p.OrderIDs) }
func (p *packageResolver) ChildIDs() []graphql.ID { return toIDs(p.p.ChildIDs) }
func (p *packageResolver) CreatedAt() graphql.Time { return graphql.Time{Time: p.p.CreatedAt} }
func (p *packageResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: p.p.UpdatedAt} }

func (p *packageResolver) Books() []*packageBookResolver {
	out := make([]*packageBookResolver, len(p.p.Books))
	for i, b := range p.p.Books {
		out[i] = &packageBookResolver{b: b}
	}
	return out
}

func packages(pkgs []logistics.Package) []*packageResolver {
	out := make([]*packageResolver, len(pkgs))
	for i, p := range pkgs {
		out[i] = &packageResolver{p: p}
	}
	return out
}
