// Package testutil builds the services on in-memory storage and creates test fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/book"
	"github.com/kitab-bazar/server/core/location"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
	emailsvc "github.com/kitab-bazar/server/services/email"
	tasksvc "github.com/kitab-bazar/server/services/tasks"
	inmemdb "github.com/kitab-bazar/server/storage/database/inmem"
)

const (
	Password   = "Pa$$w0rd-Kitab!"
	adminEmail = "admin@kitab.test"
)

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// Env holds the services of a test, running on a fresh in-memory database.
// Tasks run synchronously and emails are kept by the console mock.
type Env struct {
	Conf  *core.Config
	DB    *inmemdb.DB
	Repos shared.Repositories
	Svc   *shared.Services
}

func Setup(t *testing.T) *Env {
	t.Helper()
	conf := core.NewTestConfig()
	logger := NopLogger{}
	shared.LoadAssets(conf, logger)

	db := inmemdb.Open()
	repos := shared.NewMemoryRepositories(db)
	registry := shared.NewRegistry(shared.NewEmailService(conf, logger))
	queue := tasksvc.NewSyncQueue(registry, logger)

	emailsvc.ClearSentMessages()
	t.Cleanup(emailsvc.ClearSentMessages)

	return &Env{
		Conf:  conf,
		DB:    db,
		Repos: repos,
		Svc:   shared.NewServices(conf, repos, queue, registry, logger),
	}
}

// SetNow freezes the clock of the order service.
func (e *Env) SetNow(now time.Time) {
	e.Svc.Orders.SetNowFunc(func() time.Time { return now })
}

// CreateUser stores an active & verified user with Password.
// opts may modify the user before it is stored.
func (e *Env) CreateUser(t *testing.T, userType, email string, opts ...func(*user.User)) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		FullName:   "User " + email,
		Email:      email,
		UserType:   userType,
		IsActive:   true,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	for _, opt := range opts {
		opt(&usr)
	}
	usr, err := e.Repos.Users.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// Admin returns the super admin of the test, creating it on first use.
func (e *Env) Admin(t *testing.T) user.User {
	t.Helper()
	if admin, err := e.Repos.Users.GetUser(context.Background(), user.GetFilter{Email: adminEmail}); err == nil {
		return admin
	}
	return e.CreateUser(t, user.TypeSuperAdmin, adminEmail)
}

// Municipality creates a province, a district & a municipality.
func (e *Env) Municipality(t *testing.T, name string) location.Municipality {
	t.Helper()
	ctx := context.Background()
	p, err := e.Svc.Locations.CreateProvince(ctx, location.NewProvince{Name: "Province of " + name})
	if err != nil {
		t.Fatalf("Municipality(): %v", err)
	}
	d, err := e.Svc.Locations.CreateDistrict(ctx, location.NewDistrict{Name: "District of " + name, ProvinceID: p.ID})
	if err != nil {
		t.Fatalf("Municipality(): %v", err)
	}
	m, err := e.Svc.Locations.CreateMunicipality(ctx, location.NewMunicipality{Name: name, DistrictID: d.ID})
	if err != nil {
		t.Fatalf("Municipality(): %v", err)
	}
	return m
}

// Publisher creates a publisher and one of its users.
func (e *Env) Publisher(t *testing.T, name, email string) (publisher.Publisher, user.User) {
	t.Helper()
	p, err := e.Svc.Publishers.Create(context.Background(), publisher.NewPublisher{Name: name})
	if err != nil {
		t.Fatalf("Publisher(): %v", err)
	}
	usr := e.CreateUser(t, user.TypePublisher, email, func(u *user.User) { u.PublisherID = p.ID })
	return p, usr
}

// School creates a school (or an institution) and its buyer.
func (e *Env) School(t *testing.T, kind, name, email, municipalityID string) (school.School, user.User) {
	t.Helper()
	s, err := e.Svc.Schools.Create(context.Background(), school.NewSchool{
		Kind:           kind,
		Name:           name,
		MunicipalityID: municipalityID,
	})
	if err != nil {
		t.Fatalf("School(): %v", err)
	}
	opt := func(u *user.User) { u.SchoolID = s.ID }
	userType := user.TypeSchoolAdmin
	if kind == school.KindInstitution {
		opt = func(u *user.User) { u.InstitutionID = s.ID }
		userType = user.TypeInstitutionalUser
	}
	return s, e.CreateUser(t, userType, email, opt)
}

// Book creates a published book of the publisher.
func (e *Env) Book(t *testing.T, publisherID, title, isbn string, price int) book.Book {
	t.Helper()
	b, err := e.Svc.Books.Create(context.Background(), e.Admin(t), book.NewBook{
		Title:       title,
		ISBN:        isbn,
		Language:    book.LanguageNepali,
		Price:       price,
		PublisherID: publisherID,
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("Book(): %v", err)
	}
	return b
}

// Window creates an order window of windowType open from start for the given duration.
func (e *Env) Window(t *testing.T, windowType string, start time.Time, d time.Duration) order.OrderWindow {
	t.Helper()
	w, err := e.Svc.Orders.CreateWindow(context.Background(), order.NewOrderWindow{
		Title:      "Window " + windowType,
		WindowType: windowType,
		StartDate:  start,
		EndDate:    start.Add(d),
	})
	if err != nil {
		t.Fatalf("Window(): %v", err)
	}
	return w
}

// Order fills the buyer's cart with the quantities (by book id) and places the order.
func (e *Env) Order(t *testing.T, buyer user.User, quantities map[string]int) order.Order {
	t.Helper()
	ctx := context.Background()
	for bookID, qty := range quantities {
		if _, err := e.Svc.Orders.AddToCart(ctx, buyer, bookID, qty); err != nil {
			t.Fatalf("Order(): %v", err)
		}
	}
	o, err := e.Svc.Orders.PlaceOrder(ctx, buyer)
	if err != nil {
		t.Fatalf("Order(): %v", err)
	}
	return o
}
