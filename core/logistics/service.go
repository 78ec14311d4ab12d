package logistics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
	"github.com/kitab-bazar/server/core/location"
	"github.com/kitab-bazar/server/core/order"
	"github.com/kitab-bazar/server/core/publisher"
	"github.com/kitab-bazar/server/core/school"
	"github.com/kitab-bazar/server/core/user"
)

var (
	ErrNotFound           = errors.New("package not found")
	ErrNothingToPackage   = errors.New("no pending order left to package in this window")
	ErrPackagesInProgress = errors.New("packages already left pending")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

type (
	Repository interface {
		CreatePackages(ctx context.Context, pkgs []Package) error
		GetPackage(ctx context.Context, id string) (Package, error)
		// QueryPackages returns packages sorted by kind, owner name and id.
		QueryPackages(ctx context.Context, filter QueryFilter) ([]Package, error)
		UpdatePackages(ctx context.Context, pkgs []Package) error
		DeletePackages(ctx context.Context, ids []string) (int, error)
	}

	UserGetter interface {
		GetMany(ctx context.Context, ids []string) ([]user.User, error)
	}

	Service struct {
		repo       Repository
		tx         core.TxRunner
		orders     *order.Service
		users      UserGetter
		publishers *publisher.Service
		schools    *school.Service
		locations  *location.Service
		incentive  IncentivePolicy
		logger     core.Logger
		nowFunc    func() time.Time // mockable
	}
)

func NewService(
	repo Repository, tx core.TxRunner, orders *order.Service, users UserGetter,
	publishers *publisher.Service, schools *school.Service, locations *location.Service,
	conf *core.Config, logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		tx:         tx,
		orders:     orders,
		users:      users,
		publishers: publishers,
		schools:    schools,
		locations:  locations,
		incentive:  IncentivePolicy(conf.Incentive),
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// group accumulates the orders of one package while generating.
type group struct {
	pkg    Package
	lines  map[string]*PackageBook
	muniID string // school & institution groups
}

func newGroup(kind, ownerID, ownerName, windowID string, now time.Time) *group {
	return &group{
		pkg: Package{
			ID:            core.NewID(),
			Code:          codePrefixes[kind] + "-" + core.ShortCode(8),
			Kind:          kind,
			OwnerID:       ownerID,
			OwnerName:     ownerName,
			OrderWindowID: windowID,
			Status:        StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		lines: make(map[string]*PackageBook),
	}
}

func (g *group) add(orderID string, lines []order.BookOrder) {
	if !core.ContainsString(g.pkg.OrderIDs, orderID) {
		g.pkg.OrderIDs = append(g.pkg.OrderIDs, orderID)
	}
	for _, l := range lines {
		pb, ok := g.lines[l.BookID]
		if !ok {
			pb = &PackageBook{BookID: l.BookID, Title: l.Title, ISBN: l.ISBN, Price: l.Price}
			g.lines[l.BookID] = pb
		}
		pb.Quantity += l.Quantity
		pb.TotalPrice += l.TotalPrice
		g.pkg.TotalQuantity += l.Quantity
		g.pkg.TotalPrice += l.TotalPrice
	}
}

func (g *group) addPackageBooks(books []PackageBook) {
	for _, b := range books {
		pb, ok := g.lines[b.BookID]
		if !ok {
			cp := b
			cp.Quantity, cp.TotalPrice = 0, 0
			pb = &cp
			g.lines[b.BookID] = pb
		}
		pb.Quantity += b.Quantity
		pb.TotalPrice += b.TotalPrice
	}
}

// build sorts the book lines and the order ids.
func (g *group) build() Package {
	g.pkg.Books = make([]PackageBook, 0, len(g.lines))
	for _, pb := range g.lines {
		g.pkg.Books = append(g.pkg.Books, *pb)
	}
	sort.Slice(g.pkg.Books, func(i, j int) bool {
		if g.pkg.Books[i].Title != g.pkg.Books[j].Title {
			return g.pkg.Books[i].Title < g.pkg.Books[j].Title
		}
		return g.pkg.Books[i].BookID < g.pkg.Books[j].BookID
	})
	sort.Strings(g.pkg.OrderIDs)
	return g.pkg
}

// sortGroups orders groups by owner name then owner id.
func sortGroups(groups map[string]*group) []*group {
	out := make([]*group, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].pkg.OwnerName != out[j].pkg.OwnerName {
			return out[i].pkg.OwnerName < out[j].pkg.OwnerName
		}
		return out[i].pkg.OwnerID < out[j].pkg.OwnerID
	})
	return out
}

// Generate packages the pending, unassigned orders of a window in a single transaction.
// It returns the created packages: publishers first, then schools, institutions and couriers.
func (svc *Service) Generate(ctx context.Context, windowID string) ([]Package, error) {
	var created []Package
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := svc.orders.GetWindow(ctx, windowID); err != nil {
			return err
		}
		orders, err := svc.orders.ForPackaging(ctx, windowID)
		if err != nil {
			return errors.Wrap(err, "loading orders")
		}
		if len(orders) == 0 {
			return ErrNothingToPackage
		}

		lookup, err := svc.loadOwners(ctx, orders)
		if err != nil {
			return err
		}

		now := svc.nowFunc().UTC()
		pubGroups := make(map[string]*group)
		buyerGroups := make(map[string]*group) // school & institution packages by profile id
		var packaged []order.Order

		for _, o := range orders {
			buyer, ok := lookup.buyers[o.CreatedByID]
			if !ok {
				svc.logger.Warn(fmt.Sprintf("logistics.Generate: order %s has no school or institution buyer, skipped", o.OrderCode))
				continue
			}
			sch := lookup.schools[buyer]

			g, ok := buyerGroups[sch.ID]
			if !ok {
				g = newGroup(sch.Kind, sch.ID, sch.Name, windowID, now)
				g.muniID = sch.MunicipalityID
				buyerGroups[sch.ID] = g
			}
			g.add(o.ID, o.Books)

			for _, pubID := range o.PublisherIDs() {
				pg, ok := pubGroups[pubID]
				if !ok {
					pg = newGroup(KindPublisher, pubID, lookup.publishers[pubID], windowID, now)
					pubGroups[pubID] = pg
				}
				pg.add(o.ID, o.PublisherLines(pubID))
			}
			packaged = append(packaged, o)
		}
		if len(packaged) == 0 {
			return ErrNothingToPackage
		}

		for _, g := range sortGroups(pubGroups) {
			created = append(created, g.build())
		}

		courierGroups := make(map[string]*group)
		var schoolPkgs, instPkgs []Package
		for _, g := range sortGroups(buyerGroups) {
			pkg := g.build()
			pkg.IsEligibleForIncentive, pkg.Incentive = svc.incentive.Apply(pkg.TotalQuantity)
			if pkg.Kind == KindSchool {
				schoolPkgs = append(schoolPkgs, pkg)
			} else {
				instPkgs = append(instPkgs, pkg)
			}

			cg, ok := courierGroups[g.muniID]
			if !ok {
				cg = newGroup(KindCourier, g.muniID, lookup.municipalities[g.muniID], windowID, now)
				courierGroups[g.muniID] = cg
			}
			cg.pkg.ChildIDs = append(cg.pkg.ChildIDs, pkg.ID)
			cg.pkg.OrderIDs = append(cg.pkg.OrderIDs, pkg.OrderIDs...)
			cg.pkg.TotalQuantity += pkg.TotalQuantity
			cg.pkg.TotalPrice += pkg.TotalPrice
			cg.addPackageBooks(pkg.Books)
		}
		created = append(created, schoolPkgs...)
		created = append(created, instPkgs...)
		for _, cg := range sortGroups(courierGroups) {
			created = append(created, cg.build())
		}

		if err = svc.repo.CreatePackages(ctx, created); err != nil {
			return errors.Wrap(err, "saving packages")
		}
		return errors.Wrap(svc.orders.SetAssigned(ctx, packaged, true), "assigning orders")
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// owners resolves the names behind the orders of a window.
type owners struct {
	buyers         map[string]string // user id: school or institution id
	schools        map[string]school.School
	publishers     map[string]string // id: name
	municipalities map[string]string // id: name
}

func (svc *Service) loadOwners(ctx context.Context, orders []order.Order) (owners, error) {
	lookup := owners{
		buyers:         make(map[string]string),
		schools:        make(map[string]school.School),
		publishers:     make(map[string]string),
		municipalities: make(map[string]string),
	}

	var buyerIDs, pubIDs []string
	for _, o := range orders {
		if !core.ContainsString(buyerIDs, o.CreatedByID) {
			buyerIDs = append(buyerIDs, o.CreatedByID)
		}
		for _, id := range o.PublisherIDs() {
			if !core.ContainsString(pubIDs, id) {
				pubIDs = append(pubIDs, id)
			}
		}
	}

	usrs, err := svc.users.GetMany(ctx, buyerIDs)
	if err != nil {
		return lookup, errors.Wrap(err, "loading buyers")
	}
	var schoolIDs []string
	for _, u := range usrs {
		profileID := u.SchoolID
		if profileID == "" {
			profileID = u.InstitutionID
		}
		if profileID == "" {
			continue
		}
		lookup.buyers[u.ID] = profileID
		if !core.ContainsString(schoolIDs, profileID) {
			schoolIDs = append(schoolIDs, profileID)
		}
	}

	schools, err := svc.schools.GetMany(ctx, schoolIDs)
	if err != nil {
		return lookup, errors.Wrap(err, "loading schools")
	}
	var muniIDs []string
	for _, s := range schools {
		lookup.schools[s.ID] = s
		if !core.ContainsString(muniIDs, s.MunicipalityID) {
			muniIDs = append(muniIDs, s.MunicipalityID)
		}
	}
	for userID, profileID := range lookup.buyers {
		if _, ok := lookup.schools[profileID]; !ok {
			delete(lookup.buyers, userID)
		}
	}

	pubs, err := svc.publishers.GetMany(ctx, pubIDs)
	if err != nil {
		return lookup, errors.Wrap(err, "loading publishers")
	}
	for _, p := range pubs {
		lookup.publishers[p.ID] = p.Name
	}

	munis, err := svc.locations.GetMunicipalities(ctx, muniIDs)
	if err != nil {
		return lookup, errors.Wrap(err, "loading municipalities")
	}
	for _, m := range munis {
		lookup.municipalities[m.ID] = m.Name
	}
	return lookup, nil
}

// canView reports whether actor may see pkg.
func canView(actor user.User, pkg Package) bool {
	switch {
	case actor.HasPerm(user.PermViewPackages):
		return true
	case !actor.IsActive:
		return false
	case pkg.Kind == KindPublisher:
		return actor.IsPublisher() && actor.PublisherID == pkg.OwnerID
	case pkg.Kind == KindSchool:
		return actor.SchoolID != "" && actor.SchoolID == pkg.OwnerID
	case pkg.Kind == KindInstitution:
		return actor.InstitutionID != "" && actor.InstitutionID == pkg.OwnerID
	}
	return false
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Package, error) {
	if !core.IsValidID(id) {
		return Package{}, ErrNotFound
	}
	pkg, err := svc.repo.GetPackage(ctx, id)
	if err != nil {
		return Package{}, err
	}
	if !canView(actor, pkg) {
		return Package{}, ErrNotFound
	}
	return pkg, nil
}

// Query lists the packages visible to actor: staff see every package,
// publishers, schools and institutions only their own.
func (svc *Service) Query(ctx context.Context, actor user.User, filter QueryFilter) ([]Package, error) {
	if !actor.HasPerm(user.PermViewPackages) {
		switch {
		case !actor.IsActive:
			return nil, core.ErrPermissionDenied
		case actor.IsPublisher():
			filter.Kind, filter.OwnerID = KindPublisher, actor.PublisherID
		case actor.SchoolID != "":
			filter.Kind, filter.OwnerID = KindSchool, actor.SchoolID
		case actor.InstitutionID != "":
			filter.Kind, filter.OwnerID = KindInstitution, actor.InstitutionID
		default:
			return nil, nil
		}
	}
	return svc.repo.QueryPackages(ctx, filter)
}

// UpdateStatus moves a package to status. Courier packages carry their children along,
// and the orders of school, institution & courier packages follow the package status.
func (svc *Service) UpdateStatus(ctx context.Context, actor user.User, id, status string) (Package, error) {
	if !actor.HasPerm(user.PermManagePackages) {
		return Package{}, core.ErrPermissionDenied
	}

	var (
		pkg     Package
		changes []order.StatusChange
	)
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if pkg, err = svc.Get(ctx, actor, id); err != nil {
			return err
		}
		if !CanTransition(pkg.Status, status) {
			msg := fmt.Sprintf("cannot move package from %s to %s", pkg.Status, status)
			return core.NewValidationError(ErrInvalidTransition, core.FieldError{Field: "status", Error: msg})
		}

		now := svc.nowFunc().UTC()
		pkg.Status, pkg.UpdatedAt = status, now
		updated := []Package{pkg}
		if pkg.Kind == KindCourier && len(pkg.ChildIDs) > 0 {
			children, err := svc.repo.QueryPackages(ctx, QueryFilter{IDs: pkg.ChildIDs})
			if err != nil {
				return err
			}
			for _, child := range children {
				if CanTransition(child.Status, status) {
					child.Status, child.UpdatedAt = status, now
					updated = append(updated, child)
				}
			}
		}
		if err = svc.repo.UpdatePackages(ctx, updated); err != nil {
			return err
		}

		if pkg.Kind == KindPublisher {
			return nil
		}
		orders, err := svc.orders.ByIDs(ctx, pkg.OrderIDs)
		if err != nil {
			return err
		}
		changes, err = svc.orders.Transition(ctx, orders, orderStatuses[status])
		return err
	})
	if err != nil {
		return Package{}, err
	}
	svc.orders.PublishChanges(ctx, changes)
	return pkg, nil
}

// Delete removes every package of a window and releases their orders.
// It is refused once any of the packages left pending.
func (svc *Service) Delete(ctx context.Context, windowID string) (int, error) {
	var n int
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		pkgs, err := svc.repo.QueryPackages(ctx, QueryFilter{OrderWindowID: windowID})
		if err != nil {
			return err
		}
		if len(pkgs) == 0 {
			return ErrNotFound
		}
		ids := make([]string, 0, len(pkgs))
		var orderIDs []string
		for _, p := range pkgs {
			if p.Status != StatusPending {
				return core.NewValidationError(ErrPackagesInProgress, core.FieldError{Field: "window", Error: ErrPackagesInProgress.Error()})
			}
			ids = append(ids, p.ID)
			for _, oid := range p.OrderIDs {
				if !core.ContainsString(orderIDs, oid) {
					orderIDs = append(orderIDs, oid)
				}
			}
		}

		orders, err := svc.orders.ByIDs(ctx, orderIDs)
		if err != nil {
			return err
		}
		if err = svc.orders.SetAssigned(ctx, orders, false); err != nil {
			return err
		}
		n, err = svc.repo.DeletePackages(ctx, ids)
		return err
	})
	return n, err
}
